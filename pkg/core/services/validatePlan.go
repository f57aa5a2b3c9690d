package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/core/planner"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// ValidatePlan loads the stored plan of a month and checks it against the
// roster invariants. It only reads from the store.
func ValidatePlan(ctx context.Context, store db.SnapshotSource, cfg *config.Config, logger *zap.Logger, month roster.Month, variantID *int) ([]planner.Violation, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	loadOpts, err := loadOptions(cfg, month)
	if err != nil {
		return nil, err
	}

	snap, err := snapshot.Load(ctx, store, month, variantID, loadOpts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if snap.ConfigError != nil {
		logger.Warn("Generator config rejected, validating against defaults", zap.Error(snap.ConfigError))
	}

	violations := planner.ValidatePlan(snap, planner.LiveShifts(snap.Existing).Clone())
	logger.Info("Validated stored plan",
		zap.String("month", month.String()),
		zap.Int("violations", len(violations)))

	return violations, nil
}

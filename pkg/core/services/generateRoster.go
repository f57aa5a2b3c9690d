package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/core/diff"
	"github.com/jakechorley/duty-roster/pkg/core/planner"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
)

// ErrGenerationFailed is returned when the generator reported a failed run.
// The details were already sent through the progress stream.
var ErrGenerationFailed = errors.New("roster generation failed")

// GenerateRequest selects the month and variant to plan
type GenerateRequest struct {
	Month     roster.Month
	VariantID *int
	DryRun    bool
	// Log receives the progress stream; may be nil
	Log planner.LogFunc
}

// GenerateResult is the outcome of a generation run
type GenerateResult struct {
	Report     *planner.RunReport
	Diff       diff.Result
	Plan       roster.Plan
	Snapshot   *snapshot.Snapshot
	Violations []planner.Violation
}

// GenerateRoster plans one month and persists it (or only computes the diff
// when DryRun is set). The finished plan is checked by the plan validator;
// violations are returned and logged but do not fail the run.
func GenerateRoster(ctx context.Context, store planner.Store, cfg *config.Config, logger *zap.Logger, req GenerateRequest) (*GenerateResult, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	logger.Debug("Generating roster",
		zap.String("month", req.Month.String()),
		zap.Bool("variant", req.VariantID != nil),
		zap.Bool("dry_run", req.DryRun))

	loadOpts, err := loadOptions(cfg, req.Month)
	if err != nil {
		return nil, err
	}

	gen := planner.NewGenerator(planner.GeneratorConfig{
		Store:       store,
		Month:       req.Month,
		VariantID:   req.VariantID,
		Log:         req.Log,
		Options:     plannerOptions(cfg),
		LoadOptions: loadOpts,
		DryRun:      req.DryRun,
	}, logger)

	if !gen.Run(ctx) {
		return nil, ErrGenerationFailed
	}

	result := &GenerateResult{
		Report:   gen.Report(),
		Diff:     gen.Diff(),
		Plan:     gen.Plan(),
		Snapshot: gen.Snapshot(),
	}

	result.Violations = planner.ValidatePlan(gen.Snapshot(), gen.Result().Shifts)
	for _, v := range result.Violations {
		logger.Warn("Plan violation", zap.String("violation", v.String()))
	}

	logger.Info("Roster generated",
		zap.Int("inserts", result.Report.Inserts),
		zap.Int("updates", result.Report.Updates),
		zap.Int("deletes", result.Report.Deletes),
		zap.Int("shortfalls", len(result.Report.Shortfalls)),
		zap.Int("violations", len(result.Violations)))

	return result, nil
}

// PreviewDiff runs the generator without writing and returns the diff that
// a real run would apply
func PreviewDiff(ctx context.Context, store planner.Store, cfg *config.Config, logger *zap.Logger, month roster.Month, variantID *int) (*GenerateResult, error) {
	return GenerateRoster(ctx, store, cfg, logger, GenerateRequest{
		Month:     month,
		VariantID: variantID,
		DryRun:    true,
	})
}

// plannerOptions maps the app config onto the engine options
func plannerOptions(cfg *config.Config) planner.Options {
	opts := planner.Options{
		CriticalLookaheadDays: cfg.Planner.CriticalLookaheadDays,
		CriticalBuffer:        planner.DefaultCriticalBuffer,
	}
	if cfg.Planner.CriticalBuffer != nil {
		opts.CriticalBuffer = *cfg.Planner.CriticalBuffer
	}
	return opts
}

// loadOptions expands the calendar rules for the month and copies the
// classifier overrides
func loadOptions(cfg *config.Config, month roster.Month) (snapshot.LoadOptions, error) {
	events, err := cfg.CalendarEvents(month.FirstDay(), month.NextMonthStart())
	if err != nil {
		return snapshot.LoadOptions{}, fmt.Errorf("failed to expand calendar rules: %w", err)
	}

	return snapshot.LoadOptions{
		FreeIndicators: cfg.Planner.FreeIndicators,
		HardWorkShifts: cfg.Planner.HardWorkShifts,
		ExtraEvents:    events,
		ConfigKey:      cfg.GeneratorConfigKey,
	}, nil
}

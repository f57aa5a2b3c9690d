package planner

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/diff"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// LogFunc receives the user-facing progress stream. progress is nil for
// plain messages and a percentage (0-100) otherwise.
type LogFunc func(message string, progress *int)

// Store is everything a generation run reads and writes
type Store interface {
	db.SnapshotSource
	db.DiffApplier
}

// GeneratorConfig contains the configuration for creating a Generator
type GeneratorConfig struct {
	Store     Store
	Month     roster.Month
	VariantID *int

	// Log receives progress messages; may be nil
	Log LogFunc

	Options     Options
	LoadOptions snapshot.LoadOptions

	// DryRun computes the diff without writing it
	DryRun bool
}

// Generator runs one month: load, pre-plan, day loop, persist
type Generator struct {
	cfg    GeneratorConfig
	logger *zap.Logger

	snap   *snapshot.Snapshot
	result *Result
	plan   roster.Plan
	diff   diff.Result
	report *RunReport
}

// NewGenerator creates a generator for a single run
func NewGenerator(cfg GeneratorConfig, logger *zap.Logger) *Generator {
	return &Generator{cfg: cfg, logger: logger}
}

// Run executes the whole generation. It never panics and never returns an
// error: failures are reported through the log stream and a false result.
// The persisted state is only touched after every day was planned.
func (g *Generator) Run(ctx context.Context) (ok bool) {
	runID := uuid.NewString()
	logger := g.logger.With(
		zap.String("run_id", runID),
		zap.String("month", g.cfg.Month.String()))
	g.report = &RunReport{RunID: runID}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[CRASH] %v\n%s\n", r, debug.Stack())
			g.say(logger, fmt.Sprintf("[CRASH] Unerwarteter Fehler: %v", r), nil)
			ok = false
		}
	}()

	g.say(logger, fmt.Sprintf("Lade Planungsdaten für %s ...", g.cfg.Month), intPtr(0))
	snap, err := snapshot.Load(ctx, g.cfg.Store, g.cfg.Month, g.cfg.VariantID, g.cfg.LoadOptions, logger)
	if err != nil {
		g.say(logger, fmt.Sprintf("[FEHLER] Laden der Daten fehlgeschlagen: %v", err), nil)
		return false
	}
	g.snap = snap
	g.say(logger, fmt.Sprintf("Daten geladen: %d Mitarbeiter, %d Schichtarten", len(snap.Users), len(snap.ShiftTypes)), intPtr(5))

	for _, w := range snap.Warnings {
		g.say(logger, "[WARN] "+w, nil)
	}
	if snap.ConfigError != nil {
		g.say(logger, fmt.Sprintf("[WARN] Generator-Konfiguration ungültig, verwende Standardwerte: %v", snap.ConfigError), nil)
	}
	g.say(logger, fmt.Sprintf("Konfiguration geladen: plane %s", strings.Join(snap.Config.ShiftsToPlan, ", ")), intPtr(10))

	engine := NewEngine(snap, g.cfg.Options, logger, func(msg string, progress *int) {
		g.say(logger, msg, progress)
	})
	engine.report.RunID = runID

	engine.PrePlan()
	days := snap.Month.Days()
	for day := 1; day <= days; day++ {
		engine.PlanDay(day)
		g.say(logger, fmt.Sprintf("Tag %d von %d geplant", day, days), intPtr(10+80*day/days))
	}

	g.result = engine.Result()
	g.report = g.result.Report
	g.plan = engine.Plan()

	g.say(logger, "Speichere Plan ...", intPtr(95))
	in := PersistInput(snap, g.plan)
	if g.cfg.DryRun {
		g.diff, err = Preview(ctx, g.cfg.Store, in, logger)
	} else {
		g.diff, err = diff.Persist(ctx, g.cfg.Store, in, logger)
	}
	if err != nil {
		g.say(logger, fmt.Sprintf("[FEHLER] DB-Speichern fehlgeschlagen: %v", err), nil)
		return false
	}

	g.report.Inserts = len(g.diff.Diff.Inserts)
	g.report.Updates = len(g.diff.Diff.Updates)
	g.report.Deletes = len(g.diff.Diff.Deletes)
	g.report.Skipped = len(g.diff.Skipped)

	verb := "gespeichert"
	if g.cfg.DryRun {
		verb = "berechnet (Testlauf)"
	}
	g.say(logger, fmt.Sprintf("Plan %s: %d neu, %d geändert, %d gelöscht, %d Lücken",
		verb, g.report.Inserts, g.report.Updates, g.report.Deletes, len(g.report.Shortfalls)), intPtr(100))
	return true
}

// Snapshot returns the loaded snapshot (nil before a successful load)
func (g *Generator) Snapshot() *snapshot.Snapshot { return g.snap }

// Result returns the engine output (nil if the run failed before planning)
func (g *Generator) Result() *Result { return g.result }

// Plan returns the typed current-month plan
func (g *Generator) Plan() roster.Plan { return g.plan }

// Diff returns the computed (and, unless dry-run, applied) diff
func (g *Generator) Diff() diff.Result { return g.diff }

// Report returns the run report
func (g *Generator) Report() *RunReport { return g.report }

// say forwards a message to the callback and mirrors it to zap
func (g *Generator) say(logger *zap.Logger, msg string, progress *int) {
	fields := []zap.Field{}
	if progress != nil {
		fields = append(fields, zap.Int("progress", *progress))
	}
	switch {
	case strings.HasPrefix(msg, "[CRASH]"), strings.HasPrefix(msg, "[FEHLER]"):
		logger.Error(msg, fields...)
	case strings.HasPrefix(msg, "[WARN]"):
		logger.Warn(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}

	if g.cfg.Log != nil {
		g.cfg.Log(msg, progress)
	}
}

// PersistInput builds the diff input for a planned snapshot
func PersistInput(snap *snapshot.Snapshot, plan roster.Plan) diff.Input {
	userIDs := make([]int, 0, len(snap.Users))
	for _, u := range snap.Users {
		userIDs = append(userIDs, u.ID)
	}
	typeIDs := make(map[string]int, len(snap.ShiftTypes))
	for abbr, meta := range snap.ShiftTypes {
		typeIDs[abbr] = meta.ID
	}
	return diff.Input{
		Month:     snap.Month,
		VariantID: snap.VariantID,
		UserIDs:   userIDs,
		Plan:      plan,
		TypeIDs:   typeIDs,
		Locked:    snap.Locked,
	}
}

// Preview computes the diff against the stored rows without writing
func Preview(ctx context.Context, store db.ShiftReader, in diff.Input, logger *zap.Logger) (diff.Result, error) {
	r := db.DateRange{From: in.Month.FirstDay(), To: in.Month.NextMonthStart()}
	rows, err := store.ListShifts(ctx, r, in.VariantID)
	if err != nil {
		return diff.Result{}, fmt.Errorf("failed to load stored shifts: %w", err)
	}
	return diff.Compute(in, rows, logger), nil
}

func intPtr(v int) *int { return &v }

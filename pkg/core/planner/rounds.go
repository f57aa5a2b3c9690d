package planner

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
)

// PlanDay fills every plannable shift of the given day in configured order.
// Round 1 places the best scored candidate one at a time; the fill rounds
// loosen the soft rules and place by lowest hours. Whatever stays missing is
// reported, not treated as an error.
func (e *Engine) PlanDay(day int) {
	t := e.snap.Month.Date(day)
	demand := e.demandForDate(t)

	for _, abbr := range e.cfg.ShiftsToPlan {
		needed := demand[abbr]
		if e.missing(t, abbr, needed) == 0 {
			continue
		}

		e.roundOne(t, abbr, needed)
		for round := 2; round <= e.cfg.GeneratorFillRounds+1 && e.missing(t, abbr, needed) > 0; round++ {
			e.fillRound(t, abbr, needed, round)
		}

		if missing := e.missing(t, abbr, needed); missing > 0 {
			e.report.Shortfalls = append(e.report.Shortfalls, Shortfall{Date: t, Shift: abbr, Missing: missing})
			e.emit("[WARN] Tag %d: Konnte %s nicht voll besetzen (Fehlen: %d)", day, abbr, missing)
			e.logger.Warn("Shift understaffed",
				zap.String("date", roster.DateKey(t)),
				zap.String("shift", abbr),
				zap.Int("missing", missing))
		}
	}
}

// roundOne places scored candidates under the strict rule set
func (e *Engine) roundOne(t time.Time, abbr string, needed int) {
	rel := roundRelaxation(1, e.cfg)
	for e.missing(t, abbr, needed) > 0 {
		ids := e.eligible(t, abbr, rel)
		if len(ids) == 0 {
			return
		}
		e.commit(e.bestCandidate(t, abbr, ids), t, abbr, rel.name)
	}
}

// fillRound places the lowest-hours candidates under a loosened rule set
func (e *Engine) fillRound(t time.Time, abbr string, needed, round int) {
	rel := roundRelaxation(round, e.cfg)
	for e.missing(t, abbr, needed) > 0 {
		ids := e.eligible(t, abbr, rel)
		if len(ids) == 0 {
			return
		}
		e.commit(e.lowestHours(ids), t, abbr, rel.name)
	}
}

// bestCandidate scores every candidate and returns the lowest sort key
func (e *Engine) bestCandidate(t time.Time, abbr string, ids []int) int {
	sum := 0.0
	for _, id := range ids {
		sum += e.state.hoursOf(id).InexactFloat64()
	}
	avg := sum / float64(len(ids))

	scores := make([]Score, 0, len(ids))
	for _, id := range ids {
		scores = append(scores, e.score(id, t, abbr, avg))
	}
	best := slices.MinFunc(scores, Score.Compare)

	e.logger.Debug("Round 1 pick",
		zap.String("date", roster.DateKey(t)),
		zap.String("shift", abbr),
		zap.Int("user_id", best.UserID),
		zap.Int("candidates", len(ids)),
		zap.Float64("avg_hours", avg))

	return best.UserID
}

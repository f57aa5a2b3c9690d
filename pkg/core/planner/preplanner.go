package planner

import (
	"slices"

	"go.uber.org/zap"
)

// PrePlan scans the last days of the month for scarce (date, shift) slots
// and fills them before the day-by-day loop runs. A slot is scarce when the
// employees passing the minimal availability filter do not exceed demand
// plus the buffer. Event days are tested against their base demand.
func (e *Engine) PrePlan() {
	days := e.snap.Month.Days()
	start := max(1, days-e.opts.CriticalLookaheadDays+1)
	for day := start; day <= days; day++ {
		e.prePlanDay(day)
	}
}

func (e *Engine) prePlanDay(day int) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Pre-planning failed, day treated as non-critical",
				zap.Int("day", day),
				zap.Any("panic", r))
		}
	}()

	t := e.snap.Month.Date(day)
	base := e.snap.MinStaffingForDate(t)
	rel := preplanRelaxation
	rel.respectWishes = e.cfg.RespectsWishes()

	for _, abbr := range e.cfg.ShiftsToPlan {
		demand := base[abbr]
		if demand <= 0 {
			continue
		}
		available := e.countMinimallyAvailable(t, abbr)
		if available > demand+e.opts.CriticalBuffer {
			continue
		}

		e.logger.Debug("Critical slot",
			zap.Int("day", day),
			zap.String("shift", abbr),
			zap.Int("demand", demand),
			zap.Int("available", available))

		for e.missing(t, abbr, demand) > 0 {
			ids := e.eligible(t, abbr, rel)
			if len(ids) == 0 {
				break
			}
			// Stable so equal hours keep roster order
			slices.SortStableFunc(ids, func(a, b int) int {
				return e.state.hoursOf(a).Cmp(e.state.hoursOf(b))
			})
			e.commit(ids[0], t, abbr, rel.name)
		}
	}
}

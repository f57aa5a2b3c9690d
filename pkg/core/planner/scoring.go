package planner

import (
	"cmp"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
)

// Score holds the partial scores of one candidate for one (day, shift).
// Lower is better for every component of the sort key.
type Score struct {
	UserID int
	Order  int

	Wish           int
	Avoid          float64
	Partner        int
	FutureConflict int
	MinHours       float64
	Fairness       float64
	Ratio          float64
	Isolation      float64
	SameShift      int
	Hours          decimal.Decimal
}

// Compare orders two scores by the round-1 key. Employees with a wish for
// the shift come first; ties fall back to roster order.
func (s Score) Compare(o Score) int {
	return cmp.Or(
		cmp.Compare(s.Wish, o.Wish),
		cmp.Compare(s.Avoid, o.Avoid),
		cmp.Compare(s.Partner, o.Partner),
		cmp.Compare(s.FutureConflict, o.FutureConflict),
		cmp.Compare(-s.MinHours, -o.MinHours),
		cmp.Compare(-s.Fairness, -o.Fairness),
		cmp.Compare(s.Ratio, o.Ratio),
		cmp.Compare(s.Isolation, o.Isolation),
		cmp.Compare(s.SameShift, o.SameShift),
		s.Hours.Cmp(o.Hours),
		cmp.Compare(s.Order, o.Order),
	)
}

// score computes every component for placing abbr on t for the user.
// avg is the mean current hours over the candidate set.
func (e *Engine) score(userID int, t time.Time, abbr string, avg float64) Score {
	cur := e.state.hoursOf(userID)
	shiftHours := cellHours(e.snap, abbr, t)

	s := Score{
		UserID:         userID,
		Order:          e.userOrder[userID],
		Wish:           1,
		Avoid:          e.avoidScore(userID, t, abbr),
		Partner:        e.partnerScore(userID, t, abbr),
		FutureConflict: e.futureConflictScore(userID, t, abbr),
		MinHours:       e.minHoursScore(userID, cur.Add(shiftHours).InexactFloat64()),
		Fairness:       e.fairnessScore(cur.InexactFloat64(), avg),
		Ratio:          e.ratioScore(userID, abbr),
		Isolation:      e.isolationScore(userID, t),
		SameShift:      1,
		Hours:          cur,
	}
	if e.wishedFor(userID, t, abbr) {
		s.Wish = 0
	}
	if e.previousShift(userID, t) == abbr {
		s.SameShift = 0
	}
	return s
}

// avoidScore adds the avoid penalty, weighted by priority, for every avoid
// partner already holding abbr on t
func (e *Engine) avoidScore(userID int, t time.Time, abbr string) float64 {
	total := 0.0
	for _, p := range e.cfg.AvoidPartners(userID) {
		if e.state.raw(p.UserID, t) == abbr {
			total += e.cfg.AvoidPartnerPenaltyScore / float64(p.Priority)
		}
	}
	return total
}

// partnerScore returns the best priority of a preferred partner already
// holding abbr on t
func (e *Engine) partnerScore(userID int, t time.Time, abbr string) int {
	for _, p := range e.cfg.PreferredPartners(userID) {
		if e.state.raw(p.UserID, t) == abbr {
			// sorted by priority, the first hit is the best
			return p.Priority
		}
	}
	return genconfig.DefaultPreferredPartnerNoneScore
}

// futureConflictScore counts the upcoming critical slots the user could
// still serve. Taking a shift now is cheaper for employees who are not
// needed to cover scarce days later on. A night shift additionally costs
// the user's availability for a critical day shift tomorrow.
func (e *Engine) futureConflictScore(userID int, t time.Time, abbr string) int {
	n := 0
	for i := 1; i <= e.opts.CriticalLookaheadDays; i++ {
		next := t.AddDate(0, 0, i)
		if !e.snap.Month.Contains(next) {
			break
		}
		for _, shift := range e.cfg.ShiftsToPlan {
			if e.slots.critical(next, shift) && e.minimallyAvailable(userID, next, shift) {
				n++
				if i == 1 && abbr == roster.AbbrNight && roster.IsDayShiftAfterNight(shift) {
					n++
				}
			}
		}
	}
	return n
}

// minHoursScore is positive when the user stays far below their personal
// minimum even after the shift
func (e *Engine) minHoursScore(userID int, hoursAfter float64) float64 {
	minHours := e.cfg.MinMonthlyHours(userID)
	if minHours <= 0 {
		return 0
	}
	if hoursAfter > minHours-e.cfg.MinHoursFairnessThreshold {
		return 0
	}
	return e.cfg.MinHoursScoreMultiplier * (minHours - hoursAfter)
}

// fairnessScore rewards employees below the mean and penalises those above
// it, once the distance exceeds the threshold
func (e *Engine) fairnessScore(current, avg float64) float64 {
	threshold := e.cfg.FairnessThresholdHours
	if threshold <= 0 {
		threshold = 1
	}
	diff := avg - current
	if math.Abs(diff) < threshold {
		return 0
	}
	return e.cfg.FairnessScoreMultiplier * diff / threshold
}

// ratioScore is the distance from the preferred share of day-side shifts
// after taking abbr
func (e *Engine) ratioScore(userID int, abbr string) float64 {
	r := *e.state.ratio[userID]
	switch {
	case roster.IsDayLike(abbr):
		r.Day++
	case abbr == roster.AbbrNight:
		r.Night++
	default:
		return 0
	}
	frac := float64(r.Day) / float64(r.Day+r.Night)
	return math.Abs(frac - e.cfg.RatioPreference(userID))
}

// isolationScore penalises a work day wedged between free days. F-W-F
// scores once; each further free day on either side (F-W-F-F, F-F-W-F)
// adds one more.
func (e *Engine) isolationScore(userID int, t time.Time) float64 {
	cls := e.snap.Classifier
	if !cls.IsFree(e.previousRawShift(userID, t)) || !cls.IsFree(e.nextRawShift(userID, t)) {
		return 0
	}
	score := 1.0
	if cls.IsFree(e.shiftAfterNextRawShift(userID, t)) {
		score++
	}
	if cls.IsFree(e.state.raw(userID, t.AddDate(0, 0, -2))) {
		score++
	}
	return score * e.cfg.IsolationScoreMultiplier
}

package planner

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
)

// relaxation describes which soft rules a placement pass enforces. Hard
// rules are always enforced.
type relaxation struct {
	name          string
	softRunCap    bool
	sameShiftCap  bool
	nightFreeDay  bool
	respectWishes bool
	strictAvoid   bool
}

// roundRelaxation returns the rule set of a placement round (1 = strict)
func roundRelaxation(round int, cfg *genconfig.Config) relaxation {
	switch {
	case round <= 1:
		return relaxation{
			name:          "round1",
			softRunCap:    true,
			sameShiftCap:  true,
			nightFreeDay:  true,
			respectWishes: cfg.RespectsWishes(),
		}
	case round == 2:
		return relaxation{name: "round2", softRunCap: true, sameShiftCap: true}
	case round == 3:
		return relaxation{name: "round3", softRunCap: !cfg.AvoidUnderstaffingHard, sameShiftCap: true}
	default:
		// Last resort: the consecutive-day cap falls back to the hard maximum
		return relaxation{name: fmt.Sprintf("round%d", round), sameShiftCap: true}
	}
}

// preplanRelaxation is the full hard filter of the pre-planner: the night
// free day pattern and priority-1 avoid partners are treated as hard too.
// Wishes are added per run when the respect level makes them binding.
var preplanRelaxation = relaxation{name: "preplan", sameShiftCap: true, nightFreeDay: true, strictAvoid: true}

// rule is a single veto over a (user, date, shift) placement
type rule struct {
	name  string
	allow func(e *Engine, userID int, t time.Time, abbr string) bool
}

var hardRules = []rule{
	{"available", func(e *Engine, id int, t time.Time, _ string) bool { return e.isAvailable(id, t) }},
	{"exclusion", func(e *Engine, id int, _ time.Time, abbr string) bool { return !e.cfg.IsExcluded(id, abbr) }},
	{"dog", func(e *Engine, id int, t time.Time, abbr string) bool { return !e.dogConflict(id, t, abbr) }},
	{"night_day", (*Engine).nightDayOK},
	{"max_hours", (*Engine).hoursOK},
	{"hard_max_run", func(e *Engine, id int, t time.Time, abbr string) bool {
		return e.runThrough(id, t, abbr) <= e.cfg.EffectiveHardMax(id)
	}},
	{"mandatory_rest", (*Engine).checkMandatoryRest},
}

var (
	softRunRule = rule{"soft_max_run", func(e *Engine, id int, t time.Time, abbr string) bool {
		return e.runThrough(id, t, abbr) <= e.cfg.SoftMaxConsecutiveShifts
	}}
	sameShiftRule = rule{"same_shift_run", func(e *Engine, id int, t time.Time, abbr string) bool {
		run := e.consecutiveSameShifts(id, t, abbr) + 1 + e.consecutiveSameShiftsAfter(id, t, abbr)
		return run <= e.cfg.MaxSameShift(id)
	}}
	nightFreeDayRule = rule{"night_free_day", (*Engine).nightFreeDayOK}
	wishRule         = rule{"wish", func(e *Engine, id int, t time.Time, abbr string) bool {
		return !e.wishBlocks(id, t, abbr)
	}}
	strictAvoidRule = rule{"avoid_priority1", func(e *Engine, id int, t time.Time, abbr string) bool {
		return !e.avoidPartnerOnShift(id, t, abbr, 1)
	}}
)

func (r relaxation) rules() []rule {
	rules := make([]rule, 0, len(hardRules)+5)
	rules = append(rules, hardRules...)
	if r.softRunCap {
		rules = append(rules, softRunRule)
	}
	if r.sameShiftCap {
		rules = append(rules, sameShiftRule)
	}
	if r.nightFreeDay {
		rules = append(rules, nightFreeDayRule)
	}
	if r.respectWishes {
		rules = append(rules, wishRule)
	}
	if r.strictAvoid {
		rules = append(rules, strictAvoidRule)
	}
	return rules
}

// eligible returns the users, in roster order, that pass every rule of rel
// for placing abbr on t
func (e *Engine) eligible(t time.Time, abbr string, rel relaxation) []int {
	rules := rel.rules()
	rejected := make([]int, len(rules))

	var ids []int
	for _, u := range e.snap.Users {
		ok := true
		for i, r := range rules {
			if !r.allow(e, u.ID, t, abbr) {
				rejected[i]++
				ok = false
				break
			}
		}
		if ok {
			ids = append(ids, u.ID)
		}
	}

	if ce := e.logger.Check(zap.DebugLevel, "Filtered candidates"); ce != nil {
		fields := []zap.Field{
			zap.String("date", t.Format("2006-01-02")),
			zap.String("shift", abbr),
			zap.String("pass", rel.name),
			zap.Int("eligible", len(ids)),
		}
		for i, r := range rules {
			if rejected[i] > 0 {
				fields = append(fields, zap.Int("rejected_"+r.name, rejected[i]))
			}
		}
		ce.Write(fields...)
	}

	return ids
}

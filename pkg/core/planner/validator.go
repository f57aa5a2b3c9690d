package planner

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
)

// Violation is a broken roster invariant found by ValidatePlan
type Violation struct {
	Check       string
	UserID      int
	Date        string
	Description string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: user %d on %s: %s", v.Check, v.UserID, v.Date, v.Description)
}

// planCheck validates one invariant over a finished plan
type planCheck struct {
	name string
	run  func(p *planView) []Violation
}

// planView is the read-only context shared by the checks
type planView struct {
	snap   *snapshot.Snapshot
	cfg    *genconfig.Config
	shifts LiveShifts
	start  time.Time
	end    time.Time
}

func (p *planView) raw(userID int, t time.Time) string {
	return p.shifts.Get(userID, roster.DateKey(t))
}

func (p *planView) hardWork(userID int, t time.Time) bool {
	return p.snap.Classifier.IsHardWork(p.raw(userID, t))
}

var planChecks = []planCheck{
	{"unique", checkUnique},
	{"locked", checkLocked},
	{"dog", checkDogSafety},
	{"night_day", checkNightDay},
	{"max_consecutive", checkMaxConsecutive},
	{"rest_days", checkRestDays},
	{"max_hours", checkMaxHours},
	{"exclusions", checkExclusions},
}

// ValidatePlan checks a finished plan against the roster invariants.
// An empty result means the plan is valid. Locked input cells that already
// break a rule are reported as well.
func ValidatePlan(snap *snapshot.Snapshot, shifts LiveShifts) []Violation {
	cfg := snap.Config
	if cfg == nil {
		cfg = genconfig.Defaults()
	}
	p := &planView{
		snap:   snap,
		cfg:    cfg,
		shifts: shifts,
		start:  snap.Month.PreviousMonthEnd(),
		end:    snap.Month.NextMonthStart(),
	}

	var violations []Violation
	for _, check := range planChecks {
		violations = append(violations, check.run(p)...)
	}
	return violations
}

func checkUnique(p *planView) []Violation {
	var out []Violation
	seen := make(map[string]bool, len(p.snap.Rows))
	for _, row := range p.snap.Rows {
		key := fmt.Sprintf("%d/%s", row.UserID, roster.DateKey(row.Date))
		if seen[key] {
			out = append(out, Violation{"unique", row.UserID, roster.DateKey(row.Date), "more than one stored assignment"})
		}
		seen[key] = true
	}
	return out
}

func checkLocked(p *planView) []Violation {
	var out []Violation
	for _, u := range p.snap.Users {
		for day := 1; day <= p.snap.Month.Days(); day++ {
			key := roster.DateKey(p.snap.Month.Date(day))
			want, locked := p.snap.Locked[u.ID][key]
			if !locked {
				continue
			}
			got, ok := p.shifts[u.ID][key]
			if !ok || got != want {
				out = append(out, Violation{"locked", u.ID, key, fmt.Sprintf("locked %q changed to %q", want, got)})
			}
		}
	}
	return out
}

func checkDogSafety(p *planView) []Violation {
	var out []Violation
	for day := 1; day <= p.snap.Month.Days(); day++ {
		t := p.snap.Month.Date(day)
		for _, u := range p.snap.Users {
			a := p.raw(u.ID, t)
			if !p.snap.Classifier.IsWork(a) {
				continue
			}
			for _, partner := range p.snap.DogPartners(u.ID) {
				if partner < u.ID {
					continue
				}
				b := p.raw(partner, t)
				if !p.snap.Classifier.IsWork(b) {
					continue
				}
				if a == b || p.snap.Times.Overlap(a, b) {
					out = append(out, Violation{"dog", u.ID, roster.DateKey(t),
						fmt.Sprintf("%s overlaps %s of user %d sharing dog %q", a, b, partner, u.DogName)})
				}
			}
		}
	}
	return out
}

func checkNightDay(p *planView) []Violation {
	var out []Violation
	for _, u := range p.snap.Users {
		for t := p.start.AddDate(0, 0, 1); !t.After(p.end); t = t.AddDate(0, 0, 1) {
			abbr := p.raw(u.ID, t)
			if p.raw(u.ID, t.AddDate(0, 0, -1)) == roster.AbbrNight && roster.IsDayShiftAfterNight(abbr) {
				out = append(out, Violation{"night_day", u.ID, roster.DateKey(t), abbr + " directly after N."})
			}
		}
	}
	return out
}

func checkMaxConsecutive(p *planView) []Violation {
	var out []Violation
	for _, u := range p.snap.Users {
		limit := p.cfg.EffectiveHardMax(u.ID)
		run := 0
		for t := p.start; !t.After(p.end); t = t.AddDate(0, 0, 1) {
			if !p.hardWork(u.ID, t) {
				run = 0
				continue
			}
			run++
			if run == limit+1 {
				out = append(out, Violation{"max_consecutive", u.ID, roster.DateKey(t),
					fmt.Sprintf("more than %d consecutive work days", limit)})
			}
		}
	}
	return out
}

func checkRestDays(p *planView) []Violation {
	var out []Violation
	hardMax := p.cfg.HardMaxConsecutiveShifts
	rest := p.cfg.MandatoryRestDays

	for _, u := range p.snap.Users {
		run := 0
		free := 0
		blockDone := false
		for t := p.start; !t.After(p.end); t = t.AddDate(0, 0, 1) {
			if !p.hardWork(u.ID, t) {
				if run >= hardMax {
					blockDone = true
				}
				if run > 0 {
					free = 0
				}
				run = 0
				free++
				continue
			}
			if blockDone && free < rest {
				out = append(out, Violation{"rest_days", u.ID, roster.DateKey(t),
					fmt.Sprintf("only %d free days after a block of %d or more", free, hardMax)})
			}
			blockDone = false
			run++
		}
	}
	return out
}

func checkMaxHours(p *planView) []Violation {
	var out []Violation
	for _, u := range p.snap.Users {
		hours := MonthlyHours(p.snap, p.shifts[u.ID])
		limit := decimal.NewFromFloat(p.cfg.EffectiveMaxHours(u.ID))
		if hours.GreaterThan(limit) {
			out = append(out, Violation{"max_hours", u.ID, p.snap.Month.String(),
				fmt.Sprintf("%s hours exceed the ceiling of %s", hours.String(), limit.String())})
		}
	}
	return out
}

func checkExclusions(p *planView) []Violation {
	var out []Violation
	for _, u := range p.snap.Users {
		for day := 1; day <= p.snap.Month.Days(); day++ {
			t := p.snap.Month.Date(day)
			abbr := p.raw(u.ID, t)
			if abbr != "" && p.cfg.IsExcluded(u.ID, abbr) {
				out = append(out, Violation{"exclusions", u.ID, roster.DateKey(t), abbr + " is excluded"})
			}
		}
	}
	return out
}

package planner

import (
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
)

// Defaults for the pre-planner
const (
	DefaultCriticalLookaheadDays = 3
	DefaultCriticalBuffer        = 1
)

// Options tune the engine outside the generator config document
type Options struct {
	// CriticalLookaheadDays is the number of trailing days scanned by the
	// pre-planner, and the horizon of the future-conflict score
	CriticalLookaheadDays int
	// CriticalBuffer is added to the demand when testing for scarcity
	CriticalBuffer int
}

func (o Options) withDefaults() Options {
	if o.CriticalLookaheadDays <= 0 {
		o.CriticalLookaheadDays = DefaultCriticalLookaheadDays
	}
	if o.CriticalBuffer < 0 {
		o.CriticalBuffer = DefaultCriticalBuffer
	}
	return o
}

// Shortfall is a (day, shift) that could not be fully staffed
type Shortfall struct {
	Date    time.Time
	Shift   string
	Missing int
}

// Placement is one assignment made by the engine
type Placement struct {
	UserID int
	Date   time.Time
	Shift  string
	// Pass names the placement pass: preplan, round1, round2, ...
	Pass string
}

// RunReport summarises a generation run
type RunReport struct {
	RunID      string
	Placements []Placement
	Shortfalls []Shortfall
	// Diff op counts, set once the plan was persisted (or previewed)
	Inserts int
	Updates int
	Deletes int
	Skipped int
	// Warnings collected while loading the snapshot
	Warnings []string
}

// PrePlanned returns the placements made by the pre-planner
func (r *RunReport) PrePlanned() []Placement {
	var out []Placement
	for _, p := range r.Placements {
		if p.Pass == preplanRelaxation.name {
			out = append(out, p)
		}
	}
	return out
}

// Engine places shifts for one month on top of a snapshot. It is
// single-threaded and owns its live state; create a new engine per run.
type Engine struct {
	snap   *snapshot.Snapshot
	cfg    *genconfig.Config
	opts   Options
	state  *liveState
	logger *zap.Logger
	log    LogFunc

	dogPartners map[int][]int
	userOrder   map[int]int
	windowStart time.Time
	windowEnd   time.Time
	slots       slotCache

	report *RunReport
}

// NewEngine prepares an engine for the snapshot. log may be nil.
func NewEngine(snap *snapshot.Snapshot, opts Options, logger *zap.Logger, log LogFunc) *Engine {
	cfg := snap.Config
	if cfg == nil {
		cfg = genconfig.Defaults()
	}

	e := &Engine{
		snap:        snap,
		cfg:         cfg,
		opts:        opts.withDefaults(),
		state:       newLiveState(snap),
		logger:      logger,
		log:         log,
		dogPartners: make(map[int][]int, len(snap.Users)),
		userOrder:   make(map[int]int, len(snap.Users)),
		windowStart: snap.Month.PreviousMonthEnd(),
		windowEnd:   snap.Month.NextMonthStart(),
		report:      &RunReport{Warnings: snap.Warnings},
	}
	for i, u := range snap.Users {
		e.userOrder[u.ID] = i
		e.dogPartners[u.ID] = snap.DogPartners(u.ID)
	}
	e.slots = e.scanSlots(e.demandForDate)

	return e
}

// Run executes the pre-planner and every day of the month
func (e *Engine) Run() *Result {
	e.PrePlan()
	for day := 1; day <= e.snap.Month.Days(); day++ {
		e.PlanDay(day)
	}
	return e.Result()
}

// demandForDate returns the required headcount per plannable shift. Event
// days keep their weekday or holiday demand; every employee already holding
// the event shift (QA or S) on t covers one day-side slot.
func (e *Engine) demandForDate(t time.Time) map[string]int {
	demand := e.snap.MinStaffingForDate(t)
	event := e.snap.EventShift(t)
	if event == "" {
		return demand
	}

	covered := 0
	key := roster.DateKey(t)
	for _, u := range e.snap.Users {
		if e.state.shifts.Get(u.ID, key) == event {
			covered++
		}
	}
	for _, abbr := range e.cfg.ShiftsToPlan {
		if covered == 0 {
			break
		}
		if !roster.IsDayLike(abbr) || demand[abbr] <= 0 {
			continue
		}
		n := min(covered, demand[abbr])
		demand[abbr] -= n
		covered -= n
	}
	return demand
}

// missing returns how many more employees abbr needs on t
func (e *Engine) missing(t time.Time, abbr string, needed int) int {
	return max(0, needed-len(e.state.assignedOn(t, abbr)))
}

func (e *Engine) commit(userID int, t time.Time, abbr, pass string) {
	e.state.assign(userID, t, abbr)
	e.report.Placements = append(e.report.Placements, Placement{
		UserID: userID,
		Date:   t,
		Shift:  abbr,
		Pass:   pass,
	})
	e.logger.Debug("Assigned shift",
		zap.Int("user_id", userID),
		zap.String("date", roster.DateKey(t)),
		zap.String("shift", abbr),
		zap.String("pass", pass),
		zap.String("hours", e.state.hoursOf(userID).String()))
}

func (e *Engine) emit(format string, args ...any) {
	if e.log != nil {
		e.log(fmt.Sprintf(format, args...), nil)
	}
}

// lowestHours picks the candidate with the fewest hours; ids are in roster
// order so ties keep the earlier employee
func (e *Engine) lowestHours(ids []int) int {
	best := ids[0]
	for _, id := range ids[1:] {
		if e.state.hoursOf(id).LessThan(e.state.hoursOf(best)) {
			best = id
		}
	}
	return best
}

// Result is the outcome of the placement passes
type Result struct {
	Shifts LiveShifts
	Hours  map[int]decimal.Decimal
	Report *RunReport
}

// Result returns a copy of the live plan, hours ledger and report
func (e *Engine) Result() *Result {
	return &Result{
		Shifts: e.state.shifts.Clone(),
		Hours:  maps.Clone(e.state.hours),
		Report: e.report,
	}
}

// Plan converts the current-month live shifts into typed cells
func (e *Engine) Plan() roster.Plan {
	return ToPlan(e.snap, e.state.shifts)
}

// ToPlan converts live shifts of the snapshot's month into a typed plan.
// Cells without a value are left out (Plan.Get returns Empty for them).
func ToPlan(snap *snapshot.Snapshot, shifts LiveShifts) roster.Plan {
	plan := make(roster.Plan, len(snap.Users))
	for _, u := range snap.Users {
		for day := 1; day <= snap.Month.Days(); day++ {
			key := roster.DateKey(snap.Month.Date(day))
			if abbr, ok := shifts[u.ID][key]; ok {
				plan.Set(u.ID, key, snap.Classifier.Cell(abbr))
			}
		}
	}
	return plan
}

// slotInfo is the static availability of one (date, shift)
type slotInfo struct {
	demand    int
	available int
	critical  bool
}

// slotCache maps date key -> shift -> availability
type slotCache map[string]map[string]slotInfo

func (c slotCache) critical(t time.Time, abbr string) bool {
	return c[roster.DateKey(t)][abbr].critical
}

// scanSlots probes every (date, plannable shift) of the month with the
// minimal availability filter
func (e *Engine) scanSlots(demandFn func(time.Time) map[string]int) slotCache {
	cache := make(slotCache, e.snap.Month.Days())
	for day := 1; day <= e.snap.Month.Days(); day++ {
		t := e.snap.Month.Date(day)
		demand := demandFn(t)
		slots := make(map[string]slotInfo, len(e.cfg.ShiftsToPlan))
		for _, abbr := range e.cfg.ShiftsToPlan {
			info := slotInfo{demand: demand[abbr]}
			if info.demand > 0 {
				info.available = e.countMinimallyAvailable(t, abbr)
				info.critical = info.available <= info.demand+e.opts.CriticalBuffer
			}
			slots[abbr] = info
		}
		cache[roster.DateKey(t)] = slots
	}
	return cache
}

func (e *Engine) countMinimallyAvailable(t time.Time, abbr string) int {
	n := 0
	for _, u := range e.snap.Users {
		if e.minimallyAvailable(u.ID, t, abbr) {
			n++
		}
	}
	return n
}

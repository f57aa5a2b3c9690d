package planner

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
)

// LiveShifts maps employee ID -> date key -> abbreviation. An absent key
// means nothing is stored; "" is a stored but empty (locked-empty) cell.
type LiveShifts map[int]map[string]string

// Get returns the abbreviation stored for a user on a date ("" if none)
func (ls LiveShifts) Get(userID int, dateKey string) string {
	return ls[userID][dateKey]
}

// Has reports whether any value (including "") is stored for the cell
func (ls LiveShifts) Has(userID int, dateKey string) bool {
	_, ok := ls[userID][dateKey]
	return ok
}

// Clone returns a deep copy
func (ls LiveShifts) Clone() LiveShifts {
	out := make(LiveShifts, len(ls))
	for id, days := range ls {
		out[id] = maps.Clone(days)
	}
	return out
}

// RatioCounter tracks the day-side (T./6) and night (N.) assignments of a user
type RatioCounter struct {
	Day   int
	Night int
}

// liveState is the mutable plan the engine builds on top of a snapshot.
// Only the engine touches it while a run is in progress.
type liveState struct {
	snap   *snapshot.Snapshot
	shifts LiveShifts
	hours  map[int]decimal.Decimal
	counts map[int]map[string]int
	ratio  map[int]*RatioCounter
}

func newLiveState(snap *snapshot.Snapshot) *liveState {
	st := &liveState{
		snap:   snap,
		shifts: make(LiveShifts, len(snap.Users)),
		hours:  make(map[int]decimal.Decimal, len(snap.Users)),
		counts: make(map[int]map[string]int, len(snap.Users)),
		ratio:  make(map[int]*RatioCounter, len(snap.Users)),
	}

	for _, u := range snap.Users {
		days := maps.Clone(snap.Existing[u.ID])
		if days == nil {
			days = make(map[string]string)
		}
		st.shifts[u.ID] = days
		st.counts[u.ID] = make(map[string]int)
		st.ratio[u.ID] = &RatioCounter{}
		st.hours[u.ID] = MonthlyHours(snap, days)

		for day := 1; day <= snap.Month.Days(); day++ {
			abbr, ok := days[roster.DateKey(snap.Month.Date(day))]
			if !ok || !snap.Classifier.IsWork(abbr) {
				continue
			}
			st.count(u.ID, abbr)
		}
	}

	return st
}

// raw returns whatever is stored for the cell, "" if nothing
func (st *liveState) raw(userID int, t time.Time) string {
	return st.shifts[userID][roster.DateKey(t)]
}

// has reports whether the cell holds any value
func (st *liveState) has(userID int, t time.Time) bool {
	return st.shifts.Has(userID, roster.DateKey(t))
}

// workShift returns the stored abbreviation if it is a work shift, else ""
func (st *liveState) workShift(userID int, t time.Time) string {
	abbr := st.raw(userID, t)
	if st.snap.Classifier.IsFree(abbr) {
		return ""
	}
	return abbr
}

func (st *liveState) isHardWork(userID int, t time.Time) bool {
	return st.snap.Classifier.IsHardWork(st.raw(userID, t))
}

func (st *liveState) hoursOf(userID int) decimal.Decimal {
	return st.hours[userID]
}

// assign commits abbr for the user on t and updates every counter
func (st *liveState) assign(userID int, t time.Time, abbr string) {
	st.shifts[userID][roster.DateKey(t)] = abbr
	st.hours[userID] = st.hours[userID].Add(cellHours(st.snap, abbr, t))
	st.count(userID, abbr)
}

func (st *liveState) count(userID int, abbr string) {
	st.counts[userID][abbr]++
	switch {
	case roster.IsDayLike(abbr):
		st.ratio[userID].Day++
	case abbr == roster.AbbrNight:
		st.ratio[userID].Night++
	}
}

// assignedOn returns the users holding abbr on t, in roster order
func (st *liveState) assignedOn(t time.Time, abbr string) []int {
	var ids []int
	for _, u := range st.snap.Users {
		if st.raw(u.ID, t) == abbr {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

package planner

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
)

// Rule helpers operate on the live plan including the previous-month tail
// and the next-month head. None of them mutate state.

func (e *Engine) inWindow(t time.Time) bool {
	return !t.Before(e.windowStart) && !t.After(e.windowEnd)
}

// previousShift returns the work shift held on the day before t, or ""
func (e *Engine) previousShift(userID int, t time.Time) string {
	return e.state.workShift(userID, t.AddDate(0, 0, -1))
}

func (e *Engine) previousRawShift(userID int, t time.Time) string {
	return e.state.raw(userID, t.AddDate(0, 0, -1))
}

func (e *Engine) nextRawShift(userID int, t time.Time) string {
	return e.state.raw(userID, t.AddDate(0, 0, 1))
}

func (e *Engine) shiftAfterNextRawShift(userID int, t time.Time) string {
	return e.state.raw(userID, t.AddDate(0, 0, 2))
}

// consecutiveShifts counts the hard-work days directly before t
func (e *Engine) consecutiveShifts(userID int, t time.Time) int {
	n := 0
	for cur := t.AddDate(0, 0, -1); e.inWindow(cur) && e.state.isHardWork(userID, cur); cur = cur.AddDate(0, 0, -1) {
		n++
	}
	return n
}

// consecutiveShiftsAfter counts the hard-work days directly after t
func (e *Engine) consecutiveShiftsAfter(userID int, t time.Time) int {
	n := 0
	for cur := t.AddDate(0, 0, 1); e.inWindow(cur) && e.state.isHardWork(userID, cur); cur = cur.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// consecutiveSameShifts counts the days directly before t holding target
func (e *Engine) consecutiveSameShifts(userID int, t time.Time, target string) int {
	n := 0
	for cur := t.AddDate(0, 0, -1); e.inWindow(cur) && e.state.raw(userID, cur) == target; cur = cur.AddDate(0, 0, -1) {
		n++
	}
	return n
}

func (e *Engine) consecutiveSameShiftsAfter(userID int, t time.Time, target string) int {
	n := 0
	for cur := t.AddDate(0, 0, 1); e.inWindow(cur) && e.state.raw(userID, cur) == target; cur = cur.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// runThrough returns the length of the hard-work run containing t if abbr
// were placed on t
func (e *Engine) runThrough(userID int, t time.Time, abbr string) int {
	if !e.snap.Classifier.IsHardWork(abbr) {
		return 0
	}
	return e.consecutiveShifts(userID, t) + 1 + e.consecutiveShiftsAfter(userID, t)
}

// checkMandatoryRest walks back from t-1 over free days. When it reaches a
// work block of at least the hard maximum, the free run must cover the
// mandatory rest days. If placing abbr on t completes such a block, the
// following known days must stay free for the same number of days.
func (e *Engine) checkMandatoryRest(userID int, t time.Time, abbr string) bool {
	hardMax := e.cfg.HardMaxConsecutiveShifts
	rest := e.cfg.MandatoryRestDays

	free := 0
	for cur := t.AddDate(0, 0, -1); e.inWindow(cur); cur = cur.AddDate(0, 0, -1) {
		if !e.state.isHardWork(userID, cur) {
			free++
			continue
		}
		if free > 0 {
			block := 1 + e.consecutiveShifts(userID, cur)
			if block >= hardMax && free < rest {
				return false
			}
		}
		break
	}

	if !e.snap.Classifier.IsHardWork(abbr) {
		return true
	}
	after := e.consecutiveShiftsAfter(userID, t)
	if e.consecutiveShifts(userID, t)+1+after < hardMax {
		return true
	}
	end := t.AddDate(0, 0, after)
	for i := 1; i <= rest; i++ {
		cur := end.AddDate(0, 0, i)
		if !e.inWindow(cur) {
			break
		}
		if e.state.isHardWork(userID, cur) {
			return false
		}
	}
	return true
}

// checkTimeOverlap reports whether two shifts on the same day overlap
func (e *Engine) checkTimeOverlap(a, b string) bool {
	return e.snap.Times.Overlap(a, b)
}

// nightDayOK rejects N. followed by a day shift, in both directions
func (e *Engine) nightDayOK(userID int, t time.Time, abbr string) bool {
	if roster.IsDayShiftAfterNight(abbr) && e.previousRawShift(userID, t) == roster.AbbrNight {
		return false
	}
	if abbr == roster.AbbrNight && roster.IsDayShiftAfterNight(e.nextRawShift(userID, t)) {
		return false
	}
	return true
}

// nightFreeDayOK rejects the N-free-T pattern: a day shift two days after a
// night with only one free day in between (and the mirrored case)
func (e *Engine) nightFreeDayOK(userID int, t time.Time, abbr string) bool {
	cls := e.snap.Classifier
	if roster.IsDayLike(abbr) {
		if cls.IsFree(e.previousRawShift(userID, t)) && e.state.raw(userID, t.AddDate(0, 0, -2)) == roster.AbbrNight {
			return false
		}
	}
	if abbr == roster.AbbrNight {
		if cls.IsFree(e.nextRawShift(userID, t)) && roster.IsDayLike(e.shiftAfterNextRawShift(userID, t)) {
			return false
		}
	}
	return true
}

// dogConflict reports whether a user sharing the dog already holds the same
// shift or an overlapping one on t
func (e *Engine) dogConflict(userID int, t time.Time, abbr string) bool {
	for _, partner := range e.dogPartners[userID] {
		other := e.state.workShift(partner, t)
		if other == "" {
			continue
		}
		if other == abbr || e.checkTimeOverlap(other, abbr) {
			return true
		}
	}
	return false
}

// hoursOK checks the monthly ceiling including the new shift
func (e *Engine) hoursOK(userID int, t time.Time, abbr string) bool {
	after := e.state.hoursOf(userID).Add(cellHours(e.snap, abbr, t))
	return after.LessThanOrEqual(decimal.NewFromFloat(e.cfg.EffectiveMaxHours(userID)))
}

// isAvailable covers vacations, stored cells (locked or already planned)
// and the activation window
func (e *Engine) isAvailable(userID int, t time.Time) bool {
	key := roster.DateKey(t)
	if e.snap.HasVacation(userID, key) || e.snap.IsLocked(userID, key) {
		return false
	}
	if e.state.has(userID, t) {
		return false
	}
	return e.snap.IsActiveOn(userID, t)
}

// wishBlocks reports whether a pending wish keeps the user off abbr on t
func (e *Engine) wishBlocks(userID int, t time.Time, abbr string) bool {
	wish, ok := e.snap.Wish(userID, roster.DateKey(t))
	if !ok {
		return false
	}
	return wish.IsWholeDay() || wish.RequestedAbbr != abbr
}

// wishedFor reports whether the user asked for exactly abbr on t
func (e *Engine) wishedFor(userID int, t time.Time, abbr string) bool {
	wish, ok := e.snap.Wish(userID, roster.DateKey(t))
	return ok && !wish.IsWholeDay() && wish.RequestedAbbr == abbr
}

// avoidPartnerOnShift reports whether an avoid partner with priority at or
// below maxPriority already holds abbr on t
func (e *Engine) avoidPartnerOnShift(userID int, t time.Time, abbr string, maxPriority int) bool {
	for _, p := range e.cfg.AvoidPartners(userID) {
		if p.Priority > maxPriority {
			break
		}
		if e.state.raw(p.UserID, t) == abbr {
			return true
		}
	}
	return false
}

// minimallyAvailable is the cheap availability probe used to find critical
// slots: no vacation, no blocking wish, no exclusion, nothing locked
func (e *Engine) minimallyAvailable(userID int, t time.Time, abbr string) bool {
	key := roster.DateKey(t)
	if e.snap.HasVacation(userID, key) || e.snap.IsLocked(userID, key) {
		return false
	}
	if e.wishBlocks(userID, t, abbr) {
		return false
	}
	if e.cfg.IsExcluded(userID, abbr) {
		return false
	}
	return e.snap.IsActiveOn(userID, t)
}

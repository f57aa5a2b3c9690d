// Package snapshot loads everything the planner needs for one target month
// into a single read-only structure.
package snapshot

import (
	"maps"
	"strings"
	"time"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// ShiftTypeMeta is the plain-record copy of a catalogue entry
type ShiftTypeMeta struct {
	ID              int
	Abbreviation    string
	Name            string
	Color           string
	Hours           float64
	SpilloverHours  float64
	IsWorkShift     bool
	StartTime       string
	EndTime         string
	MinStaffWeekday [7]int
	MinStaffHoliday int
}

// WishEntry is a pending wish for one (user, date)
type WishEntry struct {
	Status string
	// RequestedAbbr is empty for a whole-day wish-free
	RequestedAbbr string
}

// IsWholeDay reports whether the wish asks for the whole day off
func (w WishEntry) IsWholeDay() bool {
	return w.RequestedAbbr == "" || w.RequestedAbbr == roster.AbbrWishFree
}

// Snapshot is the immutable planning input for one (month, variant).
// The planner must not mutate any of its maps.
type Snapshot struct {
	Month     roster.Month
	VariantID *int

	Users     []db.User
	UsersByID map[int]*db.User

	ShiftTypes     map[string]ShiftTypeMeta // by abbreviation
	ShiftTypeAbbrs map[int]string           // id -> abbreviation
	Times          *roster.ShiftTimes
	Classifier     *roster.Classifier

	// Existing holds the previous-month tail, the current month and the
	// next-month head: user -> date key -> abbreviation
	Existing map[int]map[string]string
	// Locked holds the current-month cells present at load time. Every key
	// in here is immovable, including locked-but-empty cells ("").
	Locked map[int]map[string]string
	// LockedFlags marks rows whose is_locked flag was set
	LockedFlags map[int]map[string]bool
	// Rows are the raw current-month rows for the requested variant
	Rows []db.ShiftAssignment

	Holidays     map[string]bool
	SpecialDates map[string]string

	Wishes    map[int]map[string]WishEntry
	Vacations map[int]map[string]string

	staffWeekday map[int]map[string]int
	staffHoliday map[string]int

	Config *genconfig.Config
	// ConfigError is set when the stored generator config could not be used
	// and the defaults were applied instead
	ConfigError error

	// Warnings collected while loading (data errors that were skipped)
	Warnings []string
}

// MinStaffingForDate returns the required headcount per abbreviation for a
// date: the holiday map on holidays, the weekday map otherwise. The result
// is a fresh copy and may be modified by the caller.
func (s *Snapshot) MinStaffingForDate(t time.Time) map[string]int {
	if s.Holidays[roster.DateKey(t)] {
		return maps.Clone(s.staffHoliday)
	}
	weekday := s.staffWeekday[roster.WeekdayIndex(t)]
	if weekday == nil {
		return map[string]int{}
	}
	return maps.Clone(weekday)
}

// ExistingShift returns the stored abbreviation for any loaded date
func (s *Snapshot) ExistingShift(userID int, dateKey string) (string, bool) {
	days, ok := s.Existing[userID]
	if !ok {
		return "", false
	}
	abbr, ok := days[dateKey]
	return abbr, ok
}

// IsLocked reports whether the cell was present in the current month at load time
func (s *Snapshot) IsLocked(userID int, dateKey string) bool {
	_, ok := s.Locked[userID][dateKey]
	return ok
}

// HasVacation reports whether the user has an approved vacation on the date
func (s *Snapshot) HasVacation(userID int, dateKey string) bool {
	_, ok := s.Vacations[userID][dateKey]
	return ok
}

// Wish returns the pending wish of a user on a date
func (s *Snapshot) Wish(userID int, dateKey string) (WishEntry, bool) {
	w, ok := s.Wishes[userID][dateKey]
	return w, ok
}

// Hours returns the worked hours of an abbreviation (0 for free indicators
// and unknown abbreviations)
func (s *Snapshot) Hours(abbr string) float64 {
	if s.Classifier.IsFree(abbr) {
		return 0
	}
	return s.ShiftTypes[abbr].Hours
}

// Spillover returns the hours of abbr that belong to the following day
func (s *Snapshot) Spillover(abbr string) float64 {
	if s.Classifier.IsFree(abbr) {
		return 0
	}
	return s.ShiftTypes[abbr].SpilloverHours
}

// EventShift returns the non-plannable event abbreviation of a special date
// ("QA" for training, "S" for shooting) or "" if there is none
func (s *Snapshot) EventShift(t time.Time) string {
	switch s.SpecialDates[roster.DateKey(t)] {
	case db.EventTraining:
		return roster.AbbrTraining
	case db.EventShooting:
		return roster.AbbrEvent
	}
	return ""
}

// IsActiveOn reports whether the user may work on the date, honouring
// activation and deactivation dates that fall inside the month
func (s *Snapshot) IsActiveOn(userID int, t time.Time) bool {
	u, ok := s.UsersByID[userID]
	if !ok {
		return false
	}
	if u.ActivationDate != nil && t.Before(roster.TruncateDay(*u.ActivationDate)) {
		return false
	}
	if u.DeactivationDate != nil && !t.Before(roster.TruncateDay(*u.DeactivationDate)) {
		return false
	}
	return true
}

// DogPartners returns the other loaded users sharing the duty dog of userID
func (s *Snapshot) DogPartners(userID int) []int {
	u, ok := s.UsersByID[userID]
	if !ok || strings.TrimSpace(u.DogName) == "" {
		return nil
	}
	var partners []int
	for _, other := range s.Users {
		if other.ID != userID && sameDog(other.DogName, u.DogName) {
			partners = append(partners, other.ID)
		}
	}
	return partners
}

func sameDog(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && a == b
}

package roster

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Interval is a half-open [Start, End) minute range. Night shifts that
// wrap past midnight have End > 1440.
type Interval struct {
	Start int
	End   int
}

// ShiftTimes caches the minute interval of every timed work shift
type ShiftTimes struct {
	intervals  map[string]Interval
	classifier *Classifier
}

// TimedShift is the input needed to populate the cache
type TimedShift struct {
	Abbreviation string
	StartTime    string
	EndTime      string
	IsWorkShift  bool
}

// NewShiftTimes parses the HH:MM times of all work shifts. Shifts without
// both times, non-work shifts and free indicators are left out. Unparseable
// times are returned as errors alongside the partially filled cache.
func NewShiftTimes(shifts []TimedShift, classifier *Classifier) (*ShiftTimes, []error) {
	st := &ShiftTimes{
		intervals:  make(map[string]Interval),
		classifier: classifier,
	}

	var errs []error
	for _, shift := range shifts {
		if !shift.IsWorkShift || classifier.IsFree(shift.Abbreviation) {
			continue
		}
		if shift.StartTime == "" || shift.EndTime == "" {
			continue
		}

		start, err := parseClock(shift.StartTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("shift %q start time: %w", shift.Abbreviation, err))
			continue
		}
		end, err := parseClock(shift.EndTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("shift %q end time: %w", shift.Abbreviation, err))
			continue
		}
		if end <= start {
			end += minutesPerDay
		}
		st.intervals[shift.Abbreviation] = Interval{Start: start, End: end}
	}

	return st, errs
}

// Interval returns the cached interval for abbr
func (st *ShiftTimes) Interval(abbr string) (Interval, bool) {
	iv, ok := st.intervals[abbr]
	return iv, ok
}

// Overlap reports whether two shifts on the same day overlap in time.
// Free indicators and shifts without times never overlap.
func (st *ShiftTimes) Overlap(a, b string) bool {
	if st.classifier.IsFree(a) || st.classifier.IsFree(b) {
		return false
	}
	ia, ok := st.intervals[a]
	if !ok {
		return false
	}
	ib, ok := st.intervals[b]
	if !ok {
		return false
	}
	return ia.Start < ib.End && ib.Start < ia.End
}

// parseClock converts "HH:MM" (or "HH:MM:SS") into minutes after midnight
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

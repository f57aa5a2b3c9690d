package roster

import (
	"fmt"
	"time"
)

// DateLayout is the key format used for dates throughout the planner
const DateLayout = "2006-01-02"

// DateKey formats a date as a plan key
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a plan key back into a UTC date
func ParseDateKey(key string) (time.Time, error) {
	return time.Parse(DateLayout, key)
}

// Month identifies a target planning month
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates and creates a Month
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 1900 || year > 9999 {
		return Month{}, fmt.Errorf("year out of range: %d", year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// FirstDay returns the first day of the month (UTC midnight)
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last day of the month
func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

// Days returns the number of days in the month
func (m Month) Days() int {
	return m.LastDay().Day()
}

// Date returns the given day of the month
func (m Month) Date(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

// PreviousMonthEnd returns the last day of the previous month
func (m Month) PreviousMonthEnd() time.Time {
	return m.FirstDay().AddDate(0, 0, -1)
}

// NextMonthStart returns the first day of the next month
func (m Month) NextMonthStart() time.Time {
	return m.FirstDay().AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the month
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// IsLastDay reports whether t is the last day of the month
func (m Month) IsLastDay(t time.Time) bool {
	return m.Contains(t) && t.Day() == m.Days()
}

// WeekdayIndex returns 0 for Monday through 6 for Sunday
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// TruncateDay drops the time-of-day part and normalises to UTC
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

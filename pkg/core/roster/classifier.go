package roster

import "slices"

// Classifier answers "is this abbreviation free / hard work" questions
type Classifier struct {
	free     map[string]bool
	hardWork map[string]bool
}

// NewClassifier creates a classifier. Nil slices fall back to the defaults.
func NewClassifier(freeIndicators, hardWorkShifts []string) *Classifier {
	if freeIndicators == nil {
		freeIndicators = DefaultFreeIndicators
	}
	if hardWorkShifts == nil {
		hardWorkShifts = DefaultHardWorkShifts
	}

	c := &Classifier{
		free:     make(map[string]bool, len(freeIndicators)+1),
		hardWork: make(map[string]bool, len(hardWorkShifts)),
	}
	// The empty string is always free
	c.free[""] = true
	for _, abbr := range freeIndicators {
		c.free[abbr] = true
	}
	for _, abbr := range hardWorkShifts {
		c.hardWork[abbr] = true
	}
	return c
}

// IsFree returns true if the abbreviation means "not working"
func (c *Classifier) IsFree(abbr string) bool {
	return c.free[abbr]
}

// IsWork returns true for any abbreviation that is not a free indicator
func (c *Classifier) IsWork(abbr string) bool {
	return !c.free[abbr]
}

// IsHardWork returns true if the abbreviation counts towards consecutive work runs
func (c *Classifier) IsHardWork(abbr string) bool {
	return c.hardWork[abbr]
}

// Cell converts a stored abbreviation into a typed cell
func (c *Classifier) Cell(abbr string) Cell {
	switch {
	case abbr == "":
		return Empty()
	case c.IsFree(abbr):
		return FreeCell(abbr)
	default:
		return WorkCell(abbr)
	}
}

// IsDayShiftAfterNight returns true if abbr must not follow a night shift
func IsDayShiftAfterNight(abbr string) bool {
	return slices.Contains(DayShiftsAfterNight, abbr)
}

// IsDayLike returns true for the shifts counted on the "day" side of the T/N ratio
func IsDayLike(abbr string) bool {
	return abbr == AbbrDay || abbr == AbbrEarly
}

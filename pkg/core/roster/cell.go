package roster

// Well-known shift abbreviations
const (
	AbbrDay      = "T."
	AbbrEarly    = "6"
	AbbrNight    = "N."
	Abbr24       = "24"
	AbbrTraining = "QA"
	AbbrEvent    = "S"

	AbbrFree     = "FREI"
	AbbrVacation = "U"
	AbbrAbsence  = "X"
	AbbrEU       = "EU"
	AbbrWishFree = "WF"
	AbbrSick     = "K"
)

// DefaultShiftsToPlan is the order in which plannable shifts are placed when
// the generator config does not name any
var DefaultShiftsToPlan = []string{AbbrEarly, AbbrDay, AbbrNight}

// DefaultFreeIndicators are abbreviations that mean "not working today"
var DefaultFreeIndicators = []string{"", AbbrFree, AbbrVacation, AbbrAbsence, AbbrEU, AbbrWishFree, AbbrSick}

// DefaultHardWorkShifts count towards consecutive-work-day runs
var DefaultHardWorkShifts = []string{AbbrDay, AbbrNight, AbbrEarly, Abbr24, AbbrTraining, AbbrEvent}

// DayShiftsAfterNight may never follow a night shift on the next calendar day
var DayShiftsAfterNight = []string{AbbrDay, AbbrEarly, AbbrTraining, AbbrEvent}

// CellKind distinguishes the three states a roster cell can be in
type CellKind int

const (
	// Unassigned means nothing is stored for the cell
	Unassigned CellKind = iota
	// Free is an explicit free marker (FREI, U, WF, K, ...)
	Free
	// Work is a working shift
	Work
)

func (k CellKind) String() string {
	switch k {
	case Free:
		return "free"
	case Work:
		return "work"
	default:
		return "unassigned"
	}
}

// Cell is the content of one (employee, date) slot of a plan.
// Only Unassigned cells produce deletes when persisted; explicit free
// markers are written like any other shift type.
type Cell struct {
	Kind CellKind
	Abbr string
}

// Empty returns an unassigned cell
func Empty() Cell {
	return Cell{Kind: Unassigned}
}

// FreeCell returns a cell holding an explicit free marker
func FreeCell(abbr string) Cell {
	return Cell{Kind: Free, Abbr: abbr}
}

// WorkCell returns a cell holding a working shift
func WorkCell(abbr string) Cell {
	return Cell{Kind: Work, Abbr: abbr}
}

// IsWork reports whether the cell holds a working shift
func (c Cell) IsWork() bool {
	return c.Kind == Work
}

// IsEmpty reports whether nothing is stored for the cell
func (c Cell) IsEmpty() bool {
	return c.Kind == Unassigned
}

// Plan maps employee ID -> date key (2006-01-02) -> cell
type Plan map[int]map[string]Cell

// Get returns the cell for the given employee and date key
func (p Plan) Get(userID int, dateKey string) Cell {
	if days, ok := p[userID]; ok {
		if cell, ok := days[dateKey]; ok {
			return cell
		}
	}
	return Empty()
}

// Set stores a cell, creating the employee row if necessary
func (p Plan) Set(userID int, dateKey string, cell Cell) {
	days, ok := p[userID]
	if !ok {
		days = make(map[string]Cell)
		p[userID] = days
	}
	days[dateKey] = cell
}

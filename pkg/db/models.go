package db

import "time"

// Calendar event types
const (
	EventHoliday  = "holiday"
	EventTraining = "training"
	EventShooting = "shooting"
	EventDPO      = "dpo"
)

// Wish statuses
const (
	WishStatusOpen = "offen"
)

// Vacation statuses that count as approved
const (
	VacationApproved  = "Approved"
	VacationGenehmigt = "Genehmigt"
)

// User represents an employee record
type User struct {
	ID               int
	FirstName        string
	LastName         string
	DogName          string // empty if the employee has no duty dog
	IsVisible        bool
	SortOrder        int
	ActivationDate   *time.Time
	DeactivationDate *time.Time
}

// DisplayName returns "First Last"
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ShiftType represents an entry of the shift catalogue
type ShiftType struct {
	ID             int
	Abbreviation   string
	Name           string
	Color          string
	Hours          float64
	SpilloverHours float64
	IsWorkShift    bool
	StartTime      string // HH:MM, empty if untimed
	EndTime        string // HH:MM, empty if untimed

	// MinStaffWeekday holds the minimum headcount Monday (0) through Sunday (6)
	MinStaffWeekday [7]int
	MinStaffHoliday int
}

// ShiftAssignment represents a stored roster cell.
// ShiftTypeID is nil for locked-but-empty cells; VariantID is nil for the main plan.
type ShiftAssignment struct {
	ID          int64
	UserID      int
	Date        time.Time
	ShiftTypeID *int
	IsLocked    bool
	VariantID   *int
}

// CalendarEvent annotates a date (holiday, training, shooting, dpo)
type CalendarEvent struct {
	Date time.Time
	Type string
}

// Wish represents a shift request or wish-free request.
// RequestedAbbr is the structured column; older rows only carry the
// request inside Message ("Anfrage für: T.").
type Wish struct {
	ID            int64
	SenderID      int
	TargetUserID  int
	Date          time.Time
	Message       string
	RequestedAbbr *string
	Status        string
}

// VacationRequest represents an approved absence range (inclusive)
type VacationRequest struct {
	ID        int64
	UserID    int
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// IsApproved reports whether the request status counts as approved
func (v VacationRequest) IsApproved() bool {
	return v.Status == VacationApproved || v.Status == VacationGenehmigt
}

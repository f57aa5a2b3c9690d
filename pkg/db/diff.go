package db

import (
	"errors"
	"time"
)

var (
	// ErrUnknownShiftType is returned when an abbreviation has no catalogue entry
	ErrUnknownShiftType = errors.New("unknown shift type")

	// ErrLockedCell is returned when a write would modify a locked cell
	ErrLockedCell = errors.New("cell is locked")
)

// ShiftInsert creates a new assignment
type ShiftInsert struct {
	UserID      int
	Date        time.Time
	ShiftTypeID int
}

// ShiftUpdate changes the shift type of an existing assignment
type ShiftUpdate struct {
	ID          int64
	UserID      int
	Date        time.Time
	ShiftTypeID int
}

// ShiftDelete removes an existing assignment
type ShiftDelete struct {
	ID     int64
	UserID int
	Date   time.Time
}

// ShiftDiff is the net delta between a plan and the stored rows of one
// (month, variant)
type ShiftDiff struct {
	VariantID *int
	Inserts   []ShiftInsert
	Updates   []ShiftUpdate
	Deletes   []ShiftDelete
}

// OpCount returns the total number of write operations
func (d ShiftDiff) OpCount() int {
	return len(d.Inserts) + len(d.Updates) + len(d.Deletes)
}

// IsEmpty returns true if the diff performs no writes
func (d ShiftDiff) IsEmpty() bool {
	return d.OpCount() == 0
}

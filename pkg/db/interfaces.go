package db

import (
	"context"
	"time"
)

// DateRange is a half-open [From, To) date range
type DateRange struct {
	From time.Time
	To   time.Time
}

// SnapshotSource defines the read operations the planner needs to build a
// planning snapshot for one month
type SnapshotSource interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListShiftTypes(ctx context.Context) ([]ShiftType, error)
	// ListShifts returns assignments in the range for the given variant
	// (nil selects the main plan)
	ListShifts(ctx context.Context, r DateRange, variantID *int) ([]ShiftAssignment, error)
	ListCalendarEvents(ctx context.Context, r DateRange) ([]CalendarEvent, error)
	ListOpenWishes(ctx context.Context, r DateRange) ([]Wish, error)
	ListApprovedVacations(ctx context.Context, r DateRange) ([]VacationRequest, error)
	// ReadConfig returns the raw value stored under key, or nil if absent
	ReadConfig(ctx context.Context, key string) ([]byte, error)
}

// DiffApplier writes a shift diff in a single transaction
type DiffApplier interface {
	ApplyShiftDiff(ctx context.Context, diff ShiftDiff) error
}

// ShiftReader is the subset of SnapshotSource needed to compute a diff
type ShiftReader interface {
	ListShifts(ctx context.Context, r DateRange, variantID *int) ([]ShiftAssignment, error)
}

// Database defines all database operations used by the roster generator.
// Both the postgres.DB and sqlite.Store implement this interface.
type Database interface {
	SnapshotSource
	DiffApplier
	WriteConfig(ctx context.Context, key string, value []byte) error
	Close() error
}

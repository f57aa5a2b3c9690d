// Package diff computes and applies the net delta between a planned month
// and the rows stored for the same (month, variant).
package diff

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// Input describes the plan to persist
type Input struct {
	Month     roster.Month
	VariantID *int
	// UserIDs are the employees whose cells are compared; rows of other
	// employees are never touched
	UserIDs []int
	Plan    roster.Plan
	// TypeIDs maps an abbreviation to its shift type id
	TypeIDs map[string]int
	// Locked holds the cells present at load time (user -> date key -> abbr)
	Locked map[int]map[string]string
}

// Skip is a cell the diff refused to write
type Skip struct {
	UserID  int
	DateKey string
	Abbr    string
	Err     error
}

// Result is the computed diff plus the skipped cells
type Result struct {
	Diff    db.ShiftDiff
	Skipped []Skip
}

type cellKey struct {
	userID  int
	dateKey string
}

// Compute compares the plan against the stored rows. Cells holding a shift
// or a free marker become inserts or updates, unassigned cells with an
// unlocked row become deletes. Locked cells are never changed.
func Compute(in Input, rows []db.ShiftAssignment, logger *zap.Logger) Result {
	index := make(map[cellKey]db.ShiftAssignment, len(rows))
	for _, row := range rows {
		index[cellKey{row.UserID, roster.DateKey(row.Date)}] = row
	}

	res := Result{Diff: db.ShiftDiff{VariantID: in.VariantID}}
	skip := func(userID int, key, abbr string, err error) {
		res.Skipped = append(res.Skipped, Skip{UserID: userID, DateKey: key, Abbr: abbr, Err: err})
		if errors.Is(err, db.ErrUnknownShiftType) {
			logger.Error("Cannot persist cell", zap.Int("user_id", userID), zap.String("date", key),
				zap.String("shift", abbr), zap.Error(err))
			return
		}
		logger.Warn("Cannot persist cell", zap.Int("user_id", userID), zap.String("date", key),
			zap.String("shift", abbr), zap.Error(err))
	}

	userIDs := slices.Clone(in.UserIDs)
	slices.Sort(userIDs)

	for _, userID := range userIDs {
		for day := 1; day <= in.Month.Days(); day++ {
			date := in.Month.Date(day)
			key := roster.DateKey(date)
			cell := in.Plan.Get(userID, key)
			row, hasRow := index[cellKey{userID, key}]
			lockedAbbr, wasLocked := in.Locked[userID][key]

			if cell.IsEmpty() {
				if !hasRow || row.ShiftTypeID == nil {
					continue
				}
				if row.IsLocked || wasLocked {
					skip(userID, key, "", db.ErrLockedCell)
					continue
				}
				res.Diff.Deletes = append(res.Diff.Deletes, db.ShiftDelete{ID: row.ID, UserID: userID, Date: date})
				continue
			}

			typeID, ok := in.TypeIDs[cell.Abbr]
			if !ok {
				skip(userID, key, cell.Abbr, db.ErrUnknownShiftType)
				continue
			}
			if wasLocked && lockedAbbr != cell.Abbr {
				skip(userID, key, cell.Abbr, db.ErrLockedCell)
				continue
			}

			if !hasRow {
				res.Diff.Inserts = append(res.Diff.Inserts, db.ShiftInsert{UserID: userID, Date: date, ShiftTypeID: typeID})
				continue
			}
			if row.ShiftTypeID != nil && *row.ShiftTypeID == typeID {
				continue
			}
			if row.IsLocked {
				skip(userID, key, cell.Abbr, db.ErrLockedCell)
				continue
			}
			res.Diff.Updates = append(res.Diff.Updates, db.ShiftUpdate{ID: row.ID, UserID: userID, Date: date, ShiftTypeID: typeID})
		}
	}

	return res
}

// Store is what Persist needs from the database
type Store interface {
	db.ShiftReader
	db.DiffApplier
}

// Persist reloads the stored rows of the month and variant, computes the
// diff and applies it in one transaction. Nothing is written when the diff
// is empty.
func Persist(ctx context.Context, store Store, in Input, logger *zap.Logger) (Result, error) {
	r := db.DateRange{From: in.Month.FirstDay(), To: in.Month.NextMonthStart()}
	rows, err := store.ListShifts(ctx, r, in.VariantID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load stored shifts: %w", err)
	}

	res := Compute(in, rows, logger)
	logger.Info("Computed shift diff",
		zap.Int("inserts", len(res.Diff.Inserts)),
		zap.Int("updates", len(res.Diff.Updates)),
		zap.Int("deletes", len(res.Diff.Deletes)),
		zap.Int("skipped", len(res.Skipped)))

	if res.Diff.IsEmpty() {
		return res, nil
	}
	if err := store.ApplyShiftDiff(ctx, res.Diff); err != nil {
		return res, fmt.Errorf("failed to apply shift diff: %w", err)
	}
	return res, nil
}

// PlanFromRows rebuilds a typed plan from stored rows. Rows with an unknown
// shift type id are left out.
func PlanFromRows(rows []db.ShiftAssignment, typeAbbrs map[int]string, cls *roster.Classifier) roster.Plan {
	plan := make(roster.Plan)
	for _, row := range rows {
		if row.ShiftTypeID == nil {
			plan.Set(row.UserID, roster.DateKey(row.Date), roster.Empty())
			continue
		}
		abbr, ok := typeAbbrs[*row.ShiftTypeID]
		if !ok {
			continue
		}
		plan.Set(row.UserID, roster.DateKey(row.Date), cls.Cell(abbr))
	}
	return plan
}

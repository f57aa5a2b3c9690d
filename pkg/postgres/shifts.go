package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/db"
)

// ListShifts retrieves the assignments in [r.From, r.To) of one variant
// (nil selects the main plan)
func (d *DB) ListShifts(ctx context.Context, r db.DateRange, variantID *int) ([]db.ShiftAssignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, user_id, shift_date, shift_type_id, is_locked, variant_id
		FROM shifts
		WHERE shift_date >= $1 AND shift_date < $2 AND variant_id IS NOT DISTINCT FROM $3
		ORDER BY shift_date, user_id
	`, r.From, r.To, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []db.ShiftAssignment
	for rows.Next() {
		var s db.ShiftAssignment
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.ShiftTypeID, &s.IsLocked, &s.VariantID); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shifts: %w", err)
	}

	return shifts, nil
}

// ApplyShiftDiff writes the diff in one transaction. Updates and deletes
// never touch locked rows; a row locked since the diff was computed aborts
// the whole transaction with db.ErrLockedCell.
func (d *DB) ApplyShiftDiff(ctx context.Context, diff db.ShiftDiff) error {
	if diff.IsEmpty() {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, del := range diff.Deletes {
		tag, err := tx.Exec(ctx, `DELETE FROM shifts WHERE id = $1 AND NOT is_locked`, del.ID)
		if err != nil {
			return fmt.Errorf("failed to delete shift %d: %w", del.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("failed to delete shift %d: %w", del.ID, db.ErrLockedCell)
		}
	}

	for _, up := range diff.Updates {
		tag, err := tx.Exec(ctx, `
			UPDATE shifts SET shift_type_id = $2 WHERE id = $1 AND NOT is_locked
		`, up.ID, up.ShiftTypeID)
		if err != nil {
			return fmt.Errorf("failed to update shift %d: %w", up.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("failed to update shift %d: %w", up.ID, db.ErrLockedCell)
		}
	}

	for _, ins := range diff.Inserts {
		_, err := tx.Exec(ctx, `
			INSERT INTO shifts (user_id, shift_date, shift_type_id, variant_id)
			VALUES ($1, $2, $3, $4)
		`, ins.UserID, ins.Date, ins.ShiftTypeID, diff.VariantID)
		if err != nil {
			return fmt.Errorf("failed to insert shift for user %d on %s: %w",
				ins.UserID, ins.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	d.logger.Debug("Applied shift diff",
		zap.Int("inserts", len(diff.Inserts)),
		zap.Int("updates", len(diff.Updates)),
		zap.Int("deletes", len(diff.Deletes)))
	return nil
}

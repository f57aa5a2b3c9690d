package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/duty-roster/pkg/db"
)

// ListUsers retrieves every employee; visibility filtering is left to the caller
func (d *DB) ListUsers(ctx context.Context) ([]db.User, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, first_name, last_name, dog_name, is_visible, sort_order,
		       activation_date, deactivation_date
		FROM users
		ORDER BY sort_order, last_name, first_name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.DogName, &u.IsVisible, &u.SortOrder,
			&u.ActivationDate, &u.DeactivationDate); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// ListShiftTypes retrieves the shift catalogue
func (d *DB) ListShiftTypes(ctx context.Context) ([]db.ShiftType, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, abbreviation, name, color, hours::float8, spillover_hours::float8, is_work_shift,
		       start_time, end_time,
		       min_staff_mo, min_staff_tu, min_staff_we, min_staff_th, min_staff_fr, min_staff_sa, min_staff_su,
		       min_staff_holiday
		FROM shift_types
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift types: %w", err)
	}
	defer rows.Close()

	var types []db.ShiftType
	for rows.Next() {
		var st db.ShiftType
		var start, end *string
		w := &st.MinStaffWeekday
		if err := rows.Scan(&st.ID, &st.Abbreviation, &st.Name, &st.Color, &st.Hours, &st.SpilloverHours, &st.IsWorkShift,
			&start, &end,
			&w[0], &w[1], &w[2], &w[3], &w[4], &w[5], &w[6],
			&st.MinStaffHoliday); err != nil {
			return nil, fmt.Errorf("failed to scan shift type: %w", err)
		}
		if start != nil {
			st.StartTime = *start
		}
		if end != nil {
			st.EndTime = *end
		}
		types = append(types, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift types: %w", err)
	}

	return types, nil
}

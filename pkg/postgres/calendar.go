package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/duty-roster/pkg/db"
)

// ListCalendarEvents retrieves the events in [r.From, r.To)
func (d *DB) ListCalendarEvents(ctx context.Context, r db.DateRange) ([]db.CalendarEvent, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT event_date, type
		FROM calendar_events
		WHERE event_date >= $1 AND event_date < $2
		ORDER BY event_date, type
	`, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	var events []db.CalendarEvent
	for rows.Next() {
		var ev db.CalendarEvent
		if err := rows.Scan(&ev.Date, &ev.Type); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar events: %w", err)
	}

	return events, nil
}

// ListOpenWishes retrieves the open wishes dated in [r.From, r.To)
func (d *DB) ListOpenWishes(ctx context.Context, r db.DateRange) ([]db.Wish, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, sender_id, target_user_id, wish_date, message, requested_abbr, status
		FROM wishes
		WHERE wish_date >= $1 AND wish_date < $2 AND status = $3
		ORDER BY wish_date, id
	`, r.From, r.To, db.WishStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishes: %w", err)
	}
	defer rows.Close()

	var wishes []db.Wish
	for rows.Next() {
		var w db.Wish
		if err := rows.Scan(&w.ID, &w.SenderID, &w.TargetUserID, &w.Date, &w.Message, &w.RequestedAbbr, &w.Status); err != nil {
			return nil, fmt.Errorf("failed to scan wish: %w", err)
		}
		wishes = append(wishes, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishes: %w", err)
	}

	return wishes, nil
}

// ListApprovedVacations retrieves approved vacation requests overlapping [r.From, r.To)
func (d *DB) ListApprovedVacations(ctx context.Context, r db.DateRange) ([]db.VacationRequest, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, user_id, start_date, end_date, status
		FROM vacation_requests
		WHERE start_date < $2 AND end_date >= $1 AND status IN ($3, $4)
		ORDER BY user_id, start_date
	`, r.From, r.To, db.VacationApproved, db.VacationGenehmigt)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacation requests: %w", err)
	}
	defer rows.Close()

	var vacations []db.VacationRequest
	for rows.Next() {
		var v db.VacationRequest
		if err := rows.Scan(&v.ID, &v.UserID, &v.StartDate, &v.EndDate, &v.Status); err != nil {
			return nil, fmt.Errorf("failed to scan vacation request: %w", err)
		}
		vacations = append(vacations, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vacation requests: %w", err)
	}

	return vacations, nil
}

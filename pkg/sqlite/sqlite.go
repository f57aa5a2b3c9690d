// Package sqlite is a single-file store for running the generator on one
// workstation. It implements the same db.Database interface as the
// PostgreSQL store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/db"
)

const dateLayout = "2006-01-02"

var _ db.Database = (*Store)(nil)

// Store implements db.Database on top of SQLite
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New opens (and migrates) the database at path. Use ":memory:" for a
// throwaway database.
func New(path string, logger *zap.Logger) (*Store, error) {
	conn, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers
	conn.SetMaxOpenConns(1)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		dog_name TEXT NOT NULL DEFAULT '',
		is_visible INTEGER NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		activation_date TEXT,
		deactivation_date TEXT
	);

	CREATE TABLE IF NOT EXISTS shift_types (
		id INTEGER PRIMARY KEY,
		abbreviation TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		hours REAL NOT NULL DEFAULT 0,
		spillover_hours REAL NOT NULL DEFAULT 0,
		is_work_shift INTEGER NOT NULL DEFAULT 0,
		start_time TEXT,
		end_time TEXT,
		min_staff_mo INTEGER NOT NULL DEFAULT 0,
		min_staff_tu INTEGER NOT NULL DEFAULT 0,
		min_staff_we INTEGER NOT NULL DEFAULT 0,
		min_staff_th INTEGER NOT NULL DEFAULT 0,
		min_staff_fr INTEGER NOT NULL DEFAULT 0,
		min_staff_sa INTEGER NOT NULL DEFAULT 0,
		min_staff_su INTEGER NOT NULL DEFAULT 0,
		min_staff_holiday INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		shift_date TEXT NOT NULL,
		shift_type_id INTEGER REFERENCES shift_types(id),
		is_locked INTEGER NOT NULL DEFAULT 0,
		variant_id INTEGER
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_cell
		ON shifts(user_id, shift_date, COALESCE(variant_id, 0));

	CREATE TABLE IF NOT EXISTS calendar_events (
		event_date TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (event_date, type)
	);

	CREATE TABLE IF NOT EXISTS wishes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		target_user_id INTEGER NOT NULL,
		wish_date TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		requested_abbr TEXT,
		status TEXT NOT NULL DEFAULT 'offen'
	);

	CREATE TABLE IF NOT EXISTS vacation_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS app_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	return err
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func parseOptionalDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type userRow struct {
	ID               int            `db:"id"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	DogName          string         `db:"dog_name"`
	IsVisible        bool           `db:"is_visible"`
	SortOrder        int            `db:"sort_order"`
	ActivationDate   sql.NullString `db:"activation_date"`
	DeactivationDate sql.NullString `db:"deactivation_date"`
}

// ListUsers retrieves every employee
func (s *Store) ListUsers(ctx context.Context) ([]db.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, first_name, last_name, dog_name, is_visible, sort_order, activation_date, deactivation_date
		FROM users
		ORDER BY sort_order, last_name, first_name, id
	`); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := make([]db.User, 0, len(rows))
	for _, r := range rows {
		u := db.User{
			ID:        r.ID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			DogName:   r.DogName,
			IsVisible: r.IsVisible,
			SortOrder: r.SortOrder,
		}
		var err error
		if u.ActivationDate, err = parseOptionalDate(r.ActivationDate); err != nil {
			return nil, fmt.Errorf("user %d activation date: %w", r.ID, err)
		}
		if u.DeactivationDate, err = parseOptionalDate(r.DeactivationDate); err != nil {
			return nil, fmt.Errorf("user %d deactivation date: %w", r.ID, err)
		}
		users = append(users, u)
	}
	return users, nil
}

type shiftTypeRow struct {
	ID              int            `db:"id"`
	Abbreviation    string         `db:"abbreviation"`
	Name            string         `db:"name"`
	Color           string         `db:"color"`
	Hours           float64        `db:"hours"`
	SpilloverHours  float64        `db:"spillover_hours"`
	IsWorkShift     bool           `db:"is_work_shift"`
	StartTime       sql.NullString `db:"start_time"`
	EndTime         sql.NullString `db:"end_time"`
	MinStaffMo      int            `db:"min_staff_mo"`
	MinStaffTu      int            `db:"min_staff_tu"`
	MinStaffWe      int            `db:"min_staff_we"`
	MinStaffTh      int            `db:"min_staff_th"`
	MinStaffFr      int            `db:"min_staff_fr"`
	MinStaffSa      int            `db:"min_staff_sa"`
	MinStaffSu      int            `db:"min_staff_su"`
	MinStaffHoliday int            `db:"min_staff_holiday"`
}

// ListShiftTypes retrieves the shift catalogue
func (s *Store) ListShiftTypes(ctx context.Context) ([]db.ShiftType, error) {
	var rows []shiftTypeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM shift_types ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query shift types: %w", err)
	}

	types := make([]db.ShiftType, 0, len(rows))
	for _, r := range rows {
		types = append(types, db.ShiftType{
			ID:              r.ID,
			Abbreviation:    r.Abbreviation,
			Name:            r.Name,
			Color:           r.Color,
			Hours:           r.Hours,
			SpilloverHours:  r.SpilloverHours,
			IsWorkShift:     r.IsWorkShift,
			StartTime:       r.StartTime.String,
			EndTime:         r.EndTime.String,
			MinStaffWeekday: [7]int{r.MinStaffMo, r.MinStaffTu, r.MinStaffWe, r.MinStaffTh, r.MinStaffFr, r.MinStaffSa, r.MinStaffSu},
			MinStaffHoliday: r.MinStaffHoliday,
		})
	}
	return types, nil
}

type shiftRow struct {
	ID          int64         `db:"id"`
	UserID      int           `db:"user_id"`
	Date        string        `db:"shift_date"`
	ShiftTypeID sql.NullInt64 `db:"shift_type_id"`
	IsLocked    bool          `db:"is_locked"`
	VariantID   sql.NullInt64 `db:"variant_id"`
}

// ListShifts retrieves the assignments in [r.From, r.To) of one variant
// (nil selects the main plan)
func (s *Store) ListShifts(ctx context.Context, r db.DateRange, variantID *int) ([]db.ShiftAssignment, error) {
	var rows []shiftRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, shift_date, shift_type_id, is_locked, variant_id
		FROM shifts
		WHERE shift_date >= ? AND shift_date < ? AND variant_id IS ?
		ORDER BY shift_date, user_id
	`, formatDate(r.From), formatDate(r.To), variantID); err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}

	shifts := make([]db.ShiftAssignment, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("shift %d: %w", row.ID, err)
		}
		a := db.ShiftAssignment{ID: row.ID, UserID: row.UserID, Date: date, IsLocked: row.IsLocked}
		if row.ShiftTypeID.Valid {
			id := int(row.ShiftTypeID.Int64)
			a.ShiftTypeID = &id
		}
		if row.VariantID.Valid {
			id := int(row.VariantID.Int64)
			a.VariantID = &id
		}
		shifts = append(shifts, a)
	}
	return shifts, nil
}

// ListCalendarEvents retrieves the events in [r.From, r.To)
func (s *Store) ListCalendarEvents(ctx context.Context, r db.DateRange) ([]db.CalendarEvent, error) {
	var rows []struct {
		Date string `db:"event_date"`
		Type string `db:"type"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT event_date, type FROM calendar_events
		WHERE event_date >= ? AND event_date < ?
		ORDER BY event_date, type
	`, formatDate(r.From), formatDate(r.To)); err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}

	events := make([]db.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar event: %w", err)
		}
		events = append(events, db.CalendarEvent{Date: date, Type: row.Type})
	}
	return events, nil
}

type wishRow struct {
	ID            int64          `db:"id"`
	SenderID      int            `db:"sender_id"`
	TargetUserID  int            `db:"target_user_id"`
	Date          string         `db:"wish_date"`
	Message       string         `db:"message"`
	RequestedAbbr sql.NullString `db:"requested_abbr"`
	Status        string         `db:"status"`
}

// ListOpenWishes retrieves the open wishes dated in [r.From, r.To)
func (s *Store) ListOpenWishes(ctx context.Context, r db.DateRange) ([]db.Wish, error) {
	var rows []wishRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM wishes
		WHERE wish_date >= ? AND wish_date < ? AND status = ?
		ORDER BY wish_date, id
	`, formatDate(r.From), formatDate(r.To), db.WishStatusOpen); err != nil {
		return nil, fmt.Errorf("failed to query wishes: %w", err)
	}

	wishes := make([]db.Wish, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("wish %d: %w", row.ID, err)
		}
		w := db.Wish{
			ID:           row.ID,
			SenderID:     row.SenderID,
			TargetUserID: row.TargetUserID,
			Date:         date,
			Message:      row.Message,
			Status:       row.Status,
		}
		if row.RequestedAbbr.Valid {
			abbr := row.RequestedAbbr.String
			w.RequestedAbbr = &abbr
		}
		wishes = append(wishes, w)
	}
	return wishes, nil
}

// ListApprovedVacations retrieves approved vacation requests overlapping [r.From, r.To)
func (s *Store) ListApprovedVacations(ctx context.Context, r db.DateRange) ([]db.VacationRequest, error) {
	var rows []struct {
		ID     int64  `db:"id"`
		UserID int    `db:"user_id"`
		Start  string `db:"start_date"`
		End    string `db:"end_date"`
		Status string `db:"status"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, start_date, end_date, status FROM vacation_requests
		WHERE start_date < ? AND end_date >= ? AND status IN (?, ?)
		ORDER BY user_id, start_date
	`, formatDate(r.To), formatDate(r.From), db.VacationApproved, db.VacationGenehmigt); err != nil {
		return nil, fmt.Errorf("failed to query vacation requests: %w", err)
	}

	vacations := make([]db.VacationRequest, 0, len(rows))
	for _, row := range rows {
		start, err := parseDate(row.Start)
		if err != nil {
			return nil, fmt.Errorf("vacation %d: %w", row.ID, err)
		}
		end, err := parseDate(row.End)
		if err != nil {
			return nil, fmt.Errorf("vacation %d: %w", row.ID, err)
		}
		vacations = append(vacations, db.VacationRequest{ID: row.ID, UserID: row.UserID, StartDate: start, EndDate: end, Status: row.Status})
	}
	return vacations, nil
}

// ReadConfig returns the JSON document stored under key, or nil if absent
func (s *Store) ReadConfig(ctx context.Context, key string) ([]byte, error) {
	var value types.JSONText
	err := s.db.GetContext(ctx, &value, `SELECT value FROM app_config WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", key, err)
	}
	return []byte(value), nil
}

// WriteConfig stores a JSON document under key. The value must be valid JSON.
func (s *Store) WriteConfig(ctx context.Context, key string, value []byte) error {
	doc := types.JSONText(value)
	var probe any
	if err := doc.Unmarshal(&probe); err != nil {
		return fmt.Errorf("config %q is not valid JSON: %w", key, err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, doc); err != nil {
		return fmt.Errorf("failed to write config %q: %w", key, err)
	}
	return nil
}

// ApplyShiftDiff writes the diff in one transaction. Locked rows are never
// changed; hitting one rolls back everything with db.ErrLockedCell.
func (s *Store) ApplyShiftDiff(ctx context.Context, diff db.ShiftDiff) error {
	if diff.IsEmpty() {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, del := range diff.Deletes {
		if err := execOne(ctx, tx, `DELETE FROM shifts WHERE id = ? AND is_locked = 0`, del.ID); err != nil {
			return fmt.Errorf("failed to delete shift %d: %w", del.ID, err)
		}
	}

	for _, up := range diff.Updates {
		if err := execOne(ctx, tx, `UPDATE shifts SET shift_type_id = ? WHERE id = ? AND is_locked = 0`, up.ShiftTypeID, up.ID); err != nil {
			return fmt.Errorf("failed to update shift %d: %w", up.ID, err)
		}
	}

	for _, ins := range diff.Inserts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shifts (user_id, shift_date, shift_type_id, variant_id) VALUES (?, ?, ?, ?)
		`, ins.UserID, formatDate(ins.Date), ins.ShiftTypeID, diff.VariantID); err != nil {
			return fmt.Errorf("failed to insert shift for user %d on %s: %w", ins.UserID, formatDate(ins.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Applied shift diff",
		zap.Int("inserts", len(diff.Inserts)),
		zap.Int("updates", len(diff.Updates)),
		zap.Int("deletes", len(diff.Deletes)))
	return nil
}

// execOne runs a statement that must affect exactly one unlocked row
func execOne(ctx context.Context, tx *sqlx.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrLockedCell
	}
	return nil
}

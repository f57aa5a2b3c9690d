package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// wishPrefix marks free-text wishes that encode a shift request
const wishPrefix = "Anfrage für:"

// LoadOptions tune how the snapshot is assembled
type LoadOptions struct {
	// FreeIndicators and HardWorkShifts override the default sets when non-nil
	FreeIndicators []string
	HardWorkShifts []string

	// ExtraEvents are merged into the stored calendar events (stored events win)
	ExtraEvents []db.CalendarEvent

	// ConfigKey selects the generator config document (default genconfig.Key)
	ConfigKey string
}

// Load builds the planning snapshot for (month, variantID). The previous-month
// tail and next-month head always come from the main plan; the current month
// comes from the requested variant.
func Load(ctx context.Context, src db.SnapshotSource, month roster.Month, variantID *int, opts LoadOptions, logger *zap.Logger) (*Snapshot, error) {
	logger.Debug("Loading planning snapshot",
		zap.String("month", month.String()),
		zap.Bool("variant", variantID != nil))

	snap := &Snapshot{
		Month:          month,
		VariantID:      variantID,
		UsersByID:      make(map[int]*db.User),
		ShiftTypes:     make(map[string]ShiftTypeMeta),
		ShiftTypeAbbrs: make(map[int]string),
		Classifier:     roster.NewClassifier(opts.FreeIndicators, opts.HardWorkShifts),
		Existing:       make(map[int]map[string]string),
		Locked:         make(map[int]map[string]string),
		LockedFlags:    make(map[int]map[string]bool),
		Holidays:       make(map[string]bool),
		SpecialDates:   make(map[string]string),
		Wishes:         make(map[int]map[string]WishEntry),
		Vacations:      make(map[int]map[string]string),
		staffWeekday:   make(map[int]map[string]int),
		staffHoliday:   make(map[string]int),
	}

	if err := snap.loadUsers(ctx, src); err != nil {
		return nil, err
	}
	logger.Debug("Loaded users", zap.Int("count", len(snap.Users)))

	if err := snap.loadShiftTypes(ctx, src); err != nil {
		return nil, err
	}
	logger.Debug("Loaded shift types", zap.Int("count", len(snap.ShiftTypes)))

	if err := snap.loadShifts(ctx, src, logger); err != nil {
		return nil, err
	}

	if err := snap.loadCalendar(ctx, src, opts.ExtraEvents); err != nil {
		return nil, err
	}

	if err := snap.loadWishes(ctx, src); err != nil {
		return nil, err
	}

	if err := snap.loadVacations(ctx, src); err != nil {
		return nil, err
	}

	key := opts.ConfigKey
	if key == "" {
		key = genconfig.Key
	}
	raw, err := src.ReadConfig(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read generator config: %w", err)
	}
	snap.Config, snap.ConfigError = genconfig.Parse(raw)
	if snap.ConfigError != nil {
		logger.Warn("Generator config rejected, using defaults", zap.Error(snap.ConfigError))
	}

	logger.Debug("Snapshot loaded",
		zap.Int("holidays", len(snap.Holidays)),
		zap.Int("wishes", countNested(snap.Wishes)),
		zap.Int("vacation_days", countNested(snap.Vacations)),
		zap.Int("warnings", len(snap.Warnings)))

	return snap, nil
}

// IsActiveForMonth applies the visibility and activation window filter.
// The comparisons are strict on purpose: an employee whose deactivation date
// is after the previous month's end is still listed.
func IsActiveForMonth(u db.User, month roster.Month) bool {
	if !u.IsVisible {
		return false
	}
	if u.ActivationDate != nil && roster.TruncateDay(*u.ActivationDate).After(month.LastDay()) {
		return false
	}
	if u.DeactivationDate != nil && !roster.TruncateDay(*u.DeactivationDate).After(month.PreviousMonthEnd()) {
		return false
	}
	return true
}

func (s *Snapshot) loadUsers(ctx context.Context, src db.SnapshotSource) error {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, u := range users {
		if IsActiveForMonth(u, s.Month) {
			s.Users = append(s.Users, u)
		}
	}

	sort.SliceStable(s.Users, func(i, j int) bool {
		a, b := s.Users[i], s.Users[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})

	for i := range s.Users {
		s.UsersByID[s.Users[i].ID] = &s.Users[i]
	}
	return nil
}

func (s *Snapshot) loadShiftTypes(ctx context.Context, src db.SnapshotSource) error {
	types, err := src.ListShiftTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list shift types: %w", err)
	}

	timed := make([]roster.TimedShift, 0, len(types))
	for _, t := range types {
		if _, dup := s.ShiftTypes[t.Abbreviation]; dup {
			s.warnf("duplicate shift type abbreviation %q (id %d) ignored", t.Abbreviation, t.ID)
			continue
		}
		s.ShiftTypes[t.Abbreviation] = ShiftTypeMeta{
			ID:              t.ID,
			Abbreviation:    t.Abbreviation,
			Name:            t.Name,
			Color:           t.Color,
			Hours:           t.Hours,
			SpilloverHours:  t.SpilloverHours,
			IsWorkShift:     t.IsWorkShift,
			StartTime:       t.StartTime,
			EndTime:         t.EndTime,
			MinStaffWeekday: t.MinStaffWeekday,
			MinStaffHoliday: t.MinStaffHoliday,
		}
		s.ShiftTypeAbbrs[t.ID] = t.Abbreviation
		timed = append(timed, roster.TimedShift{
			Abbreviation: t.Abbreviation,
			StartTime:    t.StartTime,
			EndTime:      t.EndTime,
			IsWorkShift:  t.IsWorkShift,
		})

		// Staffing rules only exist for work shifts
		if !t.IsWorkShift || s.Classifier.IsFree(t.Abbreviation) {
			continue
		}
		for day := 0; day < 7; day++ {
			if s.staffWeekday[day] == nil {
				s.staffWeekday[day] = make(map[string]int)
			}
			s.staffWeekday[day][t.Abbreviation] = max(t.MinStaffWeekday[day], 0)
		}
		s.staffHoliday[t.Abbreviation] = max(t.MinStaffHoliday, 0)
	}

	var errs []error
	s.Times, errs = roster.NewShiftTimes(timed, s.Classifier)
	for _, err := range errs {
		s.warnf("%v", err)
	}
	return nil
}

func (s *Snapshot) loadShifts(ctx context.Context, src db.SnapshotSource, logger *zap.Logger) error {
	prevEnd := s.Month.PreviousMonthEnd()
	first := s.Month.FirstDay()
	nextStart := s.Month.NextMonthStart()

	tail, err := src.ListShifts(ctx, db.DateRange{From: prevEnd, To: first}, nil)
	if err != nil {
		return fmt.Errorf("failed to list previous month shifts: %w", err)
	}
	current, err := src.ListShifts(ctx, db.DateRange{From: first, To: nextStart}, s.VariantID)
	if err != nil {
		return fmt.Errorf("failed to list current month shifts: %w", err)
	}
	head, err := src.ListShifts(ctx, db.DateRange{From: nextStart, To: nextStart.AddDate(0, 0, 1)}, nil)
	if err != nil {
		return fmt.Errorf("failed to list next month shifts: %w", err)
	}

	orphans := make(map[int]bool)
	index := func(rows []db.ShiftAssignment, isCurrent bool) {
		for _, row := range rows {
			if _, ok := s.UsersByID[row.UserID]; !ok {
				orphans[row.UserID] = true
				continue
			}

			abbr := ""
			if row.ShiftTypeID != nil {
				known, ok := s.ShiftTypeAbbrs[*row.ShiftTypeID]
				if !ok {
					s.warnf("shift row for user %d on %s references unknown shift type %d",
						row.UserID, roster.DateKey(row.Date), *row.ShiftTypeID)
					continue
				}
				abbr = known
			}

			key := roster.DateKey(row.Date)
			if _, dup := s.Existing[row.UserID][key]; dup {
				s.warnf("duplicate shift row for user %d on %s ignored", row.UserID, key)
				continue
			}
			setNested(s.Existing, row.UserID, key, abbr)

			if isCurrent {
				setNested(s.Locked, row.UserID, key, abbr)
				if row.IsLocked {
					setNested(s.LockedFlags, row.UserID, key, true)
				}
			}
		}
	}

	index(tail, false)
	index(current, true)
	index(head, false)
	s.Rows = current

	if len(orphans) > 0 {
		logger.Debug("Skipped shift rows of users outside the roster", zap.Int("users", len(orphans)))
	}
	return nil
}

func (s *Snapshot) loadCalendar(ctx context.Context, src db.SnapshotSource, extra []db.CalendarEvent) error {
	r := db.DateRange{From: s.Month.FirstDay(), To: s.Month.NextMonthStart()}
	events, err := src.ListCalendarEvents(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to list calendar events: %w", err)
	}

	apply := func(ev db.CalendarEvent, overwrite bool) {
		if !s.Month.Contains(ev.Date) {
			return
		}
		key := roster.DateKey(ev.Date)
		if _, exists := s.SpecialDates[key]; exists && !overwrite {
			return
		}
		s.SpecialDates[key] = ev.Type
		if ev.Type == db.EventHoliday {
			s.Holidays[key] = true
		}
	}

	for _, ev := range events {
		apply(ev, true)
	}
	for _, ev := range extra {
		apply(ev, false)
	}
	return nil
}

func (s *Snapshot) loadWishes(ctx context.Context, src db.SnapshotSource) error {
	r := db.DateRange{From: s.Month.FirstDay(), To: s.Month.NextMonthStart()}
	wishes, err := src.ListOpenWishes(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to list wishes: %w", err)
	}

	for _, w := range wishes {
		if w.Status != db.WishStatusOpen || !s.Month.Contains(w.Date) {
			continue
		}

		var requested string
		if w.RequestedAbbr != nil {
			requested = strings.TrimSpace(*w.RequestedAbbr)
		} else {
			abbr, ok := ParseWishMessage(w.Message)
			if !ok {
				continue
			}
			requested = abbr
		}

		if _, ok := s.UsersByID[w.TargetUserID]; !ok {
			continue
		}
		setNested(s.Wishes, w.TargetUserID, roster.DateKey(w.Date), WishEntry{
			Status:        w.Status,
			RequestedAbbr: requested,
		})
	}
	return nil
}

// ParseWishMessage extracts the requested abbreviation from a legacy
// "Anfrage für: X" message. ok is false if the message is not a request.
func ParseWishMessage(message string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, wishPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, wishPrefix)), true
}

func (s *Snapshot) loadVacations(ctx context.Context, src db.SnapshotSource) error {
	first := s.Month.FirstDay()
	last := s.Month.LastDay()
	vacations, err := src.ListApprovedVacations(ctx, db.DateRange{From: first, To: s.Month.NextMonthStart()})
	if err != nil {
		return fmt.Errorf("failed to list vacations: %w", err)
	}

	for _, v := range vacations {
		if !v.IsApproved() {
			continue
		}
		if _, ok := s.UsersByID[v.UserID]; !ok {
			continue
		}
		start := roster.TruncateDay(v.StartDate)
		end := roster.TruncateDay(v.EndDate)
		if start.Before(first) {
			start = first
		}
		if end.After(last) {
			end = last
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			setNested(s.Vacations, v.UserID, roster.DateKey(d), db.VacationApproved)
		}
	}
	return nil
}

func (s *Snapshot) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

func setNested[V any](m map[int]map[string]V, userID int, key string, value V) {
	inner, ok := m[userID]
	if !ok {
		inner = make(map[string]V)
		m[userID] = inner
	}
	inner[key] = value
}

func countNested[V any](m map[int]map[string]V) int {
	n := 0
	for _, inner := range m {
		n += len(inner)
	}
	return n
}

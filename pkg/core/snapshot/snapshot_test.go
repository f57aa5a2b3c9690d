package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/db"
)

var june = roster.Month{Year: 2026, Month: time.June}

func day(n int) time.Time { return june.Date(n) }

func ptr[T any](v T) *T { return &v }

// mockSource records the shift range queries and serves canned data
type mockSource struct {
	users     []db.User
	types     []db.ShiftType
	shifts    []db.ShiftAssignment
	events    []db.CalendarEvent
	wishes    []db.Wish
	vacations []db.VacationRequest
	config    []byte
	configErr error

	shiftQueries []shiftQuery
	configKey    string
}

type shiftQuery struct {
	r       db.DateRange
	variant *int
}

func (m *mockSource) ListUsers(ctx context.Context) ([]db.User, error) { return m.users, nil }

func (m *mockSource) ListShiftTypes(ctx context.Context) ([]db.ShiftType, error) {
	return m.types, nil
}

func (m *mockSource) ListShifts(ctx context.Context, r db.DateRange, variantID *int) ([]db.ShiftAssignment, error) {
	m.shiftQueries = append(m.shiftQueries, shiftQuery{r, variantID})
	var out []db.ShiftAssignment
	for _, s := range m.shifts {
		if s.Date.Before(r.From) || !s.Date.Before(r.To) {
			continue
		}
		if (s.VariantID == nil) != (variantID == nil) || (s.VariantID != nil && *s.VariantID != *variantID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSource) ListCalendarEvents(ctx context.Context, r db.DateRange) ([]db.CalendarEvent, error) {
	return m.events, nil
}

func (m *mockSource) ListOpenWishes(ctx context.Context, r db.DateRange) ([]db.Wish, error) {
	return m.wishes, nil
}

func (m *mockSource) ListApprovedVacations(ctx context.Context, r db.DateRange) ([]db.VacationRequest, error) {
	return m.vacations, nil
}

func (m *mockSource) ReadConfig(ctx context.Context, key string) ([]byte, error) {
	m.configKey = key
	return m.config, m.configErr
}

func visible(id int, first, last string, order int) db.User {
	return db.User{ID: id, FirstName: first, LastName: last, IsVisible: true, SortOrder: order}
}

func shiftType(id int, abbr string, weekday [7]int, holiday int) db.ShiftType {
	return db.ShiftType{
		ID:              id,
		Abbreviation:    abbr,
		Hours:           8,
		IsWorkShift:     true,
		StartTime:       "08:00",
		EndTime:         "16:00",
		MinStaffWeekday: weekday,
		MinStaffHoliday: holiday,
	}
}

func load(t *testing.T, src *mockSource, variant *int) *Snapshot {
	t.Helper()
	snap, err := Load(context.Background(), src, june, variant, LoadOptions{}, zap.NewNop())
	require.NoError(t, err)
	return snap
}

func TestIsActiveForMonth(t *testing.T) {
	tests := []struct {
		name   string
		user   db.User
		expect bool
	}{
		{"plain visible user", db.User{IsVisible: true}, true},
		{"hidden user", db.User{IsVisible: false}, false},
		{"activated inside the month", db.User{IsVisible: true, ActivationDate: ptr(day(30))}, true},
		{"activated next month", db.User{IsVisible: true, ActivationDate: ptr(june.NextMonthStart())}, false},
		{"deactivated on previous month end", db.User{IsVisible: true, DeactivationDate: ptr(june.PreviousMonthEnd())}, false},
		{"deactivated on the first", db.User{IsVisible: true, DeactivationDate: ptr(day(1))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, IsActiveForMonth(tt.user, june))
		})
	}
}

func TestLoad_FiltersAndSortsUsers(t *testing.T) {
	src := &mockSource{
		users: []db.User{
			visible(3, "Zoe", "Berg", 2),
			visible(1, "Max", "Adler", 1),
			visible(2, "Ida", "Adler", 2),
			{ID: 4, FirstName: "Hidden", IsVisible: false},
		},
	}

	snap := load(t, src, nil)

	var ids []int
	for _, u := range snap.Users {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Len(t, snap.UsersByID, 3)
	assert.Equal(t, "Zoe", snap.UsersByID[3].FirstName)
}

func TestLoad_ShiftRangesAndVariants(t *testing.T) {
	variant := 4
	src := &mockSource{
		users: []db.User{visible(1, "A", "A", 1)},
		types: []db.ShiftType{shiftType(10, "T.", [7]int{}, 0)},
		shifts: []db.ShiftAssignment{
			{ID: 1, UserID: 1, Date: june.PreviousMonthEnd(), ShiftTypeID: ptr(10)},
			{ID: 2, UserID: 1, Date: day(3), ShiftTypeID: ptr(10), VariantID: &variant},
			{ID: 3, UserID: 1, Date: day(4), ShiftTypeID: ptr(10)},
			{ID: 4, UserID: 1, Date: june.NextMonthStart(), ShiftTypeID: ptr(10)},
			{ID: 5, UserID: 1, Date: day(5), VariantID: &variant, IsLocked: true},
		},
	}

	snap := load(t, src, &variant)

	require.Len(t, src.shiftQueries, 3)
	assert.Nil(t, src.shiftQueries[0].variant)
	assert.Equal(t, &variant, src.shiftQueries[1].variant)
	assert.Nil(t, src.shiftQueries[2].variant)
	assert.Equal(t, db.DateRange{From: june.PreviousMonthEnd(), To: june.FirstDay()}, src.shiftQueries[0].r)

	prev, ok := snap.ExistingShift(1, roster.DateKey(june.PreviousMonthEnd()))
	assert.True(t, ok)
	assert.Equal(t, "T.", prev)
	next, ok := snap.ExistingShift(1, roster.DateKey(june.NextMonthStart()))
	assert.True(t, ok)
	assert.Equal(t, "T.", next)

	assert.True(t, snap.IsLocked(1, roster.DateKey(day(3))), "current-month cells are immovable")
	assert.False(t, snap.IsLocked(1, roster.DateKey(day(4))), "main plan rows do not belong to the variant")
	assert.False(t, snap.IsLocked(1, roster.DateKey(june.PreviousMonthEnd())))
	assert.True(t, snap.IsLocked(1, roster.DateKey(day(5))), "locked empty cell")
	assert.True(t, snap.LockedFlags[1][roster.DateKey(day(5))])
	assert.Len(t, snap.Rows, 2)
}

func TestLoad_SkipsBadRows(t *testing.T) {
	src := &mockSource{
		users: []db.User{visible(1, "A", "A", 1)},
		types: []db.ShiftType{shiftType(10, "T.", [7]int{}, 0)},
		shifts: []db.ShiftAssignment{
			{ID: 1, UserID: 1, Date: day(2), ShiftTypeID: ptr(99)},
			{ID: 2, UserID: 42, Date: day(2), ShiftTypeID: ptr(10)},
			{ID: 3, UserID: 1, Date: day(3), ShiftTypeID: ptr(10)},
			{ID: 4, UserID: 1, Date: day(3), ShiftTypeID: ptr(10)},
		},
	}

	snap := load(t, src, nil)

	assert.False(t, snap.IsLocked(1, roster.DateKey(day(2))))
	_, orphan := snap.Existing[42]
	assert.False(t, orphan)
	assert.Len(t, snap.Warnings, 2, "%v", snap.Warnings)
}

func TestLoad_StaffingRules(t *testing.T) {
	src := &mockSource{
		types: []db.ShiftType{
			shiftType(1, "T.", [7]int{2, 2, 2, 2, 2, 1, 1}, 1),
			shiftType(2, "N.", [7]int{1, 1, 1, 1, 1, 1, 1}, 1),
			{ID: 3, Abbreviation: "FREI", MinStaffWeekday: [7]int{5, 5, 5, 5, 5, 5, 5}},
		},
		events: []db.CalendarEvent{{Date: day(4), Type: db.EventHoliday}},
	}

	snap := load(t, src, nil)

	// June 1 2026 is a Monday, June 6 a Saturday
	assert.Equal(t, map[string]int{"T.": 2, "N.": 1}, snap.MinStaffingForDate(day(1)))
	assert.Equal(t, map[string]int{"T.": 1, "N.": 1}, snap.MinStaffingForDate(day(6)))
	assert.Equal(t, map[string]int{"T.": 1, "N.": 1}, snap.MinStaffingForDate(day(4)), "holiday rule")

	staffing := snap.MinStaffingForDate(day(1))
	staffing["T."] = 99
	assert.Equal(t, 2, snap.MinStaffingForDate(day(1))["T."], "callers get a copy")

	iv, ok := snap.Times.Interval("T.")
	assert.True(t, ok)
	assert.Equal(t, roster.Interval{Start: 480, End: 960}, iv)
}

func TestLoad_CalendarEvents(t *testing.T) {
	src := &mockSource{
		events: []db.CalendarEvent{
			{Date: day(4), Type: db.EventHoliday},
			{Date: day(10), Type: db.EventTraining},
		},
	}
	opts := LoadOptions{ExtraEvents: []db.CalendarEvent{
		{Date: day(10), Type: db.EventShooting},
		{Date: day(24), Type: db.EventShooting},
		{Date: june.NextMonthStart(), Type: db.EventHoliday},
	}}

	snap, err := Load(context.Background(), src, june, nil, opts, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, snap.Holidays[roster.DateKey(day(4))])
	assert.Len(t, snap.Holidays, 1)
	assert.Equal(t, roster.AbbrTraining, snap.EventShift(day(10)), "stored events win")
	assert.Equal(t, roster.AbbrEvent, snap.EventShift(day(24)))
	assert.Equal(t, "", snap.EventShift(day(4)))
}

func TestLoad_WishesAndVacations(t *testing.T) {
	src := &mockSource{
		users: []db.User{visible(1, "A", "A", 1), visible(2, "B", "B", 2)},
		wishes: []db.Wish{
			{TargetUserID: 1, Date: day(5), RequestedAbbr: ptr("T."), Status: db.WishStatusOpen},
			{TargetUserID: 1, Date: day(6), Message: "Anfrage für: N.", Status: db.WishStatusOpen},
			{TargetUserID: 1, Date: day(7), Message: "Anfrage für:", Status: db.WishStatusOpen},
			{TargetUserID: 2, Date: day(5), Message: "Bitte tauschen", Status: db.WishStatusOpen},
			{TargetUserID: 2, Date: day(6), RequestedAbbr: ptr("T."), Status: "Genehmigt"},
		},
		vacations: []db.VacationRequest{
			{UserID: 2, StartDate: june.PreviousMonthEnd().AddDate(0, 0, -3), EndDate: day(2), Status: db.VacationGenehmigt},
			{UserID: 2, StartDate: day(29), EndDate: day(29).AddDate(0, 0, 5), Status: db.VacationApproved},
			{UserID: 1, StartDate: day(10), EndDate: day(12), Status: "Beantragt"},
		},
	}

	snap := load(t, src, nil)

	w, ok := snap.Wish(1, roster.DateKey(day(5)))
	require.True(t, ok)
	assert.Equal(t, "T.", w.RequestedAbbr)
	assert.False(t, w.IsWholeDay())

	w, ok = snap.Wish(1, roster.DateKey(day(6)))
	require.True(t, ok)
	assert.Equal(t, "N.", w.RequestedAbbr)

	w, ok = snap.Wish(1, roster.DateKey(day(7)))
	require.True(t, ok)
	assert.True(t, w.IsWholeDay())

	_, ok = snap.Wish(2, roster.DateKey(day(5)))
	assert.False(t, ok, "free text without the request prefix")
	_, ok = snap.Wish(2, roster.DateKey(day(6)))
	assert.False(t, ok, "only open wishes")

	assert.True(t, snap.HasVacation(2, roster.DateKey(day(1))))
	assert.True(t, snap.HasVacation(2, roster.DateKey(day(2))))
	assert.False(t, snap.HasVacation(2, roster.DateKey(day(3))))
	assert.True(t, snap.HasVacation(2, roster.DateKey(day(30))))
	assert.Len(t, snap.Vacations[2], 4)
	assert.False(t, snap.HasVacation(1, roster.DateKey(day(10))), "unapproved")
}

func TestLoad_GeneratorConfig(t *testing.T) {
	t.Run("custom key and values", func(t *testing.T) {
		src := &mockSource{config: []byte(`{"max_monthly_hours": 150}`)}
		snap, err := Load(context.Background(), src, june, nil, LoadOptions{ConfigKey: "alt"}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, "alt", src.configKey)
		assert.Equal(t, 150.0, snap.Config.MaxMonthlyHours)
		assert.NoError(t, snap.ConfigError)
	})

	t.Run("bad document falls back", func(t *testing.T) {
		src := &mockSource{config: []byte(`{"max_monthly_hours": "lots"}`)}
		snap := load(t, src, nil)

		assert.Equal(t, genconfig.Key, src.configKey)
		assert.Error(t, snap.ConfigError)
		assert.Equal(t, genconfig.DefaultMaxMonthlyHours, snap.Config.MaxMonthlyHours)
	})

	t.Run("read error aborts", func(t *testing.T) {
		src := &mockSource{configErr: errors.New("connection reset")}
		_, err := Load(context.Background(), src, june, nil, LoadOptions{}, zap.NewNop())
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestSnapshot_HelperLookups(t *testing.T) {
	activation := day(10)
	src := &mockSource{
		users: []db.User{
			{ID: 1, FirstName: "A", IsVisible: true, DogName: "Rex", ActivationDate: &activation},
			{ID: 2, FirstName: "B", IsVisible: true, DogName: " Rex "},
			{ID: 3, FirstName: "C", IsVisible: true},
		},
		types: []db.ShiftType{
			{ID: 1, Abbreviation: "N.", Hours: 10, SpilloverHours: 6, IsWorkShift: true},
			{ID: 2, Abbreviation: "FREI", Hours: 8},
		},
	}

	snap := load(t, src, nil)

	assert.Equal(t, []int{2}, snap.DogPartners(1))
	assert.Nil(t, snap.DogPartners(3))
	assert.False(t, snap.IsActiveOn(1, day(9)))
	assert.True(t, snap.IsActiveOn(1, day(10)))
	assert.False(t, snap.IsActiveOn(99, day(10)))
	assert.Equal(t, 10.0, snap.Hours("N."))
	assert.Equal(t, 6.0, snap.Spillover("N."))
	assert.Zero(t, snap.Hours("FREI"))
}

func TestParseWishMessage(t *testing.T) {
	abbr, ok := ParseWishMessage("  Anfrage für:  T. ")
	assert.True(t, ok)
	assert.Equal(t, "T.", abbr)

	_, ok = ParseWishMessage("Bitte frei")
	assert.False(t, ok)
}

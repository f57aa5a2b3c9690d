package planner

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// Shift type ids used by the fixtures
const (
	idDay   = 1
	idEarly = 2
	idNight = 3
	idFree  = 4
	idQA    = 5
	idEvent = 6
)

// June 2026 starts on a Monday and has 30 days
var june = roster.Month{Year: 2026, Month: time.June}

func day(n int) time.Time {
	return june.Date(n)
}

func key(n int) string {
	return roster.DateKey(day(n))
}

func intPtrT(v int) *int { return &v }

func strPtr(s string) *string { return &s }

// fakeStore is an in-memory SnapshotSource and DiffApplier
type fakeStore struct {
	users     []db.User
	types     []db.ShiftType
	shifts    []db.ShiftAssignment
	events    []db.CalendarEvent
	wishes    []db.Wish
	vacations []db.VacationRequest
	config    []byte

	nextID   int64
	applyErr error
	listErr  error
	panicMsg string
	applied  []db.ShiftDiff
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]db.User, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.users), nil
}

func (f *fakeStore) ListShiftTypes(ctx context.Context) ([]db.ShiftType, error) {
	return slices.Clone(f.types), nil
}

func (f *fakeStore) ListShifts(ctx context.Context, r db.DateRange, variantID *int) ([]db.ShiftAssignment, error) {
	var out []db.ShiftAssignment
	for _, s := range f.shifts {
		if s.Date.Before(r.From) || !s.Date.Before(r.To) {
			continue
		}
		if !sameVariant(s.VariantID, variantID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListCalendarEvents(ctx context.Context, r db.DateRange) ([]db.CalendarEvent, error) {
	var out []db.CalendarEvent
	for _, ev := range f.events {
		if !ev.Date.Before(r.From) && ev.Date.Before(r.To) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOpenWishes(ctx context.Context, r db.DateRange) ([]db.Wish, error) {
	return slices.Clone(f.wishes), nil
}

func (f *fakeStore) ListApprovedVacations(ctx context.Context, r db.DateRange) ([]db.VacationRequest, error) {
	return slices.Clone(f.vacations), nil
}

func (f *fakeStore) ReadConfig(ctx context.Context, key string) ([]byte, error) {
	return f.config, nil
}

func (f *fakeStore) ApplyShiftDiff(ctx context.Context, diff db.ShiftDiff) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, diff)

	for _, ins := range diff.Inserts {
		f.nextID++
		typeID := ins.ShiftTypeID
		f.shifts = append(f.shifts, db.ShiftAssignment{
			ID:          f.nextID,
			UserID:      ins.UserID,
			Date:        ins.Date,
			ShiftTypeID: &typeID,
			VariantID:   diff.VariantID,
		})
	}
	for _, up := range diff.Updates {
		for i := range f.shifts {
			if f.shifts[i].ID == up.ID {
				typeID := up.ShiftTypeID
				f.shifts[i].ShiftTypeID = &typeID
			}
		}
	}
	for _, del := range diff.Deletes {
		f.shifts = slices.DeleteFunc(f.shifts, func(s db.ShiftAssignment) bool { return s.ID == del.ID })
	}
	return nil
}

func sameVariant(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var errStore = errors.New("store unavailable")

func newUser(id int, name string) db.User {
	return db.User{ID: id, FirstName: name, LastName: "Muster", IsVisible: true, SortOrder: id}
}

func withDog(u db.User, dog string) db.User {
	u.DogName = dog
	return u
}

// catalogue builds the fixture shift types. weekday demand applies to every
// day of the week, holiday demand to holidays.
func catalogue(weekday, holiday map[string]int) []db.ShiftType {
	work := func(id int, abbr string, hours, spill float64, start, end string) db.ShiftType {
		st := db.ShiftType{
			ID:              id,
			Abbreviation:    abbr,
			Name:            abbr,
			Hours:           hours,
			SpilloverHours:  spill,
			IsWorkShift:     true,
			StartTime:       start,
			EndTime:         end,
			MinStaffHoliday: holiday[abbr],
		}
		for i := range st.MinStaffWeekday {
			st.MinStaffWeekday[i] = weekday[abbr]
		}
		return st
	}
	return []db.ShiftType{
		work(idDay, roster.AbbrDay, 8, 0, "08:00", "16:00"),
		work(idEarly, roster.AbbrEarly, 8, 0, "06:00", "14:00"),
		work(idNight, roster.AbbrNight, 10, 6, "20:00", "06:00"),
		{ID: idFree, Abbreviation: roster.AbbrFree, Name: "Frei"},
		work(idQA, roster.AbbrTraining, 8, 0, "08:00", "16:00"),
		work(idEvent, roster.AbbrEvent, 8, 0, "", ""),
	}
}

func holidays(days ...int) []db.CalendarEvent {
	var out []db.CalendarEvent
	for _, d := range days {
		out = append(out, db.CalendarEvent{Date: day(d), Type: db.EventHoliday})
	}
	return out
}

func row(id int64, userID int, date time.Time, typeID int, locked bool) db.ShiftAssignment {
	return db.ShiftAssignment{ID: id, UserID: userID, Date: date, ShiftTypeID: intPtrT(typeID), IsLocked: locked}
}

func loadSnapshot(t *testing.T, store *fakeStore) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.Load(context.Background(), store, june, nil, snapshot.LoadOptions{}, zap.NewNop())
	require.NoError(t, err)
	return snap
}

var testOptions = Options{CriticalLookaheadDays: 3, CriticalBuffer: 1}

// messageLog collects the progress stream
type messageLog struct {
	messages []string
	progress []int
}

func (m *messageLog) log(msg string, progress *int) {
	m.messages = append(m.messages, msg)
	if progress != nil {
		m.progress = append(m.progress, *progress)
	}
}

func newEngine(t *testing.T, store *fakeStore, log *messageLog) *Engine {
	t.Helper()
	var fn LogFunc
	if log != nil {
		fn = log.log
	}
	return NewEngine(loadSnapshot(t, store), testOptions, zap.NewNop(), fn)
}

// busyStore is a month with full weekday demand, shared dogs, vacations,
// wishes, exclusions, partners and a few locked cells
func busyStore() *fakeStore {
	users := []db.User{
		newUser(1, "Anna"),
		newUser(2, "Ben"),
		withDog(newUser(3, "Carl"), "Rex"),
		withDog(newUser(4, "Dora"), "Rex"),
		withDog(newUser(5, "Emil"), "Luna"),
		withDog(newUser(6, "Frieda"), "Luna"),
		newUser(7, "Gerd"),
		newUser(8, "Hanna"),
	}

	events := holidays(4)
	events = append(events, db.CalendarEvent{Date: day(17), Type: db.EventTraining})

	return &fakeStore{
		users: users,
		types: catalogue(
			map[string]int{roster.AbbrEarly: 1, roster.AbbrDay: 1, roster.AbbrNight: 1},
			map[string]int{roster.AbbrDay: 1, roster.AbbrNight: 1},
		),
		shifts: []db.ShiftAssignment{
			row(900, 6, june.PreviousMonthEnd(), idNight, false),
			row(901, 6, day(1), idFree, true),
			row(902, 2, day(2), idDay, true),
		},
		events: events,
		wishes: []db.Wish{
			{ID: 1, SenderID: 7, TargetUserID: 7, Date: day(20), RequestedAbbr: strPtr(roster.AbbrWishFree), Status: db.WishStatusOpen},
			{ID: 2, SenderID: 8, TargetUserID: 8, Date: day(22), Message: "Anfrage für: N.", Status: db.WishStatusOpen},
		},
		vacations: []db.VacationRequest{
			{ID: 1, UserID: 2, StartDate: day(8), EndDate: day(14), Status: db.VacationApproved},
		},
		config: []byte(`{
			"user_preferences": {
				"1": {"shift_exclusions": ["N."]},
				"5": {"max_monthly_hours": 120}
			},
			"preferred_partners_prioritized": [{"id_a": 1, "id_b": 2, "priority": 1}],
			"avoid_partners_prioritized": [{"id_a": 3, "id_b": 5, "priority": 1}]
		}`),
		nextID: 1000,
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }

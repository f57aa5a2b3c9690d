package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/db"
)

func checkNames(violations []Violation) []string {
	var names []string
	for _, v := range violations {
		names = append(names, v.Check)
	}
	return names
}

func cells(pairs map[int]string) map[string]string {
	out := make(map[string]string, len(pairs))
	for d, abbr := range pairs {
		out[key(d)] = abbr
	}
	return out
}

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name   string
		users  []db.User
		config string
		rows   []db.ShiftAssignment
		shifts LiveShifts
		want   []string
	}{
		{
			name:   "valid plan",
			shifts: LiveShifts{1: cells(map[int]string{1: roster.AbbrNight, 3: roster.AbbrDay}), 2: cells(map[int]string{1: roster.AbbrDay})},
		},
		{
			name:   "night followed by day shift",
			shifts: LiveShifts{1: cells(map[int]string{5: roster.AbbrNight, 6: roster.AbbrEarly})},
			want:   []string{"night_day"},
		},
		{
			name:   "shared dog overlap",
			users:  []db.User{withDog(newUser(1, "A"), "Rex"), withDog(newUser(2, "B"), "Rex")},
			shifts: LiveShifts{1: cells(map[int]string{3: roster.AbbrEarly}), 2: cells(map[int]string{3: roster.AbbrDay})},
			want:   []string{"dog"},
		},
		{
			name: "too many consecutive days",
			shifts: LiveShifts{1: cells(map[int]string{
				10: roster.AbbrDay, 11: roster.AbbrDay, 12: roster.AbbrDay, 13: roster.AbbrDay, 14: roster.AbbrDay,
				15: roster.AbbrEarly, 16: roster.AbbrEarly, 17: roster.AbbrEarly, 18: roster.AbbrEarly,
			})},
			want: []string{"max_consecutive"},
		},
		{
			name:   "rest too short",
			config: `{"soft_max_consecutive_shifts": 3, "hard_max_consecutive_shifts": 3}`,
			shifts: LiveShifts{1: cells(map[int]string{1: roster.AbbrDay, 2: roster.AbbrDay, 3: roster.AbbrDay, 5: roster.AbbrDay})},
			want:   []string{"rest_days"},
		},
		{
			name:   "hours ceiling",
			config: `{"max_monthly_hours": 15}`,
			shifts: LiveShifts{1: cells(map[int]string{1: roster.AbbrDay, 2: roster.AbbrDay})},
			want:   []string{"max_hours"},
		},
		{
			name:   "excluded shift",
			config: `{"user_preferences": {"2": {"shift_exclusions": ["T."]}}}`,
			shifts: LiveShifts{2: cells(map[int]string{7: roster.AbbrDay})},
			want:   []string{"exclusions"},
		},
		{
			name:   "locked cell changed",
			rows:   []db.ShiftAssignment{row(1, 1, day(2), idDay, true)},
			shifts: LiveShifts{1: cells(map[int]string{2: roster.AbbrNight})},
			want:   []string{"locked"},
		},
		{
			name: "duplicate stored rows",
			rows: []db.ShiftAssignment{
				row(1, 1, day(2), idDay, false),
				row(2, 1, day(2), idDay, false),
			},
			shifts: LiveShifts{1: cells(map[int]string{2: roster.AbbrDay})},
			want:   []string{"unique"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := tt.users
			if users == nil {
				users = []db.User{newUser(1, "A"), newUser(2, "B")}
			}
			store := &fakeStore{
				users:  users,
				types:  catalogue(nil, nil),
				shifts: tt.rows,
				config: []byte(tt.config),
			}
			snap := loadSnapshot(t, store)
			require.NoError(t, snap.ConfigError)

			got := ValidatePlan(snap, tt.shifts)

			assert.Equal(t, tt.want, checkNames(got), "%v", got)
		})
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{Check: "dog", UserID: 3, Date: "2026-06-03", Description: "overlap"}
	assert.Equal(t, "dog: user 3 on 2026-06-03: overlap", v.String())
}

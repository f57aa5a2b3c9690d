package planner

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/db"
)

func TestScoreCompare(t *testing.T) {
	base := Score{Wish: 1, Partner: 1000, SameShift: 1, Hours: decimal.NewFromInt(40)}

	wished := base
	wished.Wish = 0
	wished.Avoid = 10000
	assert.Negative(t, wished.Compare(base), "a wish beats every other component")

	belowMin := base
	belowMin.MinHours = 100
	assert.Negative(t, belowMin.Compare(base), "higher min-hours bonus sorts first")

	moreHours := base
	moreHours.Hours = decimal.NewFromInt(50)
	assert.Positive(t, moreHours.Compare(base))

	first, second := base, base
	first.Order, second.Order = 0, 1
	assert.Negative(t, first.Compare(second), "roster order breaks ties")
	assert.Zero(t, first.Compare(first))
}

func TestAvoidAndPartnerScores(t *testing.T) {
	e := twoUserEngine(t, `{
		"preferred_partners_prioritized": [{"id_a": 1, "id_b": 3, "priority": 2}, {"id_a": 1, "id_b": 2, "priority": 1}],
		"avoid_partners_prioritized": [{"id_a": 1, "id_b": 4, "priority": 2}]
	}`, newUser(1, "A"), newUser(2, "B"), newUser(3, "C"), newUser(4, "D"))

	assert.Equal(t, 1000, e.partnerScore(1, day(5), roster.AbbrDay))

	e.state.assign(3, day(5), roster.AbbrDay)
	assert.Equal(t, 2, e.partnerScore(1, day(5), roster.AbbrDay))
	e.state.assign(2, day(5), roster.AbbrDay)
	assert.Equal(t, 1, e.partnerScore(1, day(5), roster.AbbrDay))

	e.state.assign(4, day(5), roster.AbbrNight)
	assert.Equal(t, 5000.0, e.avoidScore(1, day(5), roster.AbbrNight))
	assert.Zero(t, e.avoidScore(1, day(5), roster.AbbrDay))
	e.state.assign(1, day(6), roster.AbbrDay)
	assert.Equal(t, 5000.0, e.avoidScore(4, day(6), roster.AbbrDay), "avoid pairs are symmetric")
	assert.True(t, e.avoidPartnerOnShift(1, day(5), roster.AbbrNight, 2))
	assert.False(t, e.avoidPartnerOnShift(1, day(5), roster.AbbrNight, 1))
}

func TestFairnessScore(t *testing.T) {
	e := twoUserEngine(t, "")

	assert.Equal(t, 2.0, e.fairnessScore(0, 20))
	assert.Equal(t, -1.0, e.fairnessScore(30, 20))
	assert.Zero(t, e.fairnessScore(15, 20))
}

func TestMinHoursScore(t *testing.T) {
	e := twoUserEngine(t, `{"user_preferences": {"1": {"min_monthly_hours": 100}}}`)

	assert.Equal(t, 250.0, e.minHoursScore(1, 50))
	assert.Zero(t, e.minHoursScore(1, 90))
	assert.Zero(t, e.minHoursScore(2, 0), "no personal minimum")
}

func TestRatioScore(t *testing.T) {
	e := twoUserEngine(t, "")

	assert.Equal(t, 0.5, e.ratioScore(1, roster.AbbrDay))
	e.state.assign(1, day(1), roster.AbbrNight)
	assert.Zero(t, e.ratioScore(1, roster.AbbrEarly))
	assert.Equal(t, 0.5, e.ratioScore(1, roster.AbbrNight))
	assert.Zero(t, e.ratioScore(1, roster.AbbrFree))
}

func TestIsolationScore(t *testing.T) {
	e := twoUserEngine(t, "")

	assert.Equal(t, 90.0, e.isolationScore(1, day(10)))

	e.state.assign(1, day(12), roster.AbbrDay)
	assert.Equal(t, 60.0, e.isolationScore(1, day(10)), "free before the gap still counts")

	e.state.assign(1, day(8), roster.AbbrDay)
	assert.Equal(t, 30.0, e.isolationScore(1, day(10)))

	e.state.assign(1, day(9), roster.AbbrDay)
	assert.Zero(t, e.isolationScore(1, day(10)))
}

func TestFutureConflictScore(t *testing.T) {
	store := &fakeStore{
		users: []db.User{newUser(1, "A"), newUser(2, "B")},
		types: catalogue(map[string]int{roster.AbbrDay: 1, roster.AbbrNight: 1}, nil),
	}
	e := newEngine(t, store, nil)

	assert.Equal(t, 6, e.futureConflictScore(1, day(10), roster.AbbrDay))
	assert.Equal(t, 7, e.futureConflictScore(1, day(10), roster.AbbrNight), "night costs tomorrow's day shift")
	assert.Equal(t, 2, e.futureConflictScore(1, day(29), roster.AbbrDay))
	assert.Zero(t, e.futureConflictScore(1, day(30), roster.AbbrDay))
}

package planner

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
)

// cellHours returns the hours a cell on t contributes to the target month.
// A shift on the last day of the month loses its spillover part.
func cellHours(snap *snapshot.Snapshot, abbr string, t time.Time) decimal.Decimal {
	if snap.Classifier.IsFree(abbr) {
		return decimal.Zero
	}
	h := decimal.NewFromFloat(snap.Hours(abbr))
	if snap.Month.IsLastDay(t) {
		h = h.Sub(decimal.NewFromFloat(snap.Spillover(abbr)))
	}
	return h
}

// MonthlyHours computes the hours ledger of one employee: the worked hours
// of every current-month cell, minus last-day spillover, plus the spillover
// of the shift on the previous month's last day.
func MonthlyHours(snap *snapshot.Snapshot, days map[string]string) decimal.Decimal {
	total := decimal.Zero
	for day := 1; day <= snap.Month.Days(); day++ {
		t := snap.Month.Date(day)
		if abbr, ok := days[roster.DateKey(t)]; ok {
			total = total.Add(cellHours(snap, abbr, t))
		}
	}

	if prev, ok := days[roster.DateKey(snap.Month.PreviousMonthEnd())]; ok {
		total = total.Add(decimal.NewFromFloat(snap.Spillover(prev)))
	}
	return total
}

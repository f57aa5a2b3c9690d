package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/duty-roster/pkg/core/planner"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

const cellWidth = 5

// printPlanGrid prints one row per employee and one column per day.
// Locked cells are dimmed, newly planned work cells are green.
func printPlanGrid(w io.Writer, snap *snapshot.Snapshot, plan roster.Plan, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + colorReset
	}

	nameWidth := 12
	for _, u := range snap.Users {
		nameWidth = max(nameWidth, len(u.DisplayName()))
	}
	nameWidth += 2

	days := snap.Month.Days()
	fmt.Fprintf(w, "%-*s", nameWidth, snap.Month.String())
	for d := 1; d <= days; d++ {
		fmt.Fprintf(w, "%-*d", cellWidth, d)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", nameWidth+cellWidth*days))

	for _, u := range snap.Users {
		fmt.Fprintf(w, "%-*s", nameWidth, u.DisplayName())
		for d := 1; d <= days; d++ {
			key := roster.DateKey(snap.Month.Date(d))
			cell := plan.Get(u.ID, key)
			text := fmt.Sprintf("%-*s", cellWidth, cellText(cell))
			switch {
			case snap.IsLocked(u.ID, key):
				fmt.Fprint(w, paint(colorDim, text))
			case cell.IsWork():
				fmt.Fprint(w, paint(colorGreen, text))
			default:
				fmt.Fprint(w, text)
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func cellText(c roster.Cell) string {
	if c.IsEmpty() {
		return "."
	}
	return c.Abbr
}

// printReport prints the shortfalls and persistence counts of a run
func printReport(w io.Writer, report *planner.RunReport, dryRun bool, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + colorReset
	}

	verb := "Saved"
	if dryRun {
		verb = "Would write"
	}
	fmt.Fprintf(w, "%s: %d inserts, %d updates, %d deletes", verb, report.Inserts, report.Updates, report.Deletes)
	if report.Skipped > 0 {
		fmt.Fprintf(w, " (%s)", paint(colorYellow, fmt.Sprintf("%d cells skipped", report.Skipped)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Pre-planned: %d, placed in total: %d\n", len(report.PrePlanned()), len(report.Placements))

	if len(report.Shortfalls) == 0 {
		fmt.Fprintln(w, paint(colorGreen, "✓ Every slot is staffed"))
		return
	}

	fmt.Fprintln(w, paint(colorRed, fmt.Sprintf("⚠️  %d understaffed slots:", len(report.Shortfalls))))
	for _, s := range report.Shortfalls {
		fmt.Fprintf(w, "  %s %-4s missing %d\n", s.Date.Format("Mon 02.01."), s.Shift, s.Missing)
	}
}

// printViolations lists broken invariants, or a success line
func printViolations(w io.Writer, violations []planner.Violation, color bool) {
	if len(violations) == 0 {
		if color {
			fmt.Fprintln(w, colorGreen+"✓ No violations found"+colorReset)
		} else {
			fmt.Fprintln(w, "✓ No violations found")
		}
		return
	}

	fmt.Fprintf(w, "✗ %d violations:\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(w, "  %s\n", v)
	}
}

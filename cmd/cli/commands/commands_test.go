package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/pkg/core/planner"
	"github.com/jakechorley/duty-roster/pkg/core/roster"
	"github.com/jakechorley/duty-roster/pkg/core/snapshot"
	"github.com/jakechorley/duty-roster/pkg/db"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name      string
		arg       string
		want      roster.Month
		expectErr bool
	}{
		{name: "valid", arg: "2026-06", want: roster.Month{Year: 2026, Month: time.June}},
		{name: "single digit month", arg: "2026-6", want: roster.Month{Year: 2026, Month: time.June}},
		{name: "surrounding spaces", arg: " 2026-12 ", want: roster.Month{Year: 2026, Month: time.December}},
		{name: "missing separator", arg: "202606", expectErr: true},
		{name: "month out of range", arg: "2026-13", expectErr: true},
		{name: "non numeric year", arg: "abcd-01", expectErr: true},
		{name: "non numeric month", arg: "2026-jan", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMonth(tt.arg)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVariantFromFlags(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		addVariantFlag(cmd)
		require.NoError(t, cmd.Flags().Parse(args))
		return cmd
	}

	t.Run("main plan", func(t *testing.T) {
		id, err := variantFromFlags(newCmd())
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("variant", func(t *testing.T) {
		id, err := variantFromFlags(newCmd("--variant", "3"))
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, 3, *id)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := variantFromFlags(newCmd("--variant=-1"))
		assert.Error(t, err)
	})
}

func TestPrintReport(t *testing.T) {
	t.Run("fully staffed", func(t *testing.T) {
		var buf bytes.Buffer
		printReport(&buf, &planner.RunReport{Inserts: 4, Updates: 1}, false, false)

		out := buf.String()
		assert.Contains(t, out, "Saved: 4 inserts, 1 updates, 0 deletes")
		assert.Contains(t, out, "Every slot is staffed")
		assert.NotContains(t, out, "\033[")
	})

	t.Run("dry run with shortfalls", func(t *testing.T) {
		var buf bytes.Buffer
		report := &planner.RunReport{
			Skipped: 2,
			Shortfalls: []planner.Shortfall{
				{Date: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), Shift: roster.AbbrNight, Missing: 1},
			},
		}
		printReport(&buf, report, true, false)

		out := buf.String()
		assert.Contains(t, out, "Would write: 0 inserts")
		assert.Contains(t, out, "2 cells skipped")
		assert.Contains(t, out, "1 understaffed slots")
		assert.Contains(t, out, "Wed 03.06. N.")
		assert.Contains(t, out, "missing 1")
	})
}

func TestPrintViolations(t *testing.T) {
	var buf bytes.Buffer
	printViolations(&buf, nil, false)
	assert.Equal(t, "✓ No violations found\n", buf.String())

	buf.Reset()
	printViolations(&buf, []planner.Violation{
		{Check: "night_day", UserID: 2, Date: "2026-06-05", Description: "T. directly after N."},
	}, false)
	assert.Contains(t, buf.String(), "1 violations")
	assert.Contains(t, buf.String(), "night_day: user 2 on 2026-06-05: T. directly after N.")
}

func TestPrintPlanGrid(t *testing.T) {
	month := roster.Month{Year: 2026, Month: time.February}
	snap := &snapshot.Snapshot{
		Month: month,
		Users: []db.User{
			{ID: 1, FirstName: "Anna", LastName: "Muster"},
			{ID: 2, FirstName: "Ben"},
		},
		Locked: map[int]map[string]string{
			2: {roster.DateKey(month.Date(1)): roster.AbbrFree},
		},
	}
	plan := roster.Plan{}
	plan.Set(1, roster.DateKey(month.Date(1)), roster.WorkCell(roster.AbbrNight))
	plan.Set(2, roster.DateKey(month.Date(1)), roster.FreeCell(roster.AbbrFree))

	var buf bytes.Buffer
	printPlanGrid(&buf, snap, plan, false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "2026-02"))
	assert.Contains(t, lines[0], "28")
	assert.NotContains(t, lines[0], "29")
	assert.True(t, strings.HasPrefix(lines[2], "Anna Muster"))
	assert.Contains(t, lines[2], "N.")
	assert.Contains(t, lines[3], roster.AbbrFree)
	assert.Equal(t, 27, strings.Count(lines[2], "."+strings.Repeat(" ", cellWidth-1)))
}

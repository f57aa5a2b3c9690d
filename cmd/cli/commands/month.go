package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
)

// parseMonth accepts "YYYY-MM"
func parseMonth(arg string) (roster.Month, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(arg), "-")
	if !ok {
		return roster.Month{}, fmt.Errorf("month must look like YYYY-MM, got: %s", arg)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return roster.Month{}, fmt.Errorf("invalid year in %s: %w", arg, err)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return roster.Month{}, fmt.Errorf("invalid month in %s: %w", arg, err)
	}
	return roster.NewMonth(y, m)
}

// addVariantFlag registers --variant; 0 selects the main plan
func addVariantFlag(cmd *cobra.Command) {
	cmd.Flags().Int("variant", 0, "Plan variant id (0 = main plan)")
}

func variantFromFlags(cmd *cobra.Command) (*int, error) {
	id, err := cmd.Flags().GetInt("variant")
	if err != nil {
		return nil, err
	}
	if id < 0 {
		return nil, fmt.Errorf("variant must not be negative, got %d", id)
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}

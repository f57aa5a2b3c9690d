package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/duty-roster/pkg/core/services"
)

// DiffCmd creates the diff command
func DiffCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <YYYY-MM>",
		Short: "Show the changes a generation run would write, without saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := parseMonth(args[0])
			if err != nil {
				return err
			}
			variantID, err := variantFromFlags(cmd)
			if err != nil {
				return err
			}

			result, err := services.PreviewDiff(app.Ctx, app.Database, app.Cfg, app.Logger, month, variantID)
			if err != nil {
				return err
			}

			d := result.Diff.Diff
			names := make(map[int]string, len(result.Snapshot.Users))
			for _, u := range result.Snapshot.Users {
				names[u.ID] = u.DisplayName()
			}
			abbrs := result.Snapshot.ShiftTypeAbbrs

			fmt.Printf("\nChanges for %s:\n\n", month)
			for _, ins := range d.Inserts {
				fmt.Printf("  %s+ %s %-20s %s%s\n", colorGreen, ins.Date.Format("2006-01-02"), names[ins.UserID], abbrs[ins.ShiftTypeID], colorReset)
			}
			for _, up := range d.Updates {
				fmt.Printf("  %s~ %s %-20s %s%s\n", colorYellow, up.Date.Format("2006-01-02"), names[up.UserID], abbrs[up.ShiftTypeID], colorReset)
			}
			for _, del := range d.Deletes {
				fmt.Printf("  %s- %s %-20s%s\n", colorRed, del.Date.Format("2006-01-02"), names[del.UserID], colorReset)
			}
			for _, s := range result.Diff.Skipped {
				fmt.Printf("  %s! %s %-20s %s (%v)%s\n", colorDim, s.DateKey, names[s.UserID], s.Abbr, s.Err, colorReset)
			}
			if d.IsEmpty() {
				fmt.Println("  No changes.")
			}
			fmt.Println()

			printReport(os.Stdout, result.Report, true, true)
			fmt.Println()
			return nil
		},
	}

	addVariantFlag(cmd)
	return cmd
}

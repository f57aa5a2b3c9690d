package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/services"
)

// GenerateCmd creates the generate command
func GenerateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <YYYY-MM>",
		Short: "Generate the duty roster for a month and save it",
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
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			showGrid, _ := cmd.Flags().GetBool("show")

			app.Logger.Debug("generate command",
				zap.String("month", month.String()),
				zap.Bool("dry_run", dryRun))

			result, err := services.GenerateRoster(app.Ctx, app.Database, app.Cfg, app.Logger, services.GenerateRequest{
				Month:     month,
				VariantID: variantID,
				DryRun:    dryRun,
				Log:       printProgress,
			})
			if err != nil {
				return err
			}

			fmt.Println()
			if showGrid || dryRun {
				printPlanGrid(os.Stdout, result.Snapshot, result.Plan, true)
			}
			printReport(os.Stdout, result.Report, dryRun, true)
			if len(result.Violations) > 0 {
				fmt.Println()
				printViolations(os.Stdout, result.Violations, true)
			}
			fmt.Println()

			return nil
		},
	}

	addVariantFlag(cmd)
	cmd.Flags().Bool("dry-run", false, "Compute the plan and diff without saving")
	cmd.Flags().Bool("show", false, "Print the planned month as a grid")

	return cmd
}

// printProgress renders the generator's progress stream
func printProgress(message string, progress *int) {
	if progress != nil {
		fmt.Printf("[%3d%%] %s\n", *progress, message)
		return
	}
	fmt.Printf("       %s\n", message)
}

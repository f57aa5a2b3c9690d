package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/duty-roster/pkg/core/services"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <YYYY-MM>",
		Short: "Check the stored roster of a month against the planning rules",
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

			violations, err := services.ValidatePlan(app.Ctx, app.Database, app.Cfg, app.Logger, month, variantID)
			if err != nil {
				return err
			}

			fmt.Println()
			printViolations(os.Stdout, violations, true)
			fmt.Println()

			if len(violations) > 0 {
				return fmt.Errorf("%d violations in %s", len(violations), month)
			}
			return nil
		},
	}

	addVariantFlag(cmd)
	return cmd
}

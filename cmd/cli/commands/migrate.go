package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// migrator is implemented by stores with versioned migrations
type migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := app.Database.(migrator)
			if !ok {
				fmt.Println("✓ Schema is migrated when the database is opened.")
				return nil
			}

			applied, err := m.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Println("✓ Database is up to date.")
				return nil
			}
			fmt.Printf("✓ Applied %d migrations:\n", len(applied))
			for _, name := range applied {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}
}

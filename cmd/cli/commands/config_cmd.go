package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/duty-roster/pkg/core/genconfig"
)

// ConfigCmd creates the config command with show and set subcommands for
// the stored generator document
func ConfigCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or replace the stored generator configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective generator configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := app.Database.ReadConfig(app.Ctx, configKey(app))
			if err != nil {
				return err
			}
			cfg, parseErr := genconfig.Parse(raw)
			if parseErr != nil {
				fmt.Printf("⚠️  Stored configuration is invalid, defaults apply: %v\n\n", parseErr)
			}

			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <file.json>",
		Short: "Validate a generator configuration file and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if _, err := genconfig.Parse(raw); err != nil {
				return err
			}
			if err := app.Database.WriteConfig(app.Ctx, configKey(app), raw); err != nil {
				return err
			}
			fmt.Printf("✓ Stored generator configuration under %q\n", configKey(app))
			return nil
		},
	})

	return cmd
}

func configKey(app *AppContext) string {
	if app.Cfg != nil && app.Cfg.GeneratorConfigKey != "" {
		return app.Cfg.GeneratorConfigKey
	}
	return genconfig.Key
}

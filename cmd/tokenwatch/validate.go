package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/tokenwatch/config"
	"github.com/jpalmerr/tokenwatch/internal/credentials"
)

// validateCmd validates the configuration without running anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the tokenwatch configuration without probing any account.

This command reads the config file and .env, expands environment variables,
and validates all fields. Token values are never printed.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  tokenwatch validate
  tokenwatch validate -c /etc/tokenwatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, env, err := config.Load(configFile, credentials.Environ(os.Environ()))
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	source := cfg.Source
	if source == "" {
		source = "(defaults)"
	}
	optional := func(s string) string {
		if s == "" {
			return "disabled"
		}
		return s
	}
	publish := "disabled"
	if cfg.Publish.IsEnabled() {
		publish = "enabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Source:        %s\n", source)
	fmt.Fprintf(out, "  Token prefix:  %s\n", cfg.TokenPrefix)
	fmt.Fprintf(out, "  Accounts:      %d\n", len(credentials.List(env, cfg.TokenPrefix)))
	fmt.Fprintf(out, "  Schedule:      %s\n", cfg.CronSpec())
	fmt.Fprintf(out, "  Template:      %s\n", cfg.Template)
	fmt.Fprintf(out, "  Output:        %s\n", cfg.Output)
	fmt.Fprintf(out, "  Accounts file: %s\n", cfg.AccountsFile)
	fmt.Fprintf(out, "  Status report: %s\n", optional(cfg.StatusReport))
	fmt.Fprintf(out, "  History:       %s\n", optional(cfg.HistoryDB))
	fmt.Fprintf(out, "  Publish:       %s\n", publish)

	return nil
}

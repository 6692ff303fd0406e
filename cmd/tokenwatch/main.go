// Package main is the entry point for the tokenwatch CLI.
//
// Usage:
//
//	tokenwatch run                  # Run now, then on the schedule
//	tokenwatch run --once --no-push # One local pass, nothing pushed
//	tokenwatch validate             # Validate configuration
//	tokenwatch init                 # Write the default page template
//	tokenwatch version              # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "tokenwatch",
	Short: "Monitor account tokens and publish a status page",
	Long: `tokenwatch checks a set of account tokens against the profile endpoint,
keeps a table of what each account looked like when it last worked, and
publishes the result as a static HTML page committed to a git repository.

Quick start:
  1. Put one token per account in .env:  DISCORD_TOKEN_7=...
  2. Run: tokenwatch init
  3. Run: tokenwatch run

Example config (tokenwatch.yaml):
  interval_hours: 2
  status_report: STATUS.md
  publish:
    branch: main`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this tokenwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tokenwatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

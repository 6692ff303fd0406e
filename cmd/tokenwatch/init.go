package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/tokenwatch/dashboard"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

// initCmd writes the built-in page template so it can be customized.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default page template",
	Long: `Write the built-in HTML template to a file for customization.

The template must keep the {{STATUS}} and {{ACCOUNTS}} placeholders where
the summary and the account cards should appear. Leaving one out drops
that region from the page.

Example:
  tokenwatch init
  tokenwatch init -o site/template.html --force`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringP("output", "o", "template.html", "where to write the template")
	initCmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if !force {
		_, err := os.Stat(path)
		if err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
	}

	if err := store.WriteFileAtomic(path, []byte(dashboard.Template()), 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", path)
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	verbose    bool
	configPath string
	syntax     string
}

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "snep",
		Short: "Keep shared code snippets in sync across source files",
		Long: TitleStyle.Render("snep") + SubtitleStyle.Render(" - keep shared code snippets in sync across source files") + `

snep manages blocks of code delimited by comment markup. Each file holds a
'snips' container of named snippets; snippets declare the snippets they
require, and snep copies, merges and orders them so every file carries exactly
what it needs.

` + SubtitleStyle.Render("Examples:") + `
  snep sync utils.py tool.py        Merge and resolve two files
  snep sync --left a.sh b.sh        Resolve conflicts with b.sh's version
  snep update -I lib/common.py x.py Pull missing snippets from a library file
  snep check *.py                   Report files that are out of date
  snep watch 'src/**/*.py'          Update files as they change
  snep export --format yaml x.py    Print the parsed document`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/snep/config.cue)")
	rootCmd.PersistentFlags().StringVar(&app.flags.syntax, "syntax", "", "force the comment syntax (sh, c, c++, hs)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: exitUsage, Err: err}
	})

	rootCmd.AddCommand(newSyncCommand(app))
	rootCmd.AddCommand(newUpdateCommand(app))
	rootCmd.AddCommand(newCheckCommand(app))
	rootCmd.AddCommand(newWatchCommand(app))
	rootCmd.AddCommand(newExportCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// usageArgs wraps a positional argument validator so its failures exit with
// the usage status.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: exitUsage, Err: err}
		}
		return nil
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler skips errors the command already rendered.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	if isReported(err) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute builds the production App and runs the command tree.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(exitFailure)
	}

	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}

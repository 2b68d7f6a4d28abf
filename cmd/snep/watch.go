// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/snep/snep/internal/issue"
	"github.com/snep/snep/internal/watch"

	"github.com/spf13/cobra"
)

type watchFlags struct {
	resolve  resolveFlags
	ignore   []string
	debounce time.Duration
}

func newWatchCommand(app *App) *cobra.Command {
	var f watchFlags
	cmd := &cobra.Command{
		Use:   "watch PATTERN...",
		Short: "Update files whenever they or the search path change",
		Long: `Update files whenever they or the search path change.

Each PATTERN is a file or a doublestar glob such as 'src/**/*.py'. Matching
files are updated once on start and again after every change to a matching
file or to a search path file. Files created later are picked up as soon as
they match. Press Ctrl+C to stop.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runWatch(cmd.Context(), args, f)
		},
	}
	cmd.Flags().BoolVar(&f.resolve.purge, "purge", false, "drop snippets nothing requires")
	cmd.Flags().BoolVar(&f.resolve.sort, "sort", false, "order snippets by name instead of keeping their positions")
	cmd.Flags().StringArrayVarP(&f.resolve.includes, "include", "I", nil, "search `FILE` for missing snippets (repeatable, searched first)")
	cmd.Flags().StringArrayVar(&f.ignore, "ignore", nil, "skip files matching `GLOB` (repeatable)")
	cmd.Flags().DurationVar(&f.debounce, "debounce", watch.DefaultDebounce, "quiet period before updating")
	return cmd
}

// runWatch updates the matching files, then repeats on every change until
// ctx is canceled. A failed run is reported and the watch continues.
func (a *App) runWatch(ctx context.Context, patterns []string, f watchFlags) error {
	cfg, _, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	logger := a.logger(cfg)

	var w *watch.Watcher
	update := func(ctx context.Context) error {
		files, err := w.Expand()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			logger.Warn("no files match", "patterns", patterns)
			return nil
		}
		paths := make([]string, len(files))
		for i, file := range files {
			paths[i] = w.Display(file)
		}
		return a.runResolve(ctx, paths, f.resolve, false)
	}

	w, err = watch.New(watch.Config{
		Patterns: patterns,
		Files:    append(slices.Clone(f.resolve.includes), cfg.SearchPathStrings()...),
		Ignore:   f.ignore,
		Debounce: f.debounce,
		Stderr:   a.stderr,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("change detected", "files", changed)
			if err := update(ctx); err != nil && !isReported(err) {
				return err
			}
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, watch.ErrInvalidPattern) {
			return &ExitError{Code: exitUsage, Err: err}
		}
		return a.fail(issue.NewErrorContext().
			WithOperation("start watching").
			WithIssue(issue.WatchFailedId).
			WithSuggestion("Raise the inotify watch limit (fs.inotify.max_user_watches) on Linux").
			Wrap(err).
			BuildError(), glamourStyle(cfg))
	}

	// A failed first run is already reported; keep watching for the fix.
	if err := update(ctx); err != nil && !isReported(err) {
		return a.fail(err, glamourStyle(cfg))
	}
	fmt.Fprintf(a.stderr, "%s %s\n", SubtitleStyle.Render("watching"), CmdStyle.Render(fmt.Sprint(patterns)))

	if err := w.Run(ctx); err != nil {
		return a.fail(issue.NewErrorContext().
			WithOperation("watch files").
			WithIssue(issue.WatchFailedId).
			WithSuggestion("Raise the inotify watch limit (fs.inotify.max_user_watches) on Linux").
			Wrap(err).
			BuildError(), glamourStyle(cfg))
	}
	return nil
}

// isReported reports whether err was already rendered by the command.
func isReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.reported
}

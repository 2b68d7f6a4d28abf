// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/snep/snep/internal/config"
	"github.com/snep/snep/internal/conflictedit"
	"github.com/snep/snep/internal/issue"
	"github.com/snep/snep/internal/merge"
	"github.com/snep/snep/internal/resolver"
	"github.com/snep/snep/internal/syncer"
	"github.com/snep/snep/pkg/snippet"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// resolveFlags are shared by sync and update.
type resolveFlags struct {
	left       bool
	right      bool
	purge      bool
	sort       bool
	includes   []string
	keepBackup bool
	dryRun     bool
}

func newSyncCommand(app *App) *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "sync FILE1 FILE2",
		Short: "Merge the snippets of two files and resolve their dependencies",
		Long: `Merge the snippets of two files and resolve their dependencies.

Snippets defined by either file are visible to both. When both files define a
snippet differently, the conflict is resolved with --left (FILE2's version
wins), --right (FILE1's version wins) or, by default, in $VISUAL/$EDITOR.
Each file then receives exactly the snippets its requirements reach, in
dependency order, and its imports container lists the modules they need.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runResolve(cmd.Context(), args, f, true)
		},
	}
	cmd.Flags().BoolVar(&f.left, "left", false, "resolve conflicts with FILE2's definitions")
	cmd.Flags().BoolVar(&f.right, "right", false, "resolve conflicts with FILE1's definitions")
	cmd.MarkFlagsMutuallyExclusive("left", "right")
	addResolveFlags(cmd, &f)
	return cmd
}

func newUpdateCommand(app *App) *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "update FILE...",
		Short: "Resolve the dependencies of each file on its own",
		Long: `Resolve the dependencies of each file on its own.

Every file is rewritten from its own snippets plus the search path. Nothing
is written unless every file resolves.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runResolve(cmd.Context(), args, f, false)
		},
	}
	addResolveFlags(cmd, &f)
	return cmd
}

func addResolveFlags(cmd *cobra.Command, f *resolveFlags) {
	cmd.Flags().BoolVar(&f.purge, "purge", false, "drop snippets nothing requires")
	cmd.Flags().BoolVar(&f.sort, "sort", false, "order snippets by name instead of keeping their positions")
	cmd.Flags().StringArrayVarP(&f.includes, "include", "I", nil, "search `FILE` for missing snippets (repeatable, searched first)")
	cmd.Flags().BoolVar(&f.keepBackup, "keep-backup", false, "keep the .orig backups of rewritten files")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "report what would change without writing")
}

func (f resolveFlags) strategy() merge.Strategy {
	switch {
	case f.left:
		return merge.StrategyLeft
	case f.right:
		return merge.StrategyRight
	default:
		return merge.StrategyInteractive
	}
}

// runResolve runs sync (two files) or update (each file alone), reports the
// outcome and commits the changed files.
func (a *App) runResolve(ctx context.Context, paths []string, f resolveFlags, twoWay bool) error {
	cfg, cfgDiags, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	style := glamourStyle(cfg)
	a.Diagnostics.Render(ctx, cfgDiags, a.stderr)
	logger := a.logger(cfg)

	cache, err := a.newCache(cfg, f.includes)
	if err != nil {
		return a.fail(err, style)
	}
	s := syncer.New(cache)
	opts := syncer.Options{
		Strategy: f.strategy(),
		Purge:    f.purge || cfg.Purge,
		Sort:     f.sort || cfg.Sort,
	}

	var result *syncer.Result
	if twoWay {
		if opts.Strategy == merge.StrategyInteractive {
			if opts.Resolver, err = a.interactiveResolver(ctx, cache, paths[0], paths[1]); err != nil {
				return a.fail(err, style)
			}
		}
		result, err = s.Sync(ctx, paths[0], paths[1], opts)
	} else {
		result, err = updateAll(ctx, s, paths, opts)
	}
	if errors.Is(err, syncer.ErrSameFile) {
		return &ExitError{Code: exitUsage, Err: err}
	}
	if err != nil {
		return a.fail(annotateResolveError(err), style)
	}

	a.Diagnostics.Render(ctx, result.Diagnostics, a.stderr)
	for _, name := range result.Merged {
		logger.Debug("merged conflicting definitions", "snippet", name)
	}

	changed := result.Changed()
	if f.dryRun {
		a.reportFiles(logger, result.Files, "would update")
		return nil
	}

	backups, err := syncer.NewCommitter().Commit(ctx, changed)
	if err != nil {
		if rmErr := a.cleanupBackups(backups, f.keepBackup || cfg.KeepBackup); rmErr != nil {
			logger.Warn("could not remove backups", "error", rmErr)
		}
		ec := issue.NewErrorContext().
			WithOperation("write synchronized files").
			WithIssue(issue.CommitFailedId)
		var exists *syncer.BackupExistsError
		if errors.As(err, &exists) {
			ec.WithPath(exists.Path).
				WithSuggestion("Remove or rename " + exists.Backup + ", which an earlier run left behind")
		} else {
			ec.WithSuggestion("Check that the files and their directories are writable").
				WithSuggestion("Files listed as updated before this error were written")
		}
		return a.fail(ec.Wrap(err).BuildError(), style)
	}
	a.reportFiles(logger, result.Files, "updated")
	if err := a.cleanupBackups(backups, f.keepBackup || cfg.KeepBackup); err != nil {
		logger.Warn("could not remove backups", "error", err)
	}
	return nil
}

// updateAll resolves every file before anything is written.
func updateAll(ctx context.Context, s *syncer.Syncer, paths []string, opts syncer.Options) (*syncer.Result, error) {
	combined := &syncer.Result{}
	seen := map[string]bool{}
	for _, path := range paths {
		r, err := s.Update(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		combined.Files = append(combined.Files, r.Files...)
		// The cache reports search-path diagnostics with every result.
		for _, d := range r.Diagnostics {
			key := d.Code + "\x00" + d.Path + "\x00" + d.Snippet
			if !seen[key] {
				seen[key] = true
				combined.Diagnostics = append(combined.Diagnostics, d)
			}
		}
	}
	return combined, nil
}

// annotateResolveError names the snippet behind a malformed built-in
// reference. Other errors are returned unchanged.
func annotateResolveError(err error) error {
	var builtin *snippet.BuiltinSnippetError
	if !errors.As(err, &builtin) {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("resolve dependencies").
		WithSnippet(builtin.Name).
		WithIssue(issue.InvalidBuiltinId).
		WithSuggestion("Built-in references have the form mod:<identifier>, as in mod:os").
		Wrap(err).
		BuildError()
}

// newCache builds the search-path cache: -I entries first, then the
// configured search path.
func (a *App) newCache(cfg *config.Config, includes []string) (*resolver.Cache, error) {
	det, err := a.detector(cfg)
	if err != nil {
		return nil, err
	}
	searchPath := append(slices.Clone(includes), cfg.SearchPathStrings()...)
	return resolver.New(searchPath, resolver.WithDetector(det)), nil
}

// interactiveResolver returns the injected resolver, or an editor session
// using the comment syntax of the first file.
func (a *App) interactiveResolver(ctx context.Context, cache *resolver.Cache, path1, path2 string) (merge.Resolver, error) {
	if a.Resolver != nil {
		return a.Resolver, nil
	}
	doc, err := cache.Document(ctx, path1)
	if err != nil {
		return nil, err
	}
	return &conflictedit.Editor{
		Syntax: doc.Syntaxes[0],
		Label1: path1,
		Label2: path2,
		In:     a.stdin,
		Out:    a.stderr,
	}, nil
}

func (a *App) reportFiles(logger *log.Logger, files []syncer.FileResult, verb string) {
	for _, file := range files {
		if !file.Changed() {
			logger.Debug("unchanged", "file", file.Path)
			continue
		}
		fmt.Fprintf(a.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), verb, CmdStyle.Render(file.Path))
		logger.Debug("snippets", "file", file.Path, "names", file.Snippets, "modules", file.Modules)
	}
}

func (a *App) cleanupBackups(backups []string, keep bool) error {
	if keep {
		for _, b := range backups {
			fmt.Fprintf(a.stdout, "  %s %s\n", SubtitleStyle.Render("backup"), b)
		}
		return nil
	}
	return syncer.RemoveBackups(backups)
}

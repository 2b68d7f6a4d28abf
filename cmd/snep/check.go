// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/snep/snep/internal/syncer"

	"github.com/spf13/cobra"
)

func newCheckCommand(app *App) *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate files and report the ones update would change",
		Long: `Validate files and report the ones update would change.

Each file is parsed, validated and resolved exactly as 'snep update' would,
but nothing is written. Every file is validated first, so all invalid files
are listed. The command fails when any file is invalid or out of date.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCheck(cmd.Context(), args, f)
		},
	}
	cmd.Flags().BoolVar(&f.purge, "purge", false, "treat unrequired snippets as out of date")
	cmd.Flags().BoolVar(&f.sort, "sort", false, "expect snippets ordered by name")
	cmd.Flags().StringArrayVarP(&f.includes, "include", "I", nil, "search `FILE` for missing snippets (repeatable, searched first)")
	return cmd
}

func (a *App) runCheck(ctx context.Context, paths []string, f resolveFlags) error {
	cfg, cfgDiags, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	style := glamourStyle(cfg)
	a.Diagnostics.Render(ctx, cfgDiags, a.stderr)

	cache, err := a.newCache(cfg, f.includes)
	if err != nil {
		return a.fail(err, style)
	}
	s := syncer.New(cache)

	// Every file is validated before any is resolved so that one run lists
	// all broken files.
	var valid []string
	invalid := 0
	for _, path := range paths {
		if _, err := s.Check(ctx, path); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			invalid++
			fmt.Fprintf(a.stdout, "%s %s %s\n", ErrorStyle.Render("✗"), CmdStyle.Render(path), ErrorStyle.Render("invalid"))
			renderFailure(a.stderr, annotateResolveError(err), a.flags.verbose, style)
			continue
		}
		valid = append(valid, path)
	}

	stale := 0
	if len(valid) > 0 {
		result, err := updateAll(ctx, s, valid, syncer.Options{
			Purge: f.purge || cfg.Purge,
			Sort:  f.sort || cfg.Sort,
		})
		if err != nil {
			return a.fail(annotateResolveError(err), style)
		}
		a.Diagnostics.Render(ctx, result.Diagnostics, a.stderr)

		for _, file := range result.Files {
			if file.Changed() {
				stale++
				fmt.Fprintf(a.stdout, "%s %s %s\n", WarningStyle.Render("✗"), CmdStyle.Render(file.Path), WarningStyle.Render("out of date"))
				continue
			}
			fmt.Fprintf(a.stdout, "%s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(file.Path))
		}
	}

	if invalid > 0 || stale > 0 {
		return &ExitError{
			Code:     exitFailure,
			Err:      fmt.Errorf("%d invalid and %d out of date of %d file(s)", invalid, stale, len(paths)),
			reported: true,
		}
	}
	return nil
}

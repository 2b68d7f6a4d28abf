// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/snep/snep/internal/depgraph"
	"github.com/snep/snep/internal/issue"
	"github.com/snep/snep/internal/merge"
	"github.com/snep/snep/internal/syncer"
	"github.com/snep/snep/pkg/markup"
	"github.com/snep/snep/pkg/snippet"
)

// classifyError maps a fatal error to an issue catalog ID. Zero means no
// catalog entry applies.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	var cycle *depgraph.CycleError
	switch {
	case errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, markup.ErrParse):
		return issue.ParseErrorId
	case errors.Is(err, markup.ErrUnknownSyntax):
		return issue.UnknownSyntaxId
	case errors.Is(err, syncer.ErrValidation):
		return issue.ValidationFailedId
	case errors.Is(err, merge.ErrMergeInconsistent):
		return issue.MergeInconsistentId
	case errors.Is(err, merge.ErrMergeCanceled):
		return issue.MergeCanceledId
	case errors.As(err, &cycle):
		return issue.DependencyCycleId
	case errors.Is(err, snippet.ErrInvalidBuiltin):
		return issue.InvalidBuiltinId
	case errors.Is(err, fs.ErrNotExist):
		return issue.FileNotFoundId
	default:
		return 0
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderFailure prints err and, when one applies, its issue catalog entry.
func renderFailure(stderr io.Writer, err error, verbose bool, style string) {
	fmt.Fprintf(stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	if entry := issue.Get(id); entry != nil {
		if rendered, renderErr := entry.Render(style); renderErr == nil {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// fail renders err and returns the ExitError that carries the exit status.
// Errors that already carry a status are returned unchanged.
func (a *App) fail(err error, style string) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	renderFailure(a.stderr, err, a.flags.verbose, style)
	return &ExitError{Code: exitFailure, Err: err, reported: true}
}

// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a fatal error annotated for the user: what snep was
	// doing, which file and snippet were involved, and how to recover.
	//
	// Build one with ErrorContext:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("sync snippets").
	//		WithPath("./utils.py").
	//		WithSuggestion("Run 'snep check ./utils.py' to locate the problem").
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase ("sync snippets", "load configuration").
		Operation string
		// Path is the file involved, if any.
		Path string
		// Snippet is the snippet involved, if any.
		Snippet string
		// Issue is the catalog entry explaining this class of failure.
		Issue Id
		// Suggestions are recovery hints, most useful first.
		Suggestions []string
		// Cause is the underlying error.
		Cause error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Wrap annotates err with the operation and the file it concerned. path may be
// empty. It returns nil when err is nil.
func Wrap(err error, operation, path string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Path: path, Cause: err}
}

// Error renders "failed to <operation>: <path>: snippet "<name>": <cause>",
// leaving out the parts that are not set.
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	if e.Snippet != "" {
		parts = append(parts, fmt.Sprintf("snippet %q", e.Snippet))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause for errors.Is and errors.As.
func (e *ActionableError) Unwrap() error { return e.Cause }

// Format renders the error followed by its suggestions. Verbose output also
// lists every error in the cause chain:
//
//	failed to sync snippets: a.py: merge canceled
//
//	  • Use --left or --right
//
//	Error chain:
//	  1. merge canceled
func (e *ActionableError) Format(verbose bool) string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		sb.WriteString("\n")
		for _, s := range e.Suggestions {
			sb.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		sb.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&sb, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}
	return sb.String()
}

// WithOperation sets the operation. An ErrorContext without one builds nil.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithPath sets the file involved.
func (c *ErrorContext) WithPath(path string) *ErrorContext {
	c.err.Path = path
	return c
}

// WithSnippet sets the snippet involved.
func (c *ErrorContext) WithSnippet(name string) *ErrorContext {
	c.err.Snippet = name
	return c
}

// WithIssue links the catalog entry rendered below the error.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// WithSuggestion appends a recovery hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// Wrap sets the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns the ActionableError, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build for return statements; it avoids a typed nil error.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package resolver

import "fmt"

const (
	// SeverityWarning indicates a recoverable resolution warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal error diagnostic.
	SeverityError Severity = "error"
)

const (
	// CodeSearchPathUnreadable marks a search-path entry that could not be read.
	CodeSearchPathUnreadable = "search_path_unreadable"
	// CodeSearchPathNoSnips marks a search-path document without a usable snips container.
	CodeSearchPathNoSnips = "search_path_no_snips"
	// CodeSnippetMissing marks a required snippet that no document defines.
	CodeSnippetMissing = "snippet_missing"
	// CodeSnippetDeleted marks a snippet that will be removed from a document.
	CodeSnippetDeleted = "snippet_deleted"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a structured, non-fatal finding returned to callers
	// (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "snippet_missing").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Snippet is the snippet name associated with this diagnostic (optional).
		Snippet string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// String formats the diagnostic as "path: message".
func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

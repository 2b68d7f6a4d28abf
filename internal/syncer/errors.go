// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"errors"
	"fmt"

	"github.com/snep/snep/internal/resolver"
)

// Validation error codes.
const (
	CodeDuplicateContainer = "duplicate_container"
	CodeNonuniqueSnippet   = "nonunique_snippet"
	CodeSnipsGarbage       = "snips_garbage"
	CodeMalformedImports   = "malformed_imports"
	CodeMissingImports     = "missing_imports_container"
	CodeMissingSnips       = "missing_snips_container"
)

var (
	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("document validation failed")

	// ErrSameFile is returned when both sides of a sync name one file.
	ErrSameFile = errors.New("cannot sync a file with itself")

	// ErrBackupExists is the sentinel wrapped by BackupExistsError.
	ErrBackupExists = errors.New("backup file already exists")
)

type (
	// ValidationError reports a document whose structure snep cannot manage.
	ValidationError struct {
		Path    string
		Line    int
		Code    string
		Message string
	}

	// BackupExistsError reports a file whose backup path is taken, so
	// committing it would destroy the earlier backup.
	BackupExistsError struct {
		Path   string
		Backup string
	}

	// Diagnostic is a non-fatal finding returned with a sync result.
	Diagnostic = resolver.Diagnostic
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Error implements the error interface.
func (e *BackupExistsError) Error() string {
	return fmt.Sprintf("cannot back up %s: %s already exists", e.Path, e.Backup)
}

// Unwrap returns ErrBackupExists for errors.Is() compatibility.
func (e *BackupExistsError) Unwrap() error { return ErrBackupExists }

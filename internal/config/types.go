// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/snep/snep/pkg/markup"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidSearchPathEntry is the sentinel error wrapped by InvalidSearchPathEntryError.
	ErrInvalidSearchPathEntry = errors.New("invalid search path entry")
	// ErrInvalidExtension is the sentinel error wrapped by InvalidExtensionError.
	ErrInvalidExtension = errors.New("invalid file extension")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// SearchPathEntry is a document searched for snippets. It must not be
	// empty or whitespace-only.
	SearchPathEntry string

	// InvalidSearchPathEntryError is returned when a SearchPathEntry is blank.
	InvalidSearchPathEntryError struct {
		Value SearchPathEntry
	}

	// InvalidExtensionError is returned when a syntaxes key is not a bare
	// extension.
	InvalidExtensionError struct {
		Value string
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// SearchPath lists documents searched for snippets, highest priority first.
		SearchPath []SearchPathEntry `json:"search_path" mapstructure:"search_path"`
		// Sort orders snippets by name instead of keeping their positions.
		Sort bool `json:"sort" mapstructure:"sort"`
		// Purge drops snippets that nothing requires any more.
		Purge bool `json:"purge" mapstructure:"purge"`
		// KeepBackup keeps the .orig backups written while committing.
		KeepBackup bool `json:"keep_backup" mapstructure:"keep_backup"`
		// Syntaxes maps file extensions (without the dot) to comment syntaxes.
		Syntaxes map[string]markup.SyntaxName `json:"syntaxes" mapstructure:"syntaxes"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchPath: []SearchPathEntry{},
		Syntaxes:   map[string]markup.SyntaxName{},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// SearchPathStrings returns the search path as plain paths.
func (c Config) SearchPathStrings() []string {
	out := make([]string, len(c.SearchPath))
	for i, e := range c.SearchPath {
		out[i] = string(e)
	}
	return out
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme so callers can use errors.Is for programmatic detection.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the SearchPathEntry.
func (p SearchPathEntry) String() string { return string(p) }

// IsValid returns whether the SearchPathEntry is non-blank.
func (p SearchPathEntry) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidSearchPathEntryError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSearchPathEntryError.
func (e *InvalidSearchPathEntryError) Error() string {
	return fmt.Sprintf("invalid search path entry %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidSearchPathEntry for errors.Is() compatibility.
func (e *InvalidSearchPathEntryError) Unwrap() error { return ErrInvalidSearchPathEntry }

// Error implements the error interface for InvalidExtensionError.
func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid file extension %q: use the bare extension without a dot", e.Value)
}

// Unwrap returns ErrInvalidExtension for errors.Is() compatibility.
func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to each SearchPath entry, each syntax name and UI.IsValid().
// Bool fields need no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, entry := range c.SearchPath {
		if valid, fieldErrs := entry.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	for ext, name := range c.Syntaxes {
		if ext == "" || strings.ContainsAny(ext, "./\\") {
			errs = append(errs, &InvalidExtensionError{Value: ext})
		}
		if valid, fieldErrs := name.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

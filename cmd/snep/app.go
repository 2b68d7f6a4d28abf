// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/snep/snep/internal/config"
	"github.com/snep/snep/internal/merge"
	"github.com/snep/snep/internal/resolver"
	"github.com/snep/snep/pkg/markup"

	"github.com/charmbracelet/log"
)

// codeConfigLoadFailed marks a configuration file that could not be used.
const codeConfigLoadFailed = "config_load_failed"

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: all Cobra command handlers receive an App reference.
	App struct {
		Config      ConfigProvider
		Diagnostics DiagnosticRenderer
		// Resolver overrides the editor-based interactive merge when set.
		Resolver merge.Resolver
		stdin    io.Reader
		stdout   io.Writer
		stderr   io.Writer
		flags    globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config      ConfigProvider
		Diagnostics DiagnosticRenderer
		Resolver    merge.Resolver
		Stdin       io.Reader
		Stdout      io.Writer
		Stderr      io.Writer
	}

	// DiagnosticRenderer renders structured diagnostics.
	DiagnosticRenderer interface {
		Render(ctx context.Context, diags []resolver.Diagnostic, stderr io.Writer)
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	defaultDiagnosticRenderer struct{}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = &defaultDiagnosticRenderer{}
	}

	return &App{
		Config:      deps.Config,
		Diagnostics: deps.Diagnostics,
		Resolver:    deps.Resolver,
		stdin:       deps.Stdin,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}, nil
}

// logger returns the stderr logger for this invocation. Debug output is only
// shown in verbose mode.
func (a *App) logger(cfg *config.Config) *log.Logger {
	level := log.WarnLevel
	if a.flags.verbose || (cfg != nil && cfg.UI.Verbose) {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// loadConfig loads configuration via the provider. On failure it returns
// defaults with a diagnostic so callers stay operational.
//
// An explicit --config path must load: its failure is returned as an error.
// A broken default config file is reported as an error diagnostic and
// defaults are used.
func (a *App) loadConfig(ctx context.Context) (*config.Config, []resolver.Diagnostic, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err == nil {
		return cfg, nil, nil
	}
	if a.flags.configPath != "" || ctx.Err() != nil {
		return nil, nil, err
	}
	return config.DefaultConfig(), []resolver.Diagnostic{{
		Severity: resolver.SeverityError,
		Code:     codeConfigLoadFailed,
		Message:  fmt.Sprintf("failed to load config, using defaults: %v", err),
		Cause:    err,
	}}, nil
}

// detector builds the syntax detector from the --syntax flag and the
// configured extension map.
func (a *App) detector(cfg *config.Config) (markup.Detector, error) {
	forced := markup.SyntaxName(a.flags.syntax)
	if forced != "" {
		if valid, errs := forced.IsValid(); !valid {
			return markup.Detector{}, &ExitError{Code: exitUsage, Err: errs[0]}
		}
	}
	return markup.Detector{Forced: forced, Extensions: cfg.Syntaxes}, nil
}

// glamourStyle maps the configured color scheme to a glamour style name.
func glamourStyle(cfg *config.Config) string {
	if cfg == nil {
		return "auto"
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// Render writes structured diagnostics to stderr through a charm logger.
func (r *defaultDiagnosticRenderer) Render(_ context.Context, diags []resolver.Diagnostic, stderr io.Writer) {
	if len(diags) == 0 {
		return
	}
	logger := log.NewWithOptions(stderr, log.Options{Prefix: config.AppName})
	for _, diag := range diags {
		keyvals := []any{"code", diag.Code}
		if diag.Path != "" {
			keyvals = append(keyvals, "file", diag.Path)
		}
		if diag.Snippet != "" {
			keyvals = append(keyvals, "snippet", diag.Snippet)
		}
		if diag.Severity == resolver.SeverityError {
			logger.Error(diag.Message, keyvals...)
			continue
		}
		logger.Warn(diag.Message, keyvals...)
	}
}

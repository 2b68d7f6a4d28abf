// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/snep/snep/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `snep config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage snep configuration",
		Long: `Manage snep configuration.

Configuration is stored in:
  - Linux: ~/.config/snep/config.cue
  - macOS: ~/Library/Application Support/snep/config.cue
  - Windows: %APPDATA%\snep\config.cue

SNEP_SEARCH_PATH, SNEP_SORT, SNEP_PURGE, SNEP_KEEP_BACKUP and SNEP_VERBOSE
override the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfigPath(cmd.Context())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.configPath})
			if err != nil {
				return app.fail(err, glamourStyle(nil))
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context) error {
	cfg, path, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(a.stdout)
	if path == "" {
		fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(a.stdout)

	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("search_path"))
	if len(cfg.SearchPath) == 0 {
		fmt.Fprintf(a.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, p := range cfg.SearchPath {
		fmt.Fprintf(a.stdout, "  - %s\n", valueStyle.Render(p.String()))
	}
	fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("sort"), valueStyle.Render(fmt.Sprint(cfg.Sort)))
	fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("purge"), valueStyle.Render(fmt.Sprint(cfg.Purge)))
	fmt.Fprintf(a.stdout, "%s: %s\n", keyStyle.Render("keep_backup"), valueStyle.Render(fmt.Sprint(cfg.KeepBackup)))

	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("syntaxes"))
	if len(cfg.Syntaxes) == 0 {
		fmt.Fprintf(a.stdout, "  %s\n", SubtitleStyle.Render("(guessed from extension and shebang)"))
	}
	pairs := make([]string, 0, len(cfg.Syntaxes))
	for ext, name := range cfg.Syntaxes {
		pairs = append(pairs, fmt.Sprintf("  .%s: %s", ext, valueStyle.Render(string(name))))
	}
	slices.Sort(pairs)
	if len(pairs) > 0 {
		fmt.Fprintln(a.stdout, strings.Join(pairs, "\n"))
	}

	fmt.Fprintf(a.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(a.stdout, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(a.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}

func (a *App) initConfig() error {
	path, created, err := config.CreateDefaultConfig(config.LoadOptions{})
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	if !created {
		fmt.Fprintf(a.stdout, "%s Config file already exists: %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(a.stdout, "%s Created config file: %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func (a *App) showConfigPath(ctx context.Context) error {
	_, path, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	if path != "" {
		fmt.Fprintln(a.stdout, path)
		return nil
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	fmt.Fprintf(a.stdout, "%s %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt), SubtitleStyle.Render("(not created)"))
	return nil
}

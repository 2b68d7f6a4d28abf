// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/snep/snep/internal/issue"
	"github.com/snep/snep/internal/testutil"
	"github.com/snep/snep/pkg/markup"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	return testutil.MustWriteFile(t, dir, ConfigFileName+"."+ConfigFileExt, content)
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if cfg.Sort || cfg.Purge || cfg.KeepBackup || cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Syntaxes == nil {
		t.Error("Syntaxes should be an empty map, not nil")
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
search_path: ["lib/common.py", "/abs/shared.h"]
sort: true
keep_backup: true
syntaxes: {txt: "sh", cxx: "c++"}
ui: {color_scheme: "dark", verbose: true}
`)

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if path != want {
		t.Errorf("resolved path = %q, want %q", path, want)
	}
	if !cfg.Sort || cfg.Purge || !cfg.KeepBackup {
		t.Errorf("flags = sort:%v purge:%v keep_backup:%v", cfg.Sort, cfg.Purge, cfg.KeepBackup)
	}
	wantPath := []string{filepath.Join(dir, "lib/common.py"), "/abs/shared.h"}
	if got := cfg.SearchPathStrings(); !slices.Equal(got, wantPath) {
		t.Errorf("SearchPath = %v, want %v", got, wantPath)
	}
	if cfg.Syntaxes["txt"] != markup.SyntaxSh || cfg.Syntaxes["cxx"] != markup.SyntaxCpp {
		t.Errorf("Syntaxes = %v", cfg.Syntaxes)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark || !cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestLoad_WorkingDirectoryFallback(t *testing.T) {
	// Not parallel: changes the working directory.
	wd := t.TempDir()
	writeConfig(t, wd, "purge: true\n")
	testutil.MustChdir(t, wd)

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if path != ConfigFileName+"."+ConfigFileExt || !cfg.Purge {
		t.Errorf("path = %q purge = %v, want the working directory config", path, cfg.Purge)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "sort: true\n")
	explicit := filepath.Join(t.TempDir(), "other.cue")
	if err := os.WriteFile(explicit, []byte("purge: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{ConfigFilePath: explicit, ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if path != explicit || !cfg.Purge || cfg.Sort {
		t.Errorf("explicit file must be used exclusively: path=%q cfg=%+v", path, cfg)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T: %v", err, err)
	}
	if ae.Issue != issue.ConfigLoadFailedId {
		t.Errorf("Issue = %v, want ConfigLoadFailedId", ae.Issue)
	}
}

func TestLoad_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"wrong type", "sort: \"yes\"\n", "sort"},
		{"unknown field", "frobnicate: 1\n", "frobnicate"},
		{"bad color scheme", "ui: {color_scheme: \"neon\"}\n", "ui.color_scheme"},
		{"bad syntax", "syntaxes: {py: \"cobol\"}\n", "syntaxes.py"},
		{"empty search entry", "search_path: [\"\"]\n", "search_path[0]"},
		{"invalid cue", "sort: [\n", "config.cue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := LoadWithPath(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "search_path: [\"from-file.py\"]\nsort: false\n")

	t.Setenv("SNEP_SORT", "true")
	t.Setenv("SNEP_VERBOSE", "1")
	t.Setenv(EnvSearchPath, strings.Join([]string{"/a.py", "", "/b.py"}, string(os.PathListSeparator)))

	cfg, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if !cfg.Sort || !cfg.UI.Verbose {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if got := cfg.SearchPathStrings(); !slices.Equal(got, []string{"/a.py", "/b.py"}) {
		t.Errorf("SearchPath = %v", got)
	}
}

func TestGenerateCUE_LoadsBack(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SearchPath = []SearchPathEntry{"/x/common.sh"}
	cfg.Purge = true
	cfg.Syntaxes = map[string]markup.SyntaxName{"b": markup.SyntaxC, "a": markup.SyntaxHaskell}
	cfg.UI.ColorScheme = ColorSchemeLight

	out := GenerateCUE(cfg)
	if strings.Index(out, `"a": "hs"`) > strings.Index(out, `"b": "c"`) {
		t.Errorf("syntaxes should be emitted in key order:\n%s", out)
	}

	dir := t.TempDir()
	writeConfig(t, dir, out)
	got, _, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, out)
	}
	if !got.Purge || got.UI.ColorScheme != ColorSchemeLight || got.Syntaxes["a"] != markup.SyntaxHaskell {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if s := got.SearchPathStrings(); !slices.Equal(s, []string{"/x/common.sh"}) {
		t.Errorf("SearchPath = %v", s)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", AppName)
	path, created, err := CreateDefaultConfig(LoadOptions{ConfigDirPath: dir})
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, created, err)
	}
	if err := os.WriteFile(path, []byte("sort: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	again, created, err := CreateDefaultConfig(LoadOptions{ConfigDirPath: dir})
	if err != nil || created || again != path {
		t.Errorf("second call = %q, %v, %v; want existing file untouched", again, created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "sort: true\n" {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

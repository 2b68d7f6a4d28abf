// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/snep/snep/internal/depgraph"
	"github.com/snep/snep/internal/merge"
	"github.com/snep/snep/internal/resolver"
	"github.com/snep/snep/pkg/markup"
)

type resolverFunc func(ctx context.Context, side1, side2 map[string]string) (map[string]string, error)

func (f resolverFunc) Resolve(ctx context.Context, side1, side2 map[string]string) (map[string]string, error) {
	return f(ctx, side1, side2)
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newSyncer(searchPath ...string) *Syncer {
	return New(resolver.New(searchPath))
}

func TestSync_SharedPool(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@requires: b\n#@snips[\n#@a[\na body\n#@]\n\n#@b[\n#@requires: a\nb body\n#@]\n#@]\n",
		"two.py": "#@requires: b\nx = 1\n#@snips[\n#@]\n",
	})
	res, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft})
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if res.Files[0].Changed() {
		t.Errorf("one.py must not change:\n%s", res.Files[0].Rendered)
	}
	want := "#@requires: b\nx = 1\n#@snips[\n#@a[\na body\n#@]\n\n#@b[\n#@requires: a\nb body\n#@]\n#@]\n"
	if got := res.Files[1].Rendered; got != want {
		t.Errorf("two.py =\n%s\nwant\n%s", got, want)
	}
	if !slices.Equal(res.Files[1].Snippets, []string{"a", "b"}) {
		t.Errorf("two.py snippets = %v", res.Files[1].Snippets)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestSync_LeftStrategy(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@snips[\n#@x[\nold\n#@]\n#@]\n",
		"two.py": "#@snips[\n#@x[\nnew\n#@]\n#@]\n",
	})
	res, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft})
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if !slices.Equal(res.Merged, []string{"x"}) {
		t.Errorf("Merged = %v", res.Merged)
	}
	for _, f := range res.Files {
		if f.Rendered != "#@snips[\n#@x[\nnew\n#@]\n#@]\n" {
			t.Errorf("%s =\n%s", f.Path, f.Rendered)
		}
	}
	if !res.Files[0].Changed() || res.Files[1].Changed() {
		t.Error("only one.py should change")
	}
}

func TestSync_Modules(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@imports[\n#@]\n#@requires: rm\n#@snips[\n#@rm[\n#@requires: mod:os\nos.remove(p)\n#@]\n#@]\n",
		"two.py": "#@imports[\nimport sys\n#@]\n#@snips[\n#@]\n",
	})
	res, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft, Purge: true})
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	one := res.Files[0]
	if !strings.HasPrefix(one.Rendered, "#@imports[\nimport os\n#@]\n") {
		t.Errorf("one.py =\n%s", one.Rendered)
	}
	if !slices.Equal(one.Modules, []string{"os"}) || !slices.Equal(one.Snippets, []string{"rm"}) {
		t.Errorf("modules=%v snippets=%v", one.Modules, one.Snippets)
	}
	// two.py requires nothing, so purge empties its imports.
	if res.Files[1].Rendered != "#@imports[\n#@]\n#@snips[\n#@]\n" {
		t.Errorf("two.py =\n%s", res.Files[1].Rendered)
	}
	for _, d := range res.Diagnostics {
		if d.Snippet == "mod:os" {
			t.Errorf("mod:os reported as %s", d.Code)
		}
	}
}

func TestSync_ValidationBeforeMerge(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@snips[\n#@x[\na\n#@]\n#@]\n",
		"two.py": "#@snips[\nstray = 1\n#@x[\nb\n#@]\n#@]\n",
	})
	r := resolverFunc(func(context.Context, map[string]string, map[string]string) (map[string]string, error) {
		t.Error("merge must not start on an invalid document")
		return nil, nil
	})
	_, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyInteractive, Resolver: r})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Code != CodeSnipsGarbage || ve.Line != 2 {
		t.Fatalf("expected snips_garbage ValidationError on line 2, got %v", err)
	}
}

func TestSync_MergeConsistency(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@snips[\n#@x[\na\n#@]\n#@]\n",
		"two.py": "#@snips[\n#@x[\nb\n#@]\n#@]\n",
	})
	r := resolverFunc(func(context.Context, map[string]string, map[string]string) (map[string]string, error) {
		return map[string]string{}, nil
	})
	_, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyInteractive, Resolver: r})
	if !errors.Is(err, merge.ErrMergeInconsistent) {
		t.Fatalf("expected ErrMergeInconsistent, got %v", err)
	}
}

func TestSync_SearchPathAndWarnings(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"lib.py": "#@snips[\n#@helper[\nhelp\n#@]\n#@]\n",
		"one.py": "#@requires: helper ghost\n#@snips[\n#@stale[\n#@]\n#@]\n",
		"two.py": "#@snips[\n#@]\n",
	})
	s := newSyncer(filepath.Join(dir, "nope.py"), filepath.Join(dir, "lib.py"))
	res, err := s.Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft, Purge: true})
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := res.Files[0].Rendered; got != "#@requires: helper ghost\n#@snips[\n#@helper[\nhelp\n#@]\n#@]\n" {
		t.Errorf("one.py =\n%s", got)
	}
	codes := make([]string, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		codes[i] = d.Code
	}
	want := []string{resolver.CodeSearchPathUnreadable, resolver.CodeSnippetMissing, resolver.CodeSnippetDeleted}
	if !slices.Equal(codes, want) {
		t.Errorf("diagnostic codes = %v, want %v", codes, want)
	}
}

func TestSync_MissingContainers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		one  string
		code string
	}{
		{"no imports", "#@snips[\n#@rm[\n#@requires: mod:os\n#@]\n#@]\n", CodeMissingImports},
		{"no snips", "#@requires: b\n", CodeMissingSnips},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := writeFiles(t, map[string]string{
				"one.py": tt.one,
				"two.py": "#@snips[\n#@b[\n#@]\n#@]\n",
			})
			_, err := newSyncer().Sync(context.Background(),
				filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft})
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Code != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestSync_Cycle(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@snips[\n#@a[\n#@requires: b\n#@]\n#@b[\n#@requires: a\n#@]\n#@]\n",
		"two.py": "#@snips[\n#@]\n",
	})
	_, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft})
	var cycleErr *depgraph.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestSync_ParseError(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.py": "#@snips[\n",
		"two.py": "#@snips[\n#@]\n",
	})
	_, err := newSyncer().Sync(context.Background(),
		filepath.Join(dir, "one.py"), filepath.Join(dir, "two.py"), Options{Strategy: merge.StrategyLeft})
	if !errors.Is(err, markup.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestUpdate_SortAndOrder(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"one.sh": "#@snips[\n\n#@z[\n#@requires: m\n#@]\n\n#@m[\n#@]\n\n#@]\n",
	})
	path := filepath.Join(dir, "one.sh")

	res, err := newSyncer().Update(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	want := "#@snips[\n\n#@m[\n#@]\n\n#@z[\n#@requires: m\n#@]\n\n#@]\n"
	if got := res.Files[0].Rendered; got != want {
		t.Errorf("Update() =\n%q\nwant\n%q", got, want)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"ok.py":  "#@snips[\n#@x[\na\n#@]\n#@]\n",
		"bad.py": "#@snips[\n#@x[\na\n#@]\n#@x[\nb\n#@]\n#@]\n",
	})
	s := newSyncer()

	doc, err := s.Check(context.Background(), filepath.Join(dir, "ok.py"))
	if err != nil {
		t.Fatalf("Check(ok.py) error: %v", err)
	}
	if _, ok := doc.Snips(); !ok {
		t.Error("Check(ok.py) returned a document without its snips container")
	}

	_, err = s.Check(context.Background(), filepath.Join(dir, "bad.py"))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Code != CodeNonuniqueSnippet {
		t.Fatalf("expected nonunique_snippet ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError must wrap ErrValidation")
	}
}

func TestSync_AcrossSyntaxes(t *testing.T) {
	t.Parallel()

	const (
		libPy = "#@snips[\n#@a[\n#@requires: c\nA\n#@]\n#@c[\nC\n#@]\n#@]\n"
		useHs = "-- @requires: a\n-- @snips[\n-- @]\n"
		want  = "-- @requires: a\n-- @snips[\n-- @c[\nC\n-- @]\n\n-- @a[\n-- @requires: c\nA\n-- @]\n-- @]\n"
	)

	tests := []struct {
		name string
		run  func(s *Syncer, dir string) (*Result, error)
		file int
	}{
		{"sync", func(s *Syncer, dir string) (*Result, error) {
			return s.Sync(context.Background(), filepath.Join(dir, "a.py"), filepath.Join(dir, "b.hs"), Options{Strategy: merge.StrategyLeft})
		}, 1},
		{"search path", func(_ *Syncer, dir string) (*Result, error) {
			return newSyncer(filepath.Join(dir, "a.py")).Update(context.Background(), filepath.Join(dir, "b.hs"), Options{})
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := writeFiles(t, map[string]string{"a.py": libPy, "b.hs": useHs})
			res, err := tt.run(newSyncer(), dir)
			if err != nil {
				t.Fatalf("run error: %v", err)
			}
			got := res.Files[tt.file].Rendered
			if got != want {
				t.Fatalf("b.hs =\n%q\nwant\n%q", got, want)
			}

			path := filepath.Join(dir, "b.hs")
			if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
				t.Fatal(err)
			}
			again, err := newSyncer().Update(context.Background(), path, Options{})
			if err != nil {
				t.Fatalf("Update() of the rewritten file error: %v", err)
			}
			if again.Files[0].Changed() {
				t.Errorf("rewritten b.hs is not stable:\n%s", again.Files[0].Rendered)
			}
		})
	}
}

func TestSync_SameFile(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"a.py": "#@snips[\n#@]\n"})
	path := filepath.Join(dir, "a.py")
	link := filepath.Join(dir, "link.py")
	linked := os.Symlink(path, link) == nil

	pairs := [][2]string{{path, path}, {path, filepath.Join(dir, "sub", "..", "a.py")}}
	if linked {
		pairs = append(pairs, [2]string{path, link})
	}
	for _, p := range pairs {
		if _, err := newSyncer().Sync(context.Background(), p[0], p[1], Options{Strategy: merge.StrategyLeft}); !errors.Is(err, ErrSameFile) {
			t.Errorf("Sync(%s, %s) error = %v, want ErrSameFile", p[0], p[1], err)
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

package merge

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/snep/snep/pkg/markup"
	"github.com/snep/snep/pkg/snipdoc"
)

type resolverFunc func(ctx context.Context, side1, side2 map[string]string) (map[string]string, error)

func (f resolverFunc) Resolve(ctx context.Context, side1, side2 map[string]string) (map[string]string, error) {
	return f(ctx, side1, side2)
}

func side(t *testing.T, src string) Side {
	t.Helper()
	sh, _ := markup.Lookup(markup.SyntaxSh)
	doc, err := markup.Parse(src, t.Name(), sh)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	snips, err := doc.GetElement("snips")
	if err != nil {
		t.Fatalf("GetElement(snips): %v", err)
	}
	return Side{Snips: snips, Syntaxes: []markup.Syntax{sh}}
}

const (
	doc1Src = "#@snips[\n#@x[\none\n#@]\n#@y[\nsame\n#@]\n#@only1[\n#@]\n#@]\n"
	doc2Src = "#@snips[\n#@y[\nsame\n#@]\n#@x[\n#@requires: y\ntwo\n#@]\n#@]\n"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	c := Detect(side(t, doc1Src), side(t, doc2Src))
	if got := c.Names(); !slices.Equal(got, []string{"x"}) {
		t.Fatalf("Names() = %v, want [x]", got)
	}
	if c.Side1["x"] != "one\n" {
		t.Errorf("Side1[x] = %q", c.Side1["x"])
	}
	if c.Side2["x"] != "#@requires: y\ntwo\n" {
		t.Errorf("Side2[x] = %q", c.Side2["x"])
	}
}

func TestMerge_Strategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strategy Strategy
		wantBody string
	}{
		{StrategyLeft, "#@requires: y\ntwo\n"},
		{StrategyRight, "one\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			t.Parallel()
			s1, s2 := side(t, doc1Src), side(t, doc2Src)
			snips1, snips2, merged, err := Merge(context.Background(), s1, s2, tt.strategy, nil)
			if err != nil {
				t.Fatalf("Merge() error: %v", err)
			}
			if !slices.Equal(merged, []string{"x"}) {
				t.Errorf("merged = %v", merged)
			}
			x1, _ := snips1.GetElement("x")
			x2, _ := snips2.GetElement("x")
			if !x1.Equal(x2) {
				t.Error("both sides must agree on x after merging")
			}
			if got := x1.WithoutName().Render(s1.Syntaxes[0]); got != tt.wantBody {
				t.Errorf("x body = %q, want %q", got, tt.wantBody)
			}
			// Snippets outside the conflict set are untouched.
			only1, _ := snips1.GetElement("only1")
			orig, _ := s1.Snips.GetElement("only1")
			if only1 != orig {
				t.Error("only1 must be left untouched")
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	s1, s2 := side(t, doc1Src), side(t, doc2Src)
	snips1, snips2, _, err := Merge(context.Background(), s1, s2, StrategyLeft, nil)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	s1.Snips, s2.Snips = snips1, snips2
	if c := Detect(s1, s2); c.Len() != 0 {
		t.Errorf("second Detect() found conflicts: %v", c.Names())
	}
	again1, again2, merged, err := Merge(context.Background(), s1, s2, StrategyLeft, nil)
	if err != nil {
		t.Fatalf("second Merge() error: %v", err)
	}
	if len(merged) != 0 || !again1.Equal(snips1) || !again2.Equal(snips2) {
		t.Error("merging merged documents must be a no-op")
	}
}

func TestMerge_Interactive(t *testing.T) {
	t.Parallel()

	r := resolverFunc(func(_ context.Context, side1, side2 map[string]string) (map[string]string, error) {
		if side1["x"] != "one\n" || side2["x"] == "" {
			t.Errorf("unexpected resolver input %v / %v", side1, side2)
		}
		return map[string]string{"x": "#@requires: y\nboth"}, nil
	})
	snips1, snips2, _, err := Merge(context.Background(), side(t, doc1Src), side(t, doc2Src), StrategyInteractive, r)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	x1, _ := snips1.GetElement("x")
	x2, _ := snips2.GetElement("x")
	if !x1.Equal(x2) {
		t.Error("both sides must agree on x")
	}
	if v, _ := x1.Attr("requires"); v != "y" {
		t.Errorf("x requires = %q, want y", v)
	}
	if x1.TextContent() != "both\n" {
		t.Errorf("x text = %q", x1.TextContent())
	}
}

func TestMerge_InteractiveErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resolved map[string]string
		err      error
		check    func(t *testing.T, err error)
	}{
		{
			name: "canceled",
			err:  ErrMergeCanceled,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMergeCanceled) {
					t.Errorf("expected ErrMergeCanceled, got %v", err)
				}
			},
		},
		{
			name:     "inconsistent",
			resolved: map[string]string{"y": "z\n"},
			check: func(t *testing.T, err error) {
				var mce *MergeConsistencyError
				if !errors.As(err, &mce) {
					t.Fatalf("expected *MergeConsistencyError, got %v", err)
				}
				if !slices.Equal(mce.Added, []string{"y"}) || !slices.Equal(mce.Removed, []string{"x"}) {
					t.Errorf("Added=%v Removed=%v", mce.Added, mce.Removed)
				}
				if !errors.Is(err, ErrMergeInconsistent) {
					t.Error("expected ErrMergeInconsistent")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := resolverFunc(func(context.Context, map[string]string, map[string]string) (map[string]string, error) {
				return tt.resolved, tt.err
			})
			_, _, _, err := Merge(context.Background(), side(t, doc1Src), side(t, doc2Src), StrategyInteractive, r)
			tt.check(t, err)
		})
	}
}

func TestMerge_NoConflictsSkipsResolver(t *testing.T) {
	t.Parallel()

	r := resolverFunc(func(context.Context, map[string]string, map[string]string) (map[string]string, error) {
		t.Error("resolver must not be called without conflicts")
		return nil, nil
	})
	s := side(t, doc1Src)
	if _, _, _, err := Merge(context.Background(), s, s, StrategyInteractive, r); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
}

func TestStrategy_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Strategy{StrategyLeft, StrategyRight, StrategyInteractive} {
		if ok, errs := s.IsValid(); !ok || errs != nil {
			t.Errorf("%s.IsValid() = %v, %v", s, ok, errs)
		}
	}
	ok, errs := Strategy("both").IsValid()
	if ok || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidStrategy) {
		t.Errorf("both.IsValid() = %v, %v", ok, errs)
	}
}

func TestApply_ParseError(t *testing.T) {
	t.Parallel()

	s1, s2 := side(t, doc1Src), side(t, doc2Src)
	_, _, err := Apply(s1, s2, map[string]string{"x": "#@]\n"})
	if !errors.Is(err, markup.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
	_, _, err = Apply(s1, s2, map[string]string{"only1": "a\n"})
	if !errors.Is(err, snipdoc.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}

func TestMerge_AcrossSyntaxes(t *testing.T) {
	t.Parallel()

	hs, _ := markup.Lookup(markup.SyntaxHaskell)
	doc, err := markup.Parse("-- @snips[\n-- @x[\n-- @requires: y\ntwo\n-- @]\n-- @]\n", "b.hs", hs)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	snips, err := doc.GetElement("snips")
	if err != nil {
		t.Fatalf("GetElement(snips): %v", err)
	}
	side1 := side(t, "#@snips[\n#@x[\none\n#@]\n#@]\n")
	side2 := Side{Snips: snips, Syntaxes: []markup.Syntax{hs}}

	snips1, snips2, _, err := Merge(context.Background(), side1, side2, StrategyLeft, nil)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if got, want := snips1.Render(side1.Syntaxes[0]), "#@snips[\n#@x[\n#@requires: y\ntwo\n#@]\n#@]\n"; got != want {
		t.Errorf("side1 =\n%q\nwant\n%q", got, want)
	}
	if got, want := snips2.Render(hs), "-- @snips[\n-- @x[\n-- @requires: y\ntwo\n-- @]\n-- @]\n"; got != want {
		t.Errorf("side2 =\n%q\nwant\n%q", got, want)
	}
}

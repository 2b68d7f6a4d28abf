// SPDX-License-Identifier: MPL-2.0

// Package merge reconciles the snippets that two documents both define but
// disagree on.
package merge

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/snep/snep/pkg/markup"
	"github.com/snep/snep/pkg/snipdoc"
)

const (
	// StrategyLeft resolves every conflict with the second document's content,
	// so the first document is overwritten to match.
	StrategyLeft Strategy = "left"
	// StrategyRight resolves every conflict with the first document's content.
	StrategyRight Strategy = "right"
	// StrategyInteractive hands the conflicts to a Resolver.
	StrategyInteractive Strategy = "interactive"
)

var (
	// ErrMergeCanceled is returned when the user abandons an interactive merge.
	ErrMergeCanceled = errors.New("merge canceled")

	// ErrMergeInconsistent is the sentinel wrapped by MergeConsistencyError.
	ErrMergeInconsistent = errors.New("merge result does not match the conflicts")

	// ErrInvalidStrategy is the sentinel wrapped by InvalidStrategyError.
	ErrInvalidStrategy = errors.New("invalid merge strategy")
)

type (
	// Strategy selects how conflicts are resolved.
	Strategy string

	// InvalidStrategyError is returned when a Strategy value is not recognized.
	InvalidStrategyError struct {
		Value Strategy
	}

	// MergeConsistencyError reports a resolved set whose names differ from
	// the conflicting names.
	MergeConsistencyError struct {
		// Added lists names that were resolved but never conflicted.
		Added []string
		// Removed lists conflicting names that were not resolved.
		Removed []string
	}

	// Resolver resolves conflicts interactively. side1 and side2 map each
	// conflicting name to its body text in the first and second document. The
	// result must map exactly the same names to their resolved bodies.
	// Implementations return ErrMergeCanceled when the user gives up.
	Resolver interface {
		Resolve(ctx context.Context, side1, side2 map[string]string) (map[string]string, error)
	}

	// Side is one document's snippet container and the syntaxes its text is
	// written in.
	Side struct {
		Snips    *snipdoc.Element
		Syntaxes []markup.Syntax
	}

	// Conflicts holds the bodies of the snippets both sides define differently.
	Conflicts struct {
		Side1 map[string]string
		Side2 map[string]string
	}
)

// Error implements the error interface.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid merge strategy %q (valid: left, right, interactive)", e.Value)
}

// Unwrap returns ErrInvalidStrategy for errors.Is() compatibility.
func (e *InvalidStrategyError) Unwrap() error { return ErrInvalidStrategy }

// IsValid returns whether the Strategy is one of the defined strategies.
func (s Strategy) IsValid() (bool, []error) {
	switch s {
	case StrategyLeft, StrategyRight, StrategyInteractive:
		return true, nil
	default:
		return false, []error{&InvalidStrategyError{Value: s}}
	}
}

// Error implements the error interface.
func (e *MergeConsistencyError) Error() string {
	var parts []string
	if len(e.Added) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Added, ", "))
	}
	if len(e.Removed) > 0 {
		parts = append(parts, "unresolved "+strings.Join(e.Removed, ", "))
	}
	return fmt.Sprintf("inconsistent merge result: %s", strings.Join(parts, "; "))
}

// Unwrap returns ErrMergeInconsistent for errors.Is() compatibility.
func (e *MergeConsistencyError) Unwrap() error { return ErrMergeInconsistent }

// Names returns the conflicting names, sorted.
func (c Conflicts) Names() []string {
	return slices.Sorted(maps.Keys(c.Side2))
}

// Len returns the number of conflicting snippets.
func (c Conflicts) Len() int { return len(c.Side2) }

// Detect compares the snippets both sides define. Bodies are rendered without
// the enclosing element lines. Both containers must have unique element names.
func Detect(side1, side2 Side) Conflicts {
	c := Conflicts{Side1: map[string]string{}, Side2: map[string]string{}}
	others := side2.Snips.UniqueElements()
	for name, el1 := range side1.Snips.UniqueElements() {
		el2, common := others[name]
		if !common || el1.Equal(el2) {
			continue
		}
		c.Side1[name] = el1.WithoutName().Render(side1.Syntaxes[0])
		c.Side2[name] = el2.WithoutName().Render(side2.Syntaxes[0])
	}
	return c
}

// Resolve picks the body of every conflicting snippet according to strategy.
// r is only consulted by StrategyInteractive.
func Resolve(ctx context.Context, c Conflicts, strategy Strategy, r Resolver) (map[string]string, error) {
	if c.Len() == 0 {
		return map[string]string{}, nil
	}
	switch strategy {
	case StrategyLeft:
		return maps.Clone(c.Side2), nil
	case StrategyRight:
		return maps.Clone(c.Side1), nil
	case StrategyInteractive:
		if r == nil {
			return nil, fmt.Errorf("%d conflicting snippets need a resolver: %w", c.Len(), ErrMergeCanceled)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resolved, err := r.Resolve(ctx, maps.Clone(c.Side1), maps.Clone(c.Side2))
		if err != nil {
			return nil, err
		}
		if err := CheckConsistency(c, resolved); err != nil {
			return nil, err
		}
		return resolved, nil
	default:
		return nil, &InvalidStrategyError{Value: strategy}
	}
}

// CheckConsistency verifies that resolved covers exactly the conflicting names.
func CheckConsistency(c Conflicts, resolved map[string]string) error {
	var e MergeConsistencyError
	for name := range resolved {
		if _, ok := c.Side2[name]; !ok {
			e.Added = append(e.Added, name)
		}
	}
	for name := range c.Side2 {
		if _, ok := resolved[name]; !ok {
			e.Removed = append(e.Removed, name)
		}
	}
	if len(e.Added) == 0 && len(e.Removed) == 0 {
		return nil
	}
	slices.Sort(e.Added)
	slices.Sort(e.Removed)
	return &e
}

// Apply parses every resolved body once and installs it as the children of
// the same-named snippet on both sides, so both sides end up agreeing on it.
func Apply(side1, side2 Side, resolved map[string]string) (snips1, snips2 *snipdoc.Element, err error) {
	snips1, snips2 = side1.Snips, side2.Snips
	syntaxes := unionSyntaxes(side1.Syntaxes, side2.Syntaxes)
	for _, name := range slices.Sorted(maps.Keys(resolved)) {
		body := resolved[name]
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		children, err := markup.ParseFragment(body, "merge:"+name, syntaxes...)
		if err != nil {
			return nil, nil, fmt.Errorf("resolved snippet %q: %w", name, err)
		}
		if snips1, err = snips1.ReplaceElementChildren(name, adopt(children, side1, syntaxes)); err != nil {
			return nil, nil, err
		}
		if snips2, err = snips2.ReplaceElementChildren(name, adopt(children, side2, syntaxes)); err != nil {
			return nil, nil, err
		}
	}
	return snips1, snips2, nil
}

// Merge detects, resolves and applies conflicts in one step. It returns the
// updated containers and the names that were merged.
func Merge(ctx context.Context, side1, side2 Side, strategy Strategy, r Resolver) (snips1, snips2 *snipdoc.Element, merged []string, err error) {
	c := Detect(side1, side2)
	resolved, err := Resolve(ctx, c, strategy, r)
	if err != nil {
		return nil, nil, nil, err
	}
	snips1, snips2, err = Apply(side1, side2, resolved)
	if err != nil {
		return nil, nil, nil, err
	}
	return snips1, snips2, c.Names(), nil
}

// adopt drops the recorded directive lines of children when side cannot
// read every syntax the body may have been written in.
func adopt(children []snipdoc.Node, side Side, written []markup.Syntax) []snipdoc.Node {
	if markup.Accepts(side.Syntaxes, written) {
		return children
	}
	return snipdoc.StripMarkup(children)
}

func unionSyntaxes(a, b []markup.Syntax) []markup.Syntax {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.ContainsFunc(out, func(o markup.Syntax) bool { return o.Name == s.Name }) {
			out = append(out, s)
		}
	}
	return out
}

// SPDX-License-Identifier: MPL-2.0

// Package depgraph plans which snippets a document must contain and in what
// order, starting from the names it requires.
package depgraph

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/snep/snep/internal/dag"
	"github.com/snep/snep/pkg/snippet"
)

type (
	// CycleError reports snippets that require each other.
	CycleError = dag.CycleError

	// LookupFunc resolves a name to a snippet view. Unknown names resolve to
	// snippet.Missing rather than an error; errors are fatal.
	LookupFunc func(ctx context.Context, name string) (snippet.Snippet, error)

	// Request describes one planning run for a single document.
	Request struct {
		// Explicit lists the names the document requires directly.
		Explicit []string
		// Original lists the document's current snippet names in source order.
		Original []string
		// Purge drops current snippets that nothing requires any more.
		Purge bool
		// Sort orders snippets by name instead of keeping their original positions.
		Sort bool
	}

	// Plan is the outcome of dependency resolution for one document.
	Plan struct {
		// Closure is every name reachable from the seeds, sorted.
		Closure []string
		// Snippets holds the real snippets to emit, dependencies first.
		Snippets []snippet.Snippet
		// Modules lists the module identifiers to import, sorted.
		Modules []string
		// Missing lists required names that no document defines, sorted.
		Missing []string
		// Deleted lists original snippets absent from the closure, in source order.
		Deleted []string
	}
)

// NameKey orders snippets by name.
func NameKey() dag.CompareFunc { return strings.Compare }

// StableKey orders snippets by their position in original. Names without an
// original position follow all positioned ones and are ordered by name.
func StableKey(original []string) dag.CompareFunc {
	index := make(map[string]int, len(original))
	for i, name := range original {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	return func(a, b string) int {
		ia, okA := index[a]
		ib, okB := index[b]
		switch {
		case okA && okB:
			if ia != ib {
				return ia - ib
			}
			return strings.Compare(a, b)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return strings.Compare(a, b)
		}
	}
}

// Seeds returns the starting names of the closure: the explicit requirements
// plus, unless purging, the current snippets.
func (r Request) Seeds() []string {
	seeds := slices.Clone(r.Explicit)
	if !r.Purge {
		seeds = append(seeds, r.Original...)
	}
	slices.Sort(seeds)
	return slices.Compact(seeds)
}

// ExtractModules returns the sorted, de-duplicated module identifiers among
// snips.
func ExtractModules(snips []snippet.Snippet) []string {
	var modules []string
	for _, s := range snips {
		if mod, ok := s.Module(); ok {
			modules = append(modules, mod)
		}
	}
	slices.Sort(modules)
	return slices.Compact(modules)
}

// Build resolves the closure of req's seeds through lookup and orders the real
// snippets so that every snippet follows the snippets it requires.
func Build(ctx context.Context, req Request, lookup LookupFunc) (*Plan, error) {
	resolved := make(map[string]snippet.Snippet)
	resolve := func(name string) (snippet.Snippet, error) {
		if s, ok := resolved[name]; ok {
			return s, nil
		}
		s, err := lookup(ctx, name)
		if err != nil {
			return snippet.Snippet{}, fmt.Errorf("resolve snippet %q: %w", name, err)
		}
		resolved[name] = s
		return s, nil
	}

	closure, err := dag.ReachableSet(req.Seeds(), func(name string) ([]string, error) {
		s, err := resolve(name)
		if err != nil {
			return nil, err
		}
		return s.Requires(), nil
	})
	if err != nil {
		return nil, err
	}

	plan := &Plan{Closure: closure}
	all := make([]snippet.Snippet, 0, len(closure))
	g := dag.New()
	for _, name := range closure {
		s := resolved[name]
		all = append(all, s)
		switch s.Kind() {
		case snippet.KindMissing:
			plan.Missing = append(plan.Missing, name)
		case snippet.KindOrdinary:
			g.AddNode(name)
		}
	}
	plan.Modules = ExtractModules(all)

	// Edges run from dependent to dependency; names that are not real
	// snippets are not nodes and get no edge.
	for _, name := range g.Nodes() {
		for _, dep := range resolved[name].Requires() {
			if g.Has(dep) {
				g.AddEdge(name, dep)
			}
		}
	}

	key := StableKey(req.Original)
	if req.Sort {
		key = NameKey()
	}
	order, err := g.SortFunc(key, true)
	if err != nil {
		return nil, err
	}
	plan.Snippets = make([]snippet.Snippet, len(order))
	for i, name := range order {
		plan.Snippets[i] = resolved[name]
	}

	for _, name := range req.Original {
		if _, kept := slices.BinarySearch(closure, name); !kept {
			plan.Deleted = append(plan.Deleted, name)
		}
	}
	return plan, nil
}

// Names returns the names of the planned snippets in emission order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Snippets))
	for i, s := range p.Snippets {
		names[i] = s.Name()
	}
	return names
}

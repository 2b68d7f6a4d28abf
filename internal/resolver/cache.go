// SPDX-License-Identifier: MPL-2.0

// Package resolver materializes snippets on demand from an ordered search
// path of documents.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/snep/snep/pkg/markup"
	"github.com/snep/snep/pkg/snippet"
)

// SnipsContainer is the name of the element that holds a document's snippets.
const SnipsContainer = "snips"

type (
	// Cache resolves snippet names against a search path. Entries are loaded
	// lazily in priority order and every document is parsed at most once; the
	// first document to define a name wins.
	Cache struct {
		source      Source
		detector    markup.Detector
		pending     []string
		snippets    map[string]snippet.Snippet
		definedIn   map[string]*Document
		docs        map[string]*Document
		diagnostics []Diagnostic
	}

	// Option configures a Cache.
	Option func(*Cache)
)

// WithSource sets the document source. The default reads from the filesystem.
func WithSource(src Source) Option {
	return func(c *Cache) { c.source = src }
}

// WithDetector sets how a document's syntax is chosen.
func WithDetector(d markup.Detector) Option {
	return func(c *Cache) { c.detector = d }
}

// New creates a cache over searchPath, highest priority first.
func New(searchPath []string, opts ...Option) *Cache {
	c := &Cache{
		source:    OSSource{},
		pending:   slices.Clone(searchPath),
		snippets:  make(map[string]snippet.Snippet),
		definedIn: make(map[string]*Document),
		docs:      make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the cache's document source.
func (c *Cache) Source() Source { return c.source }

// Detector returns the cache's syntax detector.
func (c *Cache) Detector() markup.Detector { return c.detector }

// Document loads and parses path once; later calls return the same value.
func (c *Cache) Document(ctx context.Context, path string) (*Document, error) {
	if doc, ok := c.docs[path]; ok {
		return doc, nil
	}
	doc, err := Load(ctx, c.source, c.detector, path)
	if err != nil {
		return nil, err
	}
	c.docs[path] = doc
	return doc, nil
}

// Register adds the snippets of doc's snips container that are not yet known.
// It reports false when doc has no usable snips container.
func (c *Cache) Register(doc *Document) bool {
	snips, ok := doc.Snips()
	if !ok {
		return false
	}
	for _, s := range snippet.FromContainer(snips) {
		if _, known := c.snippets[s.Name()]; !known {
			c.snippets[s.Name()] = s
			c.definedIn[s.Name()] = doc
		}
	}
	return true
}

// DefinedIn returns the document whose definition of name GetSnippet returns.
func (c *Cache) DefinedIn(name string) (*Document, bool) {
	doc, ok := c.definedIn[name]
	return doc, ok
}

// GetSnippet resolves name. Built-in names ("category:identifier") never touch
// the search path. A name that no document defines resolves to a missing
// snippet; only malformed built-ins, parse failures and cancellation are
// errors.
func (c *Cache) GetSnippet(ctx context.Context, name string) (snippet.Snippet, error) {
	if snippet.IsBuiltinName(name) {
		return snippet.Builtin(name)
	}
	for {
		if s, ok := c.snippets[name]; ok {
			return s, nil
		}
		if len(c.pending) == 0 {
			return snippet.Missing(name), nil
		}
		if err := ctx.Err(); err != nil {
			return snippet.Snippet{}, err
		}
		path := c.pending[0]
		c.pending = c.pending[1:]
		if err := c.loadEntry(ctx, path); err != nil {
			return snippet.Snippet{}, err
		}
	}
}

func (c *Cache) loadEntry(ctx context.Context, path string) error {
	doc, err := c.Document(ctx, path)
	var parseErr *markup.ParseError
	switch {
	case errors.As(err, &parseErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case err != nil:
		c.diagnostics = append(c.diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeSearchPathUnreadable,
			Message:  fmt.Sprintf("skipping search path entry: %v", err),
			Path:     path,
			Cause:    err,
		})
		return nil
	}
	if !c.Register(doc) {
		c.diagnostics = append(c.diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeSearchPathNoSnips,
			Message:  "search path entry has no unique snips container",
			Path:     path,
		})
	}
	return nil
}

// Diagnostics returns the warnings collected while loading the search path.
func (c *Cache) Diagnostics() []Diagnostic { return slices.Clone(c.diagnostics) }

// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/snep/snep/internal/depgraph"
	"github.com/snep/snep/internal/merge"
	"github.com/snep/snep/internal/resolver"
	"github.com/snep/snep/pkg/markup"
	"github.com/snep/snep/pkg/snipdoc"
	"github.com/snep/snep/pkg/snippet"
)

type (
	// Options controls a sync or update run.
	Options struct {
		// Strategy resolves snippets both documents define differently.
		Strategy merge.Strategy
		// Resolver is consulted by merge.StrategyInteractive.
		Resolver merge.Resolver
		// Purge drops snippets that nothing requires any more.
		Purge bool
		// Sort orders snippets by name instead of keeping their positions.
		Sort bool
	}

	// Syncer runs syncs against one search-path cache.
	Syncer struct {
		cache *resolver.Cache
	}

	// FileResult is the outcome for one document.
	FileResult struct {
		Path     string
		Original string
		Rendered string
		// Snippets lists the snippet names of the rewritten document in order.
		Snippets []string
		// Modules lists the imported modules of the rewritten document.
		Modules []string
	}

	// Result is the outcome of a run. Files are in argument order.
	Result struct {
		Files []FileResult
		// Merged lists the snippets whose conflicting definitions were reconciled.
		Merged      []string
		Diagnostics []Diagnostic
	}

	// working is a document being rewritten.
	working struct {
		doc  *resolver.Document
		root *snipdoc.Element
	}
)

// New creates a Syncer resolving foreign snippets through cache.
func New(cache *resolver.Cache) *Syncer {
	return &Syncer{cache: cache}
}

// Changed reports whether the rendered document differs from the original.
func (f FileResult) Changed() bool { return f.Rendered != f.Original }

// Changed returns the file results whose content changed.
func (r *Result) Changed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}
	return out
}

// Sync brings two documents into agreement and resolves each one's
// dependencies. Snippets defined by either document are visible to both.
func (s *Syncer) Sync(ctx context.Context, path1, path2 string, opts Options) (*Result, error) {
	if same, err := sameFile(path1, path2); err != nil {
		return nil, err
	} else if same {
		return nil, fmt.Errorf("%s and %s: %w", path1, path2, ErrSameFile)
	}
	w1, err := s.load(ctx, path1)
	if err != nil {
		return nil, err
	}
	w2, err := s.load(ctx, path2)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	snips1, ok1 := w1.doc.Snips()
	snips2, ok2 := w2.doc.Snips()
	if ok1 && ok2 {
		side1 := merge.Side{Snips: snips1, Syntaxes: w1.doc.Syntaxes}
		side2 := merge.Side{Snips: snips2, Syntaxes: w2.doc.Syntaxes}
		merged1, merged2, names, err := merge.Merge(ctx, side1, side2, opts.Strategy, opts.Resolver)
		if err != nil {
			return nil, err
		}
		result.Merged = names
		if w1.root, err = w1.root.ReplaceElement(resolver.SnipsContainer, merged1); err != nil {
			return nil, err
		}
		if w2.root, err = w2.root.ReplaceElement(resolver.SnipsContainer, merged2); err != nil {
			return nil, err
		}
	}

	for _, pair := range [][2]*working{{w1, w2}, {w2, w1}} {
		f, diags, err := s.resolve(ctx, pair[0], opts, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		result.Files = append(result.Files, f)
		result.Diagnostics = append(result.Diagnostics, diags...)
	}
	result.Diagnostics = append(s.cache.Diagnostics(), result.Diagnostics...)
	return result, nil
}

// Update resolves the dependencies of a single document using its own
// snippets and the search path.
func (s *Syncer) Update(ctx context.Context, path string, opts Options) (*Result, error) {
	w, err := s.load(ctx, path)
	if err != nil {
		return nil, err
	}
	f, diags, err := s.resolve(ctx, w, opts, w)
	if err != nil {
		return nil, err
	}
	return &Result{
		Files:       []FileResult{f},
		Diagnostics: append(s.cache.Diagnostics(), diags...),
	}, nil
}

// Check parses and validates a document without resolving anything.
func (s *Syncer) Check(ctx context.Context, path string) (*resolver.Document, error) {
	w, err := s.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return w.doc, nil
}

func (s *Syncer) load(ctx context.Context, path string) (*working, error) {
	doc, err := s.cache.Document(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return &working{doc: doc, root: doc.Root}, nil
}

// resolve plans and rewrites w. Snippets are looked up in pool order, then
// on the search path.
func (s *Syncer) resolve(ctx context.Context, w *working, opts Options, pool ...*working) (FileResult, []Diagnostic, error) {
	path := w.doc.Path
	snips, hasSnips := snipsOf(w.root)

	req := depgraph.Request{Purge: opts.Purge, Sort: opts.Sort}
	if v, ok := w.root.Attr(snippet.RequiresAttr); ok {
		req.Explicit = snippet.ParseRequires(v)
	}
	if hasSnips {
		req.Original = snips.ElementNames()
	}

	type definitions struct {
		elems    map[string]*snipdoc.Element
		syntaxes []markup.Syntax
	}
	pools := make([]definitions, 0, len(pool))
	for _, p := range pool {
		if c, ok := snipsOf(p.root); ok {
			pools = append(pools, definitions{elems: c.UniqueElements(), syntaxes: p.doc.Syntaxes})
		}
	}
	// Elements written in a syntax w cannot read are re-spelled in its own.
	adopt := func(el *snipdoc.Element, from []markup.Syntax) snippet.Snippet {
		if !markup.Accepts(w.doc.Syntaxes, from) {
			el = el.WithoutMarkup()
		}
		return snippet.FromElement(el)
	}
	lookup := func(ctx context.Context, name string) (snippet.Snippet, error) {
		if !snippet.IsBuiltinName(name) {
			for _, defs := range pools {
				if el, ok := defs.elems[name]; ok {
					return adopt(el, defs.syntaxes), nil
				}
			}
		}
		sn, err := s.cache.GetSnippet(ctx, name)
		if err != nil {
			return sn, err
		}
		if el, ok := sn.Element(); ok {
			if doc, ok := s.cache.DefinedIn(name); ok {
				return adopt(el, doc.Syntaxes), nil
			}
		}
		return sn, nil
	}

	plan, err := depgraph.Build(ctx, req, lookup)
	if err != nil {
		return FileResult{}, nil, fmt.Errorf("%s: %w", path, err)
	}

	root := w.root
	if len(plan.Snippets) > 0 || hasSnips {
		if !hasSnips {
			return FileResult{}, nil, &ValidationError{Path: path, Code: CodeMissingSnips,
				Message: fmt.Sprintf("snippets %v are required but there is no snips container", plan.Names())}
		}
		if root, err = root.ReplaceElement(resolver.SnipsContainer, rewriteSnips(snips, plan.Snippets)); err != nil {
			return FileResult{}, nil, err
		}
	}
	if imports, err := root.GetElement(ImportsContainer); err == nil {
		if root, err = root.ReplaceElement(ImportsContainer, rewriteImports(imports, plan.Modules)); err != nil {
			return FileResult{}, nil, err
		}
	} else if len(plan.Modules) > 0 {
		return FileResult{}, nil, &ValidationError{Path: path, Code: CodeMissingImports,
			Message: fmt.Sprintf("modules %v are required but there is no imports container", plan.Modules)}
	}

	var diags []Diagnostic
	for _, name := range plan.Missing {
		diags = append(diags, Diagnostic{Severity: resolver.SeverityWarning, Code: resolver.CodeSnippetMissing,
			Message: fmt.Sprintf("snippet %q is required but not defined anywhere", name), Path: path, Snippet: name})
	}
	for _, name := range plan.Deleted {
		diags = append(diags, Diagnostic{Severity: resolver.SeverityWarning, Code: resolver.CodeSnippetDeleted,
			Message: fmt.Sprintf("snippet %q is no longer required and will be deleted", name), Path: path, Snippet: name})
	}

	return FileResult{
		Path:     path,
		Original: w.doc.Content,
		Rendered: w.doc.Render(root),
		Snippets: plan.Names(),
		Modules:  slices.Clone(plan.Modules),
	}, diags, nil
}

// sameFile reports whether two paths name one file. Paths that do not exist
// are compared by their absolute form; loading reports them later.
func sameFile(path1, path2 string) (bool, error) {
	abs1, err := filepath.Abs(path1)
	if err != nil {
		return false, err
	}
	abs2, err := filepath.Abs(path2)
	if err != nil {
		return false, err
	}
	if abs1 == abs2 {
		return true, nil
	}
	info1, err1 := os.Stat(path1)
	info2, err2 := os.Stat(path2)
	return err1 == nil && err2 == nil && os.SameFile(info1, info2), nil
}

func snipsOf(root *snipdoc.Element) (*snipdoc.Element, bool) {
	el, err := root.GetElement(resolver.SnipsContainer)
	return el, err == nil
}

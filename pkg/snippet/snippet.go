// SPDX-License-Identifier: MPL-2.0

// Package snippet provides read-only views over the elements of a snippet
// container, plus the virtual snippets that have no backing element.
package snippet

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/snep/snep/pkg/snipdoc"
)

const (
	// KindOrdinary is a snippet backed by an element of a snippet container.
	KindOrdinary Kind = iota
	// KindMissing is a referenced name with no definition anywhere.
	KindMissing
	// KindBuiltinModule is a reference to a language-level module import.
	KindBuiltinModule
)

const (
	// CategoryModule marks a built-in reference to a module import ("mod:os").
	CategoryModule Category = "mod"

	// RequiresAttr is the attribute listing the names a snippet depends on.
	RequiresAttr = "requires"

	builtinSeparator = ":"
)

// ErrInvalidBuiltin is the sentinel wrapped by BuiltinSnippetError.
var ErrInvalidBuiltin = errors.New("invalid built-in snippet")

var identifierRe = regexp.MustCompile(`^\w+$`)

type (
	// Kind classifies a snippet.
	Kind int

	// Category is the part of a built-in name before the separator.
	Category string

	// Snippet is a non-owning view of one snippet. The zero value is not useful;
	// use FromElement, Missing or Builtin.
	Snippet struct {
		name     string
		kind     Kind
		elem     *snipdoc.Element
		category Category
		ident    string
	}

	// BuiltinSnippetError reports a malformed built-in snippet reference.
	BuiltinSnippetError struct {
		Name   string
		Reason string
	}
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindOrdinary:
		return "ordinary"
	case KindMissing:
		return "missing"
	case KindBuiltinModule:
		return "module"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *BuiltinSnippetError) Error() string {
	return fmt.Sprintf("invalid built-in snippet %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidBuiltin for errors.Is() compatibility.
func (e *BuiltinSnippetError) Unwrap() error { return ErrInvalidBuiltin }

// FromElement returns the ordinary snippet defined by el.
func FromElement(el *snipdoc.Element) Snippet {
	name, _ := el.Name()
	return Snippet{name: name, kind: KindOrdinary, elem: el}
}

// Missing returns a placeholder for a name that could not be resolved.
func Missing(name string) Snippet {
	return Snippet{name: name, kind: KindMissing}
}

// IsBuiltinName reports whether name has the "category:identifier" shape
// (exactly one separator). It does not validate the parts.
func IsBuiltinName(name string) bool {
	return strings.Count(name, builtinSeparator) == 1
}

// Builtin parses and validates a built-in reference such as "mod:os".
func Builtin(name string) (Snippet, error) {
	category, ident, ok := strings.Cut(name, builtinSeparator)
	if !ok || strings.Contains(ident, builtinSeparator) {
		return Snippet{}, &BuiltinSnippetError{Name: name, Reason: "expected exactly one ':'"}
	}
	if Category(category) != CategoryModule {
		return Snippet{}, &BuiltinSnippetError{Name: name, Reason: fmt.Sprintf("unknown category %q", category)}
	}
	if !identifierRe.MatchString(ident) {
		return Snippet{}, &BuiltinSnippetError{Name: name, Reason: fmt.Sprintf("invalid identifier %q", ident)}
	}
	return Snippet{name: name, kind: KindBuiltinModule, category: Category(category), ident: ident}, nil
}

// Name returns the snippet's identity.
func (s Snippet) Name() string { return s.name }

// Kind returns the snippet's classification.
func (s Snippet) Kind() Kind { return s.kind }

// IsVirtual reports whether the snippet has no backing element.
func (s Snippet) IsVirtual() bool { return s.kind != KindOrdinary }

// Element returns the backing element of an ordinary snippet.
func (s Snippet) Element() (*snipdoc.Element, bool) {
	return s.elem, s.elem != nil
}

// Module returns the module identifier of a built-in module snippet.
func (s Snippet) Module() (string, bool) {
	return s.ident, s.kind == KindBuiltinModule
}

// Requires returns the sorted, de-duplicated names the snippet depends on.
// Virtual snippets require nothing.
func (s Snippet) Requires() []string {
	if s.elem == nil {
		return nil
	}
	v, _ := s.elem.Attr(RequiresAttr)
	return ParseRequires(v)
}

// ParseRequires splits a requires attribute value on whitespace and returns
// the sorted set of names.
func ParseRequires(value string) []string {
	names := strings.Fields(value)
	slices.Sort(names)
	return slices.Compact(names)
}

// FromContainer returns the snippets of a snippet container in source order.
func FromContainer(container *snipdoc.Element) []Snippet {
	elems := container.Elements()
	out := make([]Snippet, len(elems))
	for i, el := range elems {
		out[i] = FromElement(el)
	}
	return out
}

// SPDX-License-Identifier: MPL-2.0

package snipdoc

import "fmt"

type (
	// Origin records where a node was read from, for diagnostics.
	// The zero value means the location is unknown.
	Origin struct {
		// Source identifies the file (or other input) the node came from.
		Source string
		// Line is the 1-based line number of the node's first line.
		Line int
	}

	// Node is a member of a document tree. The set of implementations is
	// closed: Text, Attribute and *Element.
	Node interface {
		// Pos returns where the node was read from.
		Pos() Origin
		node()
	}

	// Text is a verbatim run of source text. It never has a name.
	Text struct {
		Value  string
		Origin Origin
	}

	// Attribute is a "key: value" directive attached to the enclosing element.
	Attribute struct {
		Key    string
		Value  string
		Origin Origin
		// Raw is the directive line exactly as it appeared in the source,
		// including its line terminator. Empty for attributes built in code.
		Raw string
	}
)

// String formats the origin as "source:line", or "<unknown>".
func (o Origin) String() string {
	switch {
	case o.Source == "" && o.Line == 0:
		return "<unknown>"
	case o.Line == 0:
		return o.Source
	default:
		return fmt.Sprintf("%s:%d", o.Source, o.Line)
	}
}

// IsZero reports whether the origin is unknown.
func (o Origin) IsZero() bool { return o == Origin{} }

// Pos returns where the text was read from.
func (t Text) Pos() Origin { return t.Origin }

func (Text) node() {}

// Pos returns where the attribute was read from.
func (a Attribute) Pos() Origin { return a.Origin }

func (Attribute) node() {}

// Equal reports whether two nodes are structurally equal: same variant, same
// payload and, for elements, same name and recursively equal children.
// Origins and the recorded spelling of directive lines are ignored.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case Text:
		y, ok := b.(Text)
		return ok && x.Value == y.Value
	case Attribute:
		y, ok := b.(Attribute)
		return ok && x.Key == y.Key && x.Value == y.Value
	case *Element:
		y, ok := b.(*Element)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == y
		}
		return x.Equal(y)
	default:
		return false
	}
}

// EqualNodes reports whether two node sequences are pairwise Equal.
func EqualNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

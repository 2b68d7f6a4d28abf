// SPDX-License-Identifier: MPL-2.0

package snipdoc

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrElementNotFound is returned when no child element has the requested name.
	ErrElementNotFound = errors.New("element does not exist")
	// ErrElementNotUnique is returned when more than one child element has the requested name.
	ErrElementNotUnique = errors.New("element is not unique")
)

type (
	// Element is a named group of child nodes. The root of a document is an
	// unnamed Element.
	//
	// Elements are immutable. Accessors return copies, and every edit method
	// returns a new Element.
	Element struct {
		name       string
		named      bool
		children   []Node
		origin     Origin
		open       string
		close      string
		endComment string
	}

	// ElementOption configures an Element built with NewElement.
	ElementOption func(*Element)

	// LookupError reports a failed named-child lookup.
	// It wraps ErrElementNotFound or ErrElementNotUnique.
	LookupError struct {
		Name   string
		Reason error
	}
)

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Name)
}

// Unwrap returns the sentinel reason for errors.Is() compatibility.
func (e *LookupError) Unwrap() error { return e.Reason }

// WithOrigin sets where the element was read from.
func WithOrigin(o Origin) ElementOption {
	return func(e *Element) { e.origin = o }
}

// WithMarkup records the verbatim begin and end directive lines, including
// their line terminators. Rendering replays them instead of synthesizing new ones.
func WithMarkup(open, close string) ElementOption {
	return func(e *Element) {
		e.open = open
		e.close = close
	}
}

// WithEndComment sets the free text that follows the end marker.
func WithEndComment(comment string) ElementOption {
	return func(e *Element) { e.endComment = comment }
}

// NewElement creates a named element. The children slice is copied.
func NewElement(name string, children []Node, opts ...ElementOption) *Element {
	e := &Element{name: name, named: true, children: slices.Clone(children)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDocument creates an unnamed root element.
func NewDocument(children []Node, opts ...ElementOption) *Element {
	e := NewElement("", children, opts...)
	e.named = false
	return e
}

// Pos returns where the element was read from.
func (e *Element) Pos() Origin { return e.origin }

func (*Element) node() {}

// Name returns the element name and whether the element is named.
func (e *Element) Name() (string, bool) { return e.name, e.named }

// EndComment returns the text that followed the end marker in the source.
func (e *Element) EndComment() string { return e.endComment }

// Len returns the number of children.
func (e *Element) Len() int { return len(e.children) }

// Children returns a copy of the child nodes.
func (e *Element) Children() []Node { return slices.Clone(e.children) }

// Child returns the i-th child node.
func (e *Element) Child(i int) Node { return e.children[i] }

// Attributes returns the mapping derived from the element's Attribute
// children. Values of repeated keys are joined with a newline.
func (e *Element) Attributes() map[string]string {
	attrs := make(map[string]string)
	for _, child := range e.children {
		a, ok := child.(Attribute)
		if !ok {
			continue
		}
		if prev, exists := attrs[a.Key]; exists {
			attrs[a.Key] = prev + "\n" + a.Value
		} else {
			attrs[a.Key] = a.Value
		}
	}
	return attrs
}

// Attr returns the (joined) value of one attribute.
func (e *Element) Attr(key string) (string, bool) {
	v, ok := e.Attributes()[key]
	return v, ok
}

// Elements returns the element children in source order.
func (e *Element) Elements() []*Element {
	var elems []*Element
	for _, child := range e.children {
		if el, ok := child.(*Element); ok {
			elems = append(elems, el)
		}
	}
	return elems
}

// ElementNames returns the names of the element children in source order,
// duplicates included.
func (e *Element) ElementNames() []string {
	elems := e.Elements()
	names := make([]string, len(elems))
	for i, el := range elems {
		names[i] = el.name
	}
	return names
}

// UniqueElements maps each child element name that occurs exactly once to
// its element.
func (e *Element) UniqueElements() map[string]*Element {
	counts := make(map[string]int)
	for _, el := range e.Elements() {
		counts[el.name]++
	}
	unique := make(map[string]*Element, len(counts))
	for _, el := range e.Elements() {
		if counts[el.name] == 1 {
			unique[el.name] = el
		}
	}
	return unique
}

// DuplicateElement returns the first child element whose name was already used
// by an earlier sibling.
func (e *Element) DuplicateElement() (*Element, bool) {
	seen := make(map[string]bool)
	for _, el := range e.Elements() {
		if seen[el.name] {
			return el, true
		}
		seen[el.name] = true
	}
	return nil, false
}

// HasUniqueElements reports whether every element child has a distinct name.
func (e *Element) HasUniqueElements() bool {
	_, dup := e.DuplicateElement()
	return !dup
}

// GetElement returns the child element with the given name. It fails if the
// element does not exist or its name is not unique.
func (e *Element) GetElement(name string) (*Element, error) {
	_, el, err := e.indexOf(name)
	return el, err
}

// HasElement reports whether at least one child element has the given name.
func (e *Element) HasElement(name string) bool {
	return slices.Contains(e.ElementNames(), name)
}

func (e *Element) indexOf(name string) (int, *Element, error) {
	idx := -1
	for i, child := range e.children {
		el, ok := child.(*Element)
		if !ok || el.name != name {
			continue
		}
		if idx >= 0 {
			return 0, nil, &LookupError{Name: name, Reason: ErrElementNotUnique}
		}
		idx = i
	}
	if idx < 0 {
		return 0, nil, &LookupError{Name: name, Reason: ErrElementNotFound}
	}
	return idx, e.children[idx].(*Element), nil
}

// ReplaceChildren returns a copy of e with the given children.
func (e *Element) ReplaceChildren(children []Node) *Element {
	c := *e
	c.children = slices.Clone(children)
	return &c
}

// ReplaceName returns a copy of e with a different name. The recorded begin
// line is dropped when the name changes since it spells the old name.
func (e *Element) ReplaceName(name string) *Element {
	c := *e
	if !c.named || c.name != name {
		c.open = ""
	}
	c.name = name
	c.named = true
	return &c
}

// WithoutName returns an unnamed copy of e. It renders as its children only.
func (e *Element) WithoutName() *Element {
	c := *e
	c.name = ""
	c.named = false
	c.open = ""
	c.close = ""
	return &c
}

// WithoutMarkup returns a copy of e whose directive lines, and those of every
// descendant, are synthesized at render time instead of replayed.
func (e *Element) WithoutMarkup() *Element {
	c := *e
	c.open = ""
	c.close = ""
	c.children = StripMarkup(e.children)
	return &c
}

// StripMarkup returns a copy of nodes with the recorded directive lines of
// attributes and elements dropped, recursively.
func StripMarkup(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		switch n := n.(type) {
		case Attribute:
			n.Raw = ""
			out[i] = n
		case *Element:
			out[i] = n.WithoutMarkup()
		default:
			out[i] = n
		}
	}
	return out
}

// ReplaceElement returns a copy of e in which the uniquely named child element
// is replaced.
func (e *Element) ReplaceElement(name string, replacement *Element) (*Element, error) {
	idx, _, err := e.indexOf(name)
	if err != nil {
		return nil, err
	}
	children := slices.Clone(e.children)
	children[idx] = replacement
	c := *e
	c.children = children
	return &c, nil
}

// ReplaceElementChildren returns a copy of e in which the children of the
// uniquely named child element are replaced.
func (e *Element) ReplaceElementChildren(name string, children []Node) (*Element, error) {
	child, err := e.GetElement(name)
	if err != nil {
		return nil, err
	}
	return e.ReplaceElement(name, child.ReplaceChildren(children))
}

// Equal reports whether two elements have the same name and recursively equal
// children.
func (e *Element) Equal(other *Element) bool {
	if e.named != other.named || e.name != other.name {
		return false
	}
	return EqualNodes(e.children, other.children)
}

// TextContent concatenates the values of the direct Text children.
func (e *Element) TextContent() string {
	var sb strings.Builder
	for _, child := range e.children {
		if t, ok := child.(Text); ok {
			sb.WriteString(t.Value)
		}
	}
	return sb.String()
}

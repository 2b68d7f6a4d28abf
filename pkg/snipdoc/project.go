// SPDX-License-Identifier: MPL-2.0

package snipdoc

import "encoding/json"

// Project returns the order-preserving plain-data form of a node:
//
//	text = "some text\n"
//	attr = ["key", "value"]
//	elem = ["name", [node, ...]]
//	root = [node, ...]
//
// The result only contains strings and []any, so any JSON or YAML encoder
// can serialize it.
func Project(n Node) any {
	switch n := n.(type) {
	case Text:
		return n.Value
	case Attribute:
		return []any{n.Key, n.Value}
	case *Element:
		children := make([]any, len(n.children))
		for i, child := range n.children {
			children[i] = Project(child)
		}
		if !n.named {
			return children
		}
		return []any{n.name, children}
	default:
		return nil
	}
}

// MarshalJSON encodes the text as a JSON string.
func (t Text) MarshalJSON() ([]byte, error) { return json.Marshal(Project(t)) }

// MarshalJSON encodes the attribute as ["key", "value"].
func (a Attribute) MarshalJSON() ([]byte, error) { return json.Marshal(Project(a)) }

// MarshalJSON encodes the element as ["name", [children...]], or as the bare
// children array for an unnamed root.
func (e *Element) MarshalJSON() ([]byte, error) { return json.Marshal(Project(e)) }

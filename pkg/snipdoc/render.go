// SPDX-License-Identifier: MPL-2.0

package snipdoc

import "strings"

// Directives spells directive lines in the comment syntax of the host file.
// Each method returns a complete line including its terminator.
type Directives interface {
	Begin(name string) string
	End(comment string) string
	Attr(key, value string) string
}

type renderer struct {
	sb  strings.Builder
	dir Directives
}

// Render serializes the element. An unnamed element renders as its children.
func (e *Element) Render(d Directives) string {
	r := &renderer{dir: d}
	r.element(e)
	return r.sb.String()
}

// RenderNodes serializes a node sequence.
func RenderNodes(nodes []Node, d Directives) string {
	r := &renderer{dir: d}
	for _, n := range nodes {
		r.node(n)
	}
	return r.sb.String()
}

func (r *renderer) node(n Node) {
	switch n := n.(type) {
	case Text:
		r.sb.WriteString(n.Value)
	case Attribute:
		r.breakLine()
		if n.Raw != "" {
			r.sb.WriteString(n.Raw)
		} else {
			r.sb.WriteString(r.dir.Attr(n.Key, n.Value))
		}
	case *Element:
		r.element(n)
	}
}

func (r *renderer) element(e *Element) {
	if e.named {
		r.breakLine()
		if e.open != "" {
			r.sb.WriteString(e.open)
		} else {
			r.sb.WriteString(r.dir.Begin(e.name))
		}
	}
	for _, child := range e.children {
		r.node(child)
	}
	if e.named {
		r.breakLine()
		if e.close != "" {
			r.sb.WriteString(e.close)
		} else {
			r.sb.WriteString(r.dir.End(e.endComment))
		}
	}
}

// breakLine keeps directives on a line of their own.
func (r *renderer) breakLine() {
	if s := r.sb.String(); s != "" && !strings.HasSuffix(s, "\n") {
		r.sb.WriteString("\n")
	}
}

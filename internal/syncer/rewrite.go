// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"slices"
	"strings"

	"github.com/snep/snep/pkg/snipdoc"
	"github.com/snep/snep/pkg/snippet"
)

const defaultSeparator = "\n"

// rewriteSnips returns container holding exactly snips, in order. When the
// names already match, container is returned unchanged. Otherwise the
// whitespace before the first and after the last element is kept, and
// elements are separated like the first two original elements were.
func rewriteSnips(container *snipdoc.Element, snips []snippet.Snippet) *snipdoc.Element {
	names := make([]string, len(snips))
	for i, s := range snips {
		names[i] = s.Name()
	}
	if slices.Equal(names, container.ElementNames()) {
		return container
	}

	children := container.Children()
	isElement := func(n snipdoc.Node) bool { _, ok := n.(*snipdoc.Element); return ok }
	first := slices.IndexFunc(children, isElement)

	leading, trailing := children, []snipdoc.Node(nil)
	sep := defaultSeparator
	if first >= 0 {
		last := first
		for i := range children {
			if isElement(children[i]) {
				last = i
			}
		}
		leading, trailing = children[:first], children[last+1:]
		if next := slices.IndexFunc(children[first+1:], isElement); next >= 0 {
			sep = textOf(children[first+1 : first+1+next])
		}
	}

	out := slices.Clone(leading)
	for i, s := range snips {
		if i > 0 && sep != "" {
			out = append(out, snipdoc.Text{Value: sep})
		}
		el, _ := s.Element()
		out = append(out, el)
	}
	out = append(out, trailing...)
	return container.ReplaceChildren(out)
}

// rewriteImports returns container holding one import line per module. It is
// returned unchanged when its text already says the same thing. The container
// must hold only text.
func rewriteImports(container *snipdoc.Element, modules []string) *snipdoc.Element {
	var sb strings.Builder
	children := make([]snipdoc.Node, len(modules))
	for i, mod := range modules {
		line := "import " + mod + "\n"
		sb.WriteString(line)
		children[i] = snipdoc.Text{Value: line}
	}
	if container.TextContent() == sb.String() {
		return container
	}
	return container.ReplaceChildren(children)
}

func textOf(nodes []snipdoc.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		if t, ok := n.(snipdoc.Text); ok {
			sb.WriteString(t.Value)
		}
	}
	return sb.String()
}

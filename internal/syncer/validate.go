// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/snep/snep/internal/resolver"
	"github.com/snep/snep/pkg/snipdoc"
)

// ImportsContainer is the name of the element holding managed import lines.
const ImportsContainer = "imports"

var importLineRe = regexp.MustCompile(`^\s*(import\s+[\w.]+\s*)?$`)

// Validate checks that a document's containers have the shape snep manages:
// at most one snips and one imports container, uniquely named snippets with
// only whitespace between them, and imports made of import lines.
func Validate(doc *resolver.Document) error {
	root := doc.Root
	for _, name := range []string{resolver.SnipsContainer, ImportsContainer} {
		var seen *snipdoc.Element
		for _, el := range root.Elements() {
			if n, _ := el.Name(); n != name {
				continue
			}
			if seen != nil {
				return &ValidationError{Path: doc.Path, Line: el.Pos().Line, Code: CodeDuplicateContainer,
					Message: fmt.Sprintf("more than one %q container (first on line %d)", name, seen.Pos().Line)}
			}
			seen = el
		}
	}

	if snips, ok := doc.Snips(); ok {
		if err := validateSnips(doc.Path, snips); err != nil {
			return err
		}
	}
	if imports, err := root.GetElement(ImportsContainer); err == nil {
		if err := validateImports(doc.Path, imports); err != nil {
			return err
		}
	}
	return nil
}

func validateSnips(path string, snips *snipdoc.Element) error {
	if dup, found := snips.DuplicateElement(); found {
		name, _ := dup.Name()
		return &ValidationError{Path: path, Line: dup.Pos().Line, Code: CodeNonuniqueSnippet,
			Message: fmt.Sprintf("snippet %q is defined more than once", name)}
	}
	for _, child := range snips.Children() {
		switch n := child.(type) {
		case *snipdoc.Element:
		case snipdoc.Text:
			if strings.TrimSpace(n.Value) != "" {
				return &ValidationError{Path: path, Line: n.Origin.Line, Code: CodeSnipsGarbage,
					Message: fmt.Sprintf("unexpected text in snips container: %q", firstLine(n.Value))}
			}
		case snipdoc.Attribute:
			return &ValidationError{Path: path, Line: n.Origin.Line, Code: CodeSnipsGarbage,
				Message: fmt.Sprintf("unexpected attribute %q in snips container", n.Key)}
		}
	}
	return nil
}

func validateImports(path string, imports *snipdoc.Element) error {
	for _, child := range imports.Children() {
		text, ok := child.(snipdoc.Text)
		if !ok {
			return &ValidationError{Path: path, Line: child.Pos().Line, Code: CodeMalformedImports,
				Message: "imports container may only hold import lines"}
		}
		for i, line := range strings.Split(strings.TrimSuffix(text.Value, "\n"), "\n") {
			if !importLineRe.MatchString(strings.TrimSuffix(line, "\r")) {
				return &ValidationError{Path: path, Line: text.Origin.Line + i, Code: CodeMalformedImports,
					Message: fmt.Sprintf("not an import statement: %q", line)}
			}
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

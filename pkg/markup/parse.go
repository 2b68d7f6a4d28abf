// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/snep/snep/pkg/snipdoc"
)

// ErrParse is the sentinel wrapped by ParseError.
var ErrParse = errors.New("parse error")

// ParseError reports malformed markup.
type ParseError struct {
	// Source identifies the input (usually a file path).
	Source string
	// Line is the 1-based line number of the offending directive.
	Line int
	// Message describes the problem.
	Message string
}

var directiveRe = regexp.MustCompile(`^([^\[:\s]+)\s*([\[:])\s*(.*)$`)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Message)
}

// Unwrap returns ErrParse for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrParse }

type frame struct {
	name     string
	origin   snipdoc.Origin
	open     string
	children []snipdoc.Node
	text     strings.Builder
	textLine int
}

func (f *frame) addText(line string, lineNo int) {
	if f.text.Len() == 0 {
		f.textLine = lineNo
	}
	f.text.WriteString(line)
}

func (f *frame) flush(source string) {
	if f.text.Len() == 0 {
		return
	}
	f.children = append(f.children, snipdoc.Text{
		Value:  f.text.String(),
		Origin: snipdoc.Origin{Source: source, Line: f.textLine},
	})
	f.text.Reset()
}

func (f *frame) add(n snipdoc.Node, source string) {
	f.flush(source)
	f.children = append(f.children, n)
}

// Parse reads src into a document. Each line is matched against every given
// syntax; lines that are not directives become Text. Consecutive text lines
// are coalesced into one Text node.
func Parse(src, source string, syntaxes ...Syntax) (*snipdoc.Element, error) {
	root := &frame{origin: snipdoc.Origin{Source: source, Line: 1}}
	stack := []*frame{root}

	lineNo := 0
	for rest := src; rest != ""; {
		line, tail, found := strings.Cut(rest, "\n")
		if found {
			line += "\n"
		}
		rest = tail
		lineNo++

		top := stack[len(stack)-1]
		directive, ok := matchAny(syntaxes, strings.TrimSuffix(line, "\n"))
		if !ok {
			top.addText(line, lineNo)
			continue
		}
		directive = strings.TrimSpace(directive)
		origin := snipdoc.Origin{Source: source, Line: lineNo}

		switch {
		case directive == "":
			top.addText(line, lineNo)
		case strings.HasPrefix(directive, "]"):
			if len(stack) == 1 {
				return nil, &ParseError{Source: source, Line: lineNo, Message: "unmatched ']'"}
			}
			top.flush(source)
			stack = stack[:len(stack)-1]
			el := snipdoc.NewElement(top.name, top.children,
				snipdoc.WithOrigin(top.origin),
				snipdoc.WithMarkup(top.open, line),
				snipdoc.WithEndComment(directive[1:]))
			stack[len(stack)-1].add(el, source)
		default:
			m := directiveRe.FindStringSubmatch(directive)
			if m == nil {
				return nil, &ParseError{Source: source, Line: lineNo,
					Message: "invalid directive: " + strings.TrimRight(line, " \t\r\n")}
			}
			key, sep, val := m[1], m[2], m[3]
			if sep == ":" {
				top.add(snipdoc.Attribute{Key: key, Value: val, Origin: origin, Raw: line}, source)
				continue
			}
			if val != "" {
				return nil, &ParseError{Source: source, Line: lineNo,
					Message: "trailing garbage after '[': " + strings.TrimRight(line, " \t\r\n")}
			}
			top.flush(source)
			stack = append(stack, &frame{name: key, origin: origin, open: line})
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1]
		return nil, &ParseError{Source: source, Line: open.origin.Line,
			Message: fmt.Sprintf("unclosed '[' for element %q", open.name)}
	}
	root.flush(source)
	return snipdoc.NewDocument(root.children, snipdoc.WithOrigin(root.origin)), nil
}

// ParseFragment parses a standalone piece of markup, such as a resolved merge
// body, and returns its top-level nodes.
func ParseFragment(src, source string, syntaxes ...Syntax) ([]snipdoc.Node, error) {
	doc, err := Parse(src, source, syntaxes...)
	if err != nil {
		return nil, err
	}
	return doc.Children(), nil
}

func matchAny(syntaxes []Syntax, line string) (string, bool) {
	for _, s := range syntaxes {
		if d, ok := s.match(line); ok {
			return d, true
		}
	}
	return "", false
}

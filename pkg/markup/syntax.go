// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

const (
	// SyntaxSh uses "#@" line comments (shell, Python, Ruby, ...).
	SyntaxSh SyntaxName = "sh"
	// SyntaxC uses "/*@ ... */" block comments.
	SyntaxC SyntaxName = "c"
	// SyntaxCpp uses "//@" line comments.
	SyntaxCpp SyntaxName = "c++"
	// SyntaxHaskell uses "-- @" line comments or "{-@ ... -}" block comments.
	SyntaxHaskell SyntaxName = "hs"
)

type (
	// SyntaxName identifies a comment syntax.
	SyntaxName string

	// InvalidSyntaxNameError is returned when a SyntaxName is not recognized.
	InvalidSyntaxNameError struct {
		Value SyntaxName
	}

	// Form is one way of embedding a directive in a comment: an opener that
	// starts the directive and an optional closer that must end the line.
	Form struct {
		// Open is the canonical opener used when rendering.
		Open string
		// Close is the canonical closer used when rendering, empty for line comments.
		Close string
		re    *regexp.Regexp
	}

	// Syntax is a named set of comment forms. Directives are rendered with the
	// first form; any form is accepted when parsing.
	Syntax struct {
		Name  SyntaxName
		Forms []Form
	}

	// Detector chooses the syntaxes of a file. Forced wins over Extensions,
	// which wins over guessing from the path and first line.
	Detector struct {
		Forced     SyntaxName
		Extensions map[string]SyntaxName
	}
)

// ErrUnknownSyntax is returned by Detector.Detect when no syntax applies.
var ErrUnknownSyntax = errors.New("cannot determine comment syntax")

var (
	syntaxes = []Syntax{
		{Name: SyntaxC, Forms: []Form{newForm("/*@", `/\*@`, "*/", `\*/`)}},
		{Name: SyntaxCpp, Forms: []Form{newForm("//@", `//@`, "", "")}},
		{Name: SyntaxHaskell, Forms: []Form{
			newForm("-- @", `--\s@`, "", ""),
			newForm("{-@", `\{-@`, "-}", `-\}`),
		}},
		{Name: SyntaxSh, Forms: []Form{newForm("#@", `#@`, "", "")}},
	}

	cExtensions = []string{"c", "cc", "cpp", "cxx", "c++", "C", "h", "hh", "hpp", "hxx", "h++", "H"}

	shExtensionRe = regexp.MustCompile(`^(py|\w*sh)$`)
	shShebangRe   = regexp.MustCompile(`[/ ]\w*sh\s`)
	pyShebangRe   = regexp.MustCompile(`[/ ]i?python[.\d]*\s`)
)

func newForm(open, openPattern, close, closePattern string) Form {
	return Form{
		Open:  open,
		Close: close,
		re:    regexp.MustCompile(`^\s*` + openPattern + `(.*?)` + closePattern + `\s*$`),
	}
}

// Error implements the error interface.
func (e *InvalidSyntaxNameError) Error() string {
	return fmt.Sprintf("invalid syntax %q (valid: %s)", e.Value, strings.Join(syntaxNames(), ", "))
}

// String returns the string representation of the SyntaxName.
func (n SyntaxName) String() string { return string(n) }

// IsValid returns whether the SyntaxName names a known syntax.
func (n SyntaxName) IsValid() (bool, []error) {
	if _, ok := Lookup(n); !ok {
		return false, []error{&InvalidSyntaxNameError{Value: n}}
	}
	return true, nil
}

// Lookup returns the syntax with the given name.
func Lookup(name SyntaxName) (Syntax, bool) {
	for _, s := range syntaxes {
		if s.Name == name {
			return s, true
		}
	}
	return Syntax{}, false
}

// Syntaxes returns every known syntax.
func Syntaxes() []Syntax { return slices.Clone(syntaxes) }

func syntaxNames() []string {
	names := make([]string, len(syntaxes))
	for i, s := range syntaxes {
		names[i] = string(s.Name)
	}
	return names
}

// Guess picks candidate syntaxes from a file extension (without the dot) and
// the file's first line. It returns nil when nothing matches.
func Guess(extension, shebang string) []Syntax {
	var names []SyntaxName
	switch {
	case slices.Contains(cExtensions, extension):
		names = []SyntaxName{SyntaxC, SyntaxCpp}
	case extension == "hs" || extension == "hsc":
		names = []SyntaxName{SyntaxHaskell}
	case shExtensionRe.MatchString(extension):
		names = []SyntaxName{SyntaxSh}
	case strings.HasPrefix(shebang, "#!") &&
		(shShebangRe.MatchString(shebang+"\n") || pyShebangRe.MatchString(shebang+"\n")):
		names = []SyntaxName{SyntaxSh}
	}
	var out []Syntax
	for _, n := range names {
		s, _ := Lookup(n)
		out = append(out, s)
	}
	return out
}

// GuessFile guesses the syntaxes of a file from its path and contents.
func GuessFile(path, content string) []Syntax {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	firstLine, _, _ := strings.Cut(content, "\n")
	return Guess(ext, firstLine)
}

// Accepts reports whether a document parsed with target reads back every
// directive line written in one of the source syntaxes.
func Accepts(target, source []Syntax) bool {
	if len(source) == 0 {
		return false
	}
	for _, src := range source {
		if !slices.ContainsFunc(target, func(t Syntax) bool { return t.Name == src.Name }) {
			return false
		}
	}
	return true
}

// match returns the directive text of a line, or false if the line is not a directive.
func (s Syntax) match(line string) (string, bool) {
	for _, f := range s.Forms {
		if m := f.re.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (s Syntax) line(directive string) string {
	if len(s.Forms) == 0 {
		return directive + "\n"
	}
	f := s.Forms[0]
	if f.Close == "" {
		return f.Open + directive + "\n"
	}
	return f.Open + directive + " " + f.Close + "\n"
}

// Begin renders an element start line.
func (s Syntax) Begin(name string) string { return s.line(name + "[") }

// End renders an element end line.
func (s Syntax) End(comment string) string { return s.line("]" + comment) }

// Attr renders an attribute line.
func (s Syntax) Attr(key, value string) string { return s.line(key + ": " + value) }

// Detect returns the candidate syntaxes for a file.
func (d Detector) Detect(path, content string) ([]Syntax, error) {
	if d.Forced != "" {
		return lookupAll(path, d.Forced)
	}
	if name, ok := d.Extensions[strings.TrimPrefix(filepath.Ext(path), ".")]; ok {
		return lookupAll(path, name)
	}
	if guessed := GuessFile(path, content); len(guessed) > 0 {
		return guessed, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownSyntax)
}

func lookupAll(path string, name SyntaxName) ([]Syntax, error) {
	s, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, &InvalidSyntaxNameError{Value: name})
	}
	return []Syntax{s}, nil
}

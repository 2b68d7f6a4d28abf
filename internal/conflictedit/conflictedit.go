// SPDX-License-Identifier: MPL-2.0

// Package conflictedit resolves snippet conflicts by letting the user edit
// git-style conflict markers in their editor.
package conflictedit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/snep/snep/internal/merge"
	"github.com/snep/snep/pkg/markup"

	"mvdan.cc/sh/v3/shell"
)

const (
	markerOurs   = "<<<<<<<"
	markerSep    = "======="
	markerTheirs = ">>>>>>>"

	defaultEditor = "vi"
)

// ErrNoEditor is returned when the editor command is empty after expansion.
var ErrNoEditor = errors.New("no editor command")

type (
	// RunFunc runs the editor. argv[0] is the program.
	RunFunc func(ctx context.Context, argv []string) error

	// Editor implements merge.Resolver by writing both sides of every
	// conflict to a temporary file and running an editor on it.
	Editor struct {
		// Command is the editor command line, split with shell rules.
		// Empty means $VISUAL, then $EDITOR, then vi.
		Command string
		// Syntax is used to write and read the temporary file.
		Syntax markup.Syntax
		// Label1 and Label2 name the two sides in the conflict markers.
		Label1 string
		Label2 string
		// TempDir holds the temporary file; empty means os.TempDir.
		TempDir string
		// Run executes the editor. Nil runs it attached to the terminal.
		Run RunFunc
		// In and Out carry the quit-or-continue prompt.
		In  io.Reader
		Out io.Writer
	}
)

// EditorCommand returns the user's preferred editor command line.
func EditorCommand(getenv func(string) string) string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return defaultEditor
}

// Argv splits an editor command line into arguments and appends path.
func Argv(command, path string, getenv func(string) string) ([]string, error) {
	fields, err := shell.Fields(command, getenv)
	if err != nil {
		return nil, fmt.Errorf("parse editor command %q: %w", command, err)
	}
	if len(fields) == 0 {
		return nil, ErrNoEditor
	}
	return append(fields, path), nil
}

// Resolve implements merge.Resolver.
func (e *Editor) Resolve(ctx context.Context, side1, side2 map[string]string) (map[string]string, error) {
	f, err := os.CreateTemp(e.TempDir, "snep-merge-*"+e.extension())
	if err != nil {
		return nil, fmt.Errorf("create merge file: %w", err)
	}
	path := f.Name()
	defer func() { _ = os.Remove(path) }() // Best-effort cleanup

	_, werr := io.WriteString(f, Conflicted(e.Syntax, side1, side2, e.label(e.Label1, "FILE1"), e.label(e.Label2, "FILE2")))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, fmt.Errorf("write merge file: %w", werr)
	}

	command := e.Command
	if command == "" {
		command = EditorCommand(os.Getenv)
	}
	argv, err := Argv(command, path, os.Getenv)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.run(ctx, argv); err != nil {
			return nil, fmt.Errorf("run editor: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read merge file: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, merge.ErrMergeCanceled
		}

		resolved, problem := Read(e.Syntax, string(data), path)
		if problem == nil {
			return resolved, nil
		}
		again, err := e.askContinue(problem)
		if err != nil {
			return nil, err
		}
		if !again {
			return nil, merge.ErrMergeCanceled
		}
	}
}

// Conflicted renders the contents of the merge file: one element per
// conflicting name, sorted, holding both bodies between conflict markers.
func Conflicted(syntax markup.Syntax, side1, side2 map[string]string, label1, label2 string) string {
	names := slices.Sorted(maps.Keys(side2))
	for name := range side1 {
		if _, ok := side2[name]; !ok {
			names = append(names, name)
		}
	}
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(syntax.Begin(name))
		sb.WriteString(markerOurs + " " + label1 + "\n")
		sb.WriteString(terminated(side1[name]))
		sb.WriteString(markerSep + "\n")
		sb.WriteString(terminated(side2[name]))
		sb.WriteString(markerTheirs + " " + label2 + "\n")
		sb.WriteString(syntax.End(""))
	}
	return sb.String()
}

// Read extracts the resolved bodies from an edited merge file. It fails when
// the file does not parse or still holds conflict markers.
func Read(syntax markup.Syntax, content, source string) (map[string]string, error) {
	if line, ok := findMarker(content); ok {
		return nil, fmt.Errorf("unresolved conflict marker on line %d", line)
	}
	doc, err := markup.Parse(content, source, syntax)
	if err != nil {
		return nil, err
	}
	resolved := make(map[string]string)
	for _, el := range doc.Elements() {
		name, _ := el.Name()
		if _, dup := resolved[name]; dup {
			continue
		}
		resolved[name] = el.WithoutName().Render(syntax)
	}
	return resolved, nil
}

// findMarker returns the line of the first leftover conflict marker. A
// separator cannot be unresolved without the markers around it, so only
// opening and closing markers count.
func findMarker(content string) (int, bool) {
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if isMarker(line, markerOurs) || isMarker(line, markerTheirs) {
			return i + 1, true
		}
	}
	return 0, false
}

// isMarker reports whether line is marker, alone or followed by a label.
func isMarker(line, marker string) bool {
	return line == marker || strings.HasPrefix(line, marker+" ")
}

func (e *Editor) askContinue(problem error) (bool, error) {
	out := e.Out
	if out == nil {
		out = os.Stderr
	}
	in := e.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprintf(out, "Merge is not complete: %v\n", problem)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "[Q]uit or [C]ontinue merging? ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, err
			}
			return false, nil
		}
		response := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch {
		case response != "" && strings.HasPrefix("quit", response):
			return false, nil
		case response != "" && strings.HasPrefix("continue", response):
			return true, nil
		}
		fmt.Fprintln(out, "Please type either Q or C.")
	}
}

func (e *Editor) run(ctx context.Context, argv []string) error {
	if e.Run != nil {
		return e.Run(ctx, argv)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (e *Editor) extension() string {
	switch e.Syntax.Name {
	case markup.SyntaxC:
		return ".c"
	case markup.SyntaxCpp:
		return ".cpp"
	case markup.SyntaxHaskell:
		return ".hs"
	default:
		return ".sh"
	}
}

func (*Editor) label(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func terminated(s string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

// SPDX-License-Identifier: MPL-2.0

package snippet

import (
	"errors"
	"slices"
	"testing"

	"github.com/snep/snep/pkg/snipdoc"
)

func TestFromElement(t *testing.T) {
	t.Parallel()

	el := snipdoc.NewElement("rename", []snipdoc.Node{
		snipdoc.Attribute{Key: "requires", Value: "mod:os try_remove"},
		snipdoc.Attribute{Key: "requires", Value: "mod:os  wrapped_open"},
		snipdoc.Text{Value: "def rename(): pass\n"},
	})
	s := FromElement(el)
	if s.Name() != "rename" || s.Kind() != KindOrdinary || s.IsVirtual() {
		t.Errorf("unexpected snippet %q kind=%v", s.Name(), s.Kind())
	}
	want := []string{"mod:os", "try_remove", "wrapped_open"}
	if got := s.Requires(); !slices.Equal(got, want) {
		t.Errorf("Requires() = %v, want %v", got, want)
	}
	if got, ok := s.Element(); !ok || got != el {
		t.Error("Element() must return the backing element")
	}
}

func TestMissing(t *testing.T) {
	t.Parallel()

	s := Missing("nowhere")
	if s.Kind() != KindMissing || !s.IsVirtual() || s.Requires() != nil {
		t.Errorf("Missing() = %+v", s)
	}
	if _, ok := s.Element(); ok {
		t.Error("missing snippet must not have an element")
	}
}

func TestBuiltin(t *testing.T) {
	t.Parallel()

	s, err := Builtin("mod:os")
	if err != nil {
		t.Fatalf("Builtin(mod:os) error: %v", err)
	}
	if mod, ok := s.Module(); !ok || mod != "os" {
		t.Errorf("Module() = %q, %v", mod, ok)
	}
	if s.Kind() != KindBuiltinModule || s.Requires() != nil {
		t.Errorf("unexpected builtin %+v", s)
	}

	tests := []struct {
		name string
	}{
		{"pkg:os"},
		{"mod:os.path"},
		{"mod:"},
		{"mod:a:b"},
		{"os"},
	}
	for _, tt := range tests {
		_, err := Builtin(tt.name)
		if !errors.Is(err, ErrInvalidBuiltin) {
			t.Errorf("Builtin(%q) error = %v, want ErrInvalidBuiltin", tt.name, err)
		}
		var be *BuiltinSnippetError
		if !errors.As(err, &be) || be.Name != tt.name {
			t.Errorf("Builtin(%q): expected *BuiltinSnippetError", tt.name)
		}
	}
}

func TestIsBuiltinName(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"mod:os":          true,
		"pkg:x":           true,
		"a:b:c":           false,
		"ctypes.wintypes": false,
		"plain":           false,
	} {
		if got := IsBuiltinName(name); got != want {
			t.Errorf("IsBuiltinName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseRequires(t *testing.T) {
	t.Parallel()

	if got := ParseRequires(" b a\n\tb  c "); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("ParseRequires() = %v", got)
	}
	if got := ParseRequires(""); len(got) != 0 {
		t.Errorf("ParseRequires(\"\") = %v, want empty", got)
	}
}

func TestFromContainer(t *testing.T) {
	t.Parallel()

	snips := snipdoc.NewElement("snips", []snipdoc.Node{
		snipdoc.NewElement("b", nil),
		snipdoc.Text{Value: "\n"},
		snipdoc.NewElement("a", nil),
	})
	got := FromContainer(snips)
	if len(got) != 2 || got[0].Name() != "b" || got[1].Name() != "a" {
		t.Errorf("FromContainer() = %v", got)
	}
}

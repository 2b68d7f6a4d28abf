// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"os"

	"github.com/snep/snep/pkg/markup"
	"github.com/snep/snep/pkg/snipdoc"
)

type (
	// Source reads documents by path. A document that does not exist is
	// reported with an error wrapping fs.ErrNotExist.
	Source interface {
		ReadFile(ctx context.Context, path string) (string, error)
	}

	// OSSource reads documents from the local filesystem.
	OSSource struct{}

	// Document is a parsed file together with the syntax it was parsed with.
	Document struct {
		Path     string
		Content  string
		Root     *snipdoc.Element
		Syntaxes []markup.Syntax
	}
)

// ReadFile implements Source.
func (OSSource) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Load reads and parses one document. Read errors are returned as-is so that
// callers can tell missing files apart; parse errors are *markup.ParseError.
func Load(ctx context.Context, src Source, detector markup.Detector, path string) (*Document, error) {
	content, err := src.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	syntaxes, err := detector.Detect(path, content)
	if err != nil {
		return nil, err
	}
	root, err := markup.Parse(content, path, syntaxes...)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Document{Path: path, Content: content, Root: root, Syntaxes: syntaxes}, nil
}

// Render serializes root with the document's primary syntax.
func (d *Document) Render(root *snipdoc.Element) string {
	return root.Render(d.Syntaxes[0])
}

// Snips returns the document's snips container, if it has exactly one.
func (d *Document) Snips() (*snipdoc.Element, bool) {
	el, err := d.Root.GetElement(SnipsContainer)
	return el, err == nil
}

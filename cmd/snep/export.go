// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/snep/snep/internal/issue"
	"github.com/snep/snep/internal/resolver"
	"github.com/snep/snep/pkg/snipdoc"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	exportJSON exportFormat = "json"
	exportYAML exportFormat = "yaml"
)

// ErrInvalidExportFormat is returned when --format names an unknown encoding.
var ErrInvalidExportFormat = errors.New("invalid export format")

type (
	exportFormat string

	exportFlags struct {
		format string
		pretty bool
	}
)

// IsValid returns whether the format is json or yaml.
func (f exportFormat) IsValid() (bool, []error) {
	switch f {
	case exportJSON, exportYAML:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: json, yaml)", ErrInvalidExportFormat, string(f))}
	}
}

func newExportCommand(app *App) *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Print the parsed structure of a file",
		Long: `Print the parsed structure of a file.

Text is a string, an attribute is ["key", "value"], an element is
["name", [children...]] and the document is the list of its top-level nodes.
Order is preserved, so the output describes the file completely.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runExport(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", string(exportJSON), "output format (json, yaml)")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	return cmd
}

func (a *App) runExport(ctx context.Context, path string, f exportFlags) error {
	format := exportFormat(f.format)
	if valid, errs := format.IsValid(); !valid {
		return &ExitError{Code: exitUsage, Err: errs[0]}
	}

	cfg, cfgDiags, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(err, glamourStyle(nil))
	}
	style := glamourStyle(cfg)
	a.Diagnostics.Render(ctx, cfgDiags, a.stderr)

	det, err := a.detector(cfg)
	if err != nil {
		return err
	}
	doc, err := resolver.Load(ctx, resolver.OSSource{}, det, path)
	if err != nil {
		return a.fail(err, style)
	}

	out, err := encodeDocument(doc.Root, format, f.pretty)
	if err != nil {
		return a.fail(issue.Wrap(err, "encode document", path), style)
	}
	if _, err := a.stdout.Write(out); err != nil {
		return a.fail(issue.Wrap(err, "write export", ""), style)
	}
	return nil
}

// encodeDocument serializes the order-preserving projection of root.
func encodeDocument(root *snipdoc.Element, format exportFormat, pretty bool) ([]byte, error) {
	projection := snipdoc.Project(root)
	switch format {
	case exportYAML:
		return yaml.Marshal(projection)
	default:
		var (
			out []byte
			err error
		)
		if pretty {
			out, err = json.MarshalIndent(projection, "", "  ")
		} else {
			out, err = json.Marshal(projection)
		}
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
}

// Package text provides plain text output without any styling
package text

import (
	"fmt"
	"io"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/ui/display"
)

// Renderer provides plain text output without colors or styling
type Renderer struct {
	output io.Writer
}

// New creates a new text renderer
func New(output io.Writer) *Renderer {
	return &Renderer{output: output}
}

// RenderResult renders any result type as plain text
func (r *Renderer) RenderResult(result interface{}) error {
	switch v := result.(type) {
	case *display.SyncResult:
		return r.renderSync(v)
	case *display.EvalResult:
		return r.println(v.Rendered)
	case *display.InfoResult:
		for _, kv := range v.Fields() {
			if err := r.printf("%-13s %s\n", kv[0]+":", kv[1]); err != nil {
				return err
			}
		}
		return nil
	case *display.FunctionsResult:
		_, err := io.WriteString(r.output, v.Markdown())
		return err
	default:
		return r.printf("%+v\n", result)
	}
}

func (r *Renderer) renderSync(res *display.SyncResult) error {
	for _, f := range res.Files {
		if err := r.println(f.Line()); err != nil {
			return err
		}
		for _, d := range f.Deltas {
			if err := r.println("  " + d); err != nil {
				return err
			}
		}
	}
	if err := r.println(res.Totals()); err != nil {
		return err
	}
	if res.DryRun {
		return r.println("Dry run: no files were written.")
	}
	return nil
}

// RenderError renders an error as plain text
func (r *Renderer) RenderError(err error) error {
	if coded, ok := errors.Find(err); ok {
		return r.println("Error: " + coded.Describe())
	}
	return r.println("Error: " + err.Error())
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	return r.println(msg)
}

func (r *Renderer) println(s string) error {
	_, err := fmt.Fprintln(r.output, s)
	return err
}

func (r *Renderer) printf(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(r.output, format, args...)
	return err
}

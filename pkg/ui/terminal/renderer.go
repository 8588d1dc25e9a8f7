// Package terminal provides rich terminal output with colors and styling
package terminal

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/ui/display"
)

// Renderer styles output with lipgloss and renders markdown with glamour
type Renderer struct {
	output io.Writer
	styles styles
	// Width wraps markdown; 0 leaves glamour's default
	Width int
}

type styles struct {
	path    lipgloss.Style
	delta   lipgloss.Style
	muted   lipgloss.Style
	key     lipgloss.Style
	notice  lipgloss.Style
	err     lipgloss.Style
	status  map[string]lipgloss.Style
	message lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		path:    r.NewStyle().Bold(true),
		delta:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"}).PaddingLeft(2),
		muted:   r.NewStyle().Faint(true),
		key:     r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		notice:  r.NewStyle().Foreground(lipgloss.Color("11")).Italic(true),
		err:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		message: r.NewStyle(),
		status: map[string]lipgloss.Style{
			display.StatusWritten:   r.NewStyle().Foreground(lipgloss.Color("10")),
			display.StatusWouldEdit: r.NewStyle().Foreground(lipgloss.Color("11")),
			display.StatusUnchanged: r.NewStyle().Faint(true),
			display.StatusFailed:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			display.StatusSkipped:   r.NewStyle().Faint(true).Italic(true),
		},
	}
}

// New creates a new terminal renderer. Color support is detected from the writer.
func New(w io.Writer) *Renderer {
	var opts []termenv.OutputOption
	if _, ok := w.(*os.File); !ok {
		opts = append(opts, termenv.WithProfile(termenv.ANSI256))
	}
	lr := lipgloss.NewRenderer(w, opts...)
	return &Renderer{output: w, styles: newStyles(lr)}
}

// RenderResult renders any result type with rich terminal formatting
func (r *Renderer) RenderResult(result interface{}) error {
	switch v := result.(type) {
	case *display.SyncResult:
		return r.renderSync(v)
	case *display.EvalResult:
		return r.println(v.Rendered)
	case *display.InfoResult:
		for _, kv := range v.Fields() {
			if err := r.println(r.styles.key.Render(fmt.Sprintf("%-13s", kv[0]+":")) + " " + kv[1]); err != nil {
				return err
			}
		}
		return nil
	case *display.FunctionsResult:
		return r.renderMarkdown(v.Markdown())
	default:
		_, err := fmt.Fprintf(r.output, "%+v\n", result)
		return err
	}
}

func (r *Renderer) renderSync(res *display.SyncResult) error {
	for _, f := range res.Files {
		line := r.styles.path.Render(f.Path) + " " + r.status(f.Status)
		switch f.Status {
		case display.StatusFailed:
			line += " " + f.Error
		case display.StatusSkipped:
		default:
			line += r.styles.muted.Render(fmt.Sprintf(" %d/%d lines, %d blocks", f.LinesChanged, f.LinesCovered, f.Blocks))
			if f.Backup != "" {
				line += r.styles.muted.Render(" backup: " + f.Backup)
			}
		}
		if err := r.println(line); err != nil {
			return err
		}
		for _, d := range f.Deltas {
			if err := r.println(r.styles.delta.Render(d)); err != nil {
				return err
			}
		}
	}
	if err := r.println(r.styles.muted.Render(res.Totals())); err != nil {
		return err
	}
	if res.DryRun {
		return r.println(r.styles.notice.Render("Dry run: no files were written."))
	}
	return nil
}

func (r *Renderer) status(s string) string {
	if style, ok := r.styles.status[s]; ok {
		return style.Render(s)
	}
	return s
}

func (r *Renderer) renderMarkdown(md string) error {
	options := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}
	tr, err := glamour.NewTermRenderer(options...)
	if err != nil {
		_, werr := io.WriteString(r.output, md)
		return werr
	}
	out, err := tr.Render(md)
	if err != nil {
		out = md
	}
	_, err = io.WriteString(r.output, out)
	return err
}

// RenderError renders an error with appropriate formatting
func (r *Renderer) RenderError(err error) error {
	msg := err.Error()
	if coded, ok := errors.Find(err); ok {
		msg = coded.Describe()
	}
	return r.println(r.styles.err.Render("Error:") + " " + msg)
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	return r.println(r.styles.message.Render(msg))
}

func (r *Renderer) println(s string) error {
	_, err := fmt.Fprintln(r.output, s)
	return err
}

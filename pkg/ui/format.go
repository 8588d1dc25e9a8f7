package ui

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// Format selects a renderer.
type Format int

const (
	// FormatAuto picks FormatTerminal for a color terminal and FormatText otherwise
	FormatAuto Format = iota
	// FormatTerminal styles output with lipgloss
	FormatTerminal
	// FormatText is plain, stable text suited to logs and tests
	FormatText
	// FormatJSON is one JSON document per result
	FormatJSON
)

// formatNames holds the canonical name of each format first, then its aliases.
var formatNames = map[Format][]string{
	FormatAuto:     {"auto", ""},
	FormatTerminal: {"term", "terminal"},
	FormatText:     {"text", "plain"},
	FormatJSON:     {"json"},
}

// FormatNames lists the canonical names accepted by --output.
func FormatNames() []string {
	return []string{"auto", "term", "text", "json"}
}

func (f Format) String() string {
	if names, ok := formatNames[f]; ok {
		return names[0]
	}
	return "unknown"
}

// ParseFormat accepts a canonical name or alias, ignoring case.
func ParseFormat(s string) (Format, error) {
	lower := strings.ToLower(s)
	for format, names := range formatNames {
		for _, name := range names {
			if name == lower {
				return format, nil
			}
		}
	}
	return FormatAuto, errors.Newf(errors.ErrInvalidInput, "unknown format: %s (want one of %s)",
		s, strings.Join(FormatNames(), ", ")).WithDetail("format", s)
}

// DetectFormat resolves FormatAuto for output. NO_COLOR, a pipe or redirect,
// or a terminal without color support all mean plain text.
func DetectFormat(output *os.File) Format {
	fd := output.Fd()
	switch {
	case os.Getenv("NO_COLOR") != "":
		return FormatText
	case !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd):
		return FormatText
	case termenv.NewOutput(output).ColorProfile() == termenv.Ascii:
		return FormatText
	}
	return FormatTerminal
}

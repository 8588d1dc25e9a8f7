package syncer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// Renderer turns a marker template into its generated line. inKey is the key that
// relative expressions such as ".version" resolve against.
type Renderer interface {
	Render(template, inKey string) (string, error)
}

type scanState int

const (
	scanning scanState = iota
	inMarkerBlock
	rewinding
)

// Scanner runs the marker state machine over the lines of one file.
type Scanner struct {
	path     string
	pattern  *regexp.Regexp
	renderer Renderer
	// tables enables tracking of TOML table headers as the current key.
	tables bool
}

// NewScanner creates a scanner for path using the given comment profile.
func NewScanner(path string, profile CommentProfile, renderer Renderer) *Scanner {
	return &Scanner{
		path:     path,
		pattern:  MarkerPattern(profile),
		renderer: renderer,
		tables:   strings.EqualFold(filepath.Ext(path), ".toml"),
	}
}

// Template returns the template text of a marker line.
func (s *Scanner) Template(line string) (string, bool) {
	m := s.pattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return templateText(m[1]), true
}

// Scan returns the rewritten lines and one DeltaBlock per marker block.
//
// Marker lines are copied through. The first line after a block starts the old
// generated output: it and the following lines, one per template, are replaced by
// the rendered templates. A block that reaches the end of the file, or a marker
// line inside the lines being replaced, is a MALFORMED_BLOCK error.
func (s *Scanner) Scan(lines []string) ([]string, []*DeltaBlock, error) {
	out := make([]string, 0, len(lines))
	var blocks []*DeltaBlock
	var block *DeltaBlock
	state := scanning
	inKey := ""
	remaining := 0

	for i, line := range lines {
		lineNo := i + 1
		switch state {
		case scanning:
			if tpl, ok := s.Template(line); ok {
				block = &DeltaBlock{Path: s.path, MarkerLine: lineNo, Templates: []string{tpl}}
				state = inMarkerBlock
			} else if s.tables {
				if key, ok := tomlTableKey(line); ok {
					inKey = key
				}
			}
			out = append(out, line)

		case inMarkerBlock:
			if tpl, ok := s.Template(line); ok {
				block.Templates = append(block.Templates, tpl)
				out = append(out, line)
				continue
			}
			generated, err := s.render(block, inKey)
			if err != nil {
				return nil, nil, err
			}
			block.FirstLine = lineNo
			block.NewLines = generated
			out = append(out, generated...)
			remaining = block.Len()
			state = rewinding
			fallthrough

		case rewinding:
			if _, ok := s.Template(line); ok {
				return nil, nil, s.malformed(block, lineNo,
					"marker line %d falls inside the %d lines generated by the block at line %d",
					lineNo, block.Len(), block.MarkerLine)
			}
			block.OldLines = append(block.OldLines, line)
			remaining--
			if remaining == 0 {
				blocks = append(blocks, block)
				block = nil
				state = scanning
			}
		}
	}

	switch state {
	case inMarkerBlock:
		return nil, nil, s.malformed(block, len(lines),
			"marker block at line %d is not followed by any line to replace", block.MarkerLine)
	case rewinding:
		return nil, nil, s.malformed(block, len(lines),
			"marker block at line %d needs %d lines to replace but the file ends after %d",
			block.MarkerLine, block.Len(), len(block.OldLines))
	}
	return out, blocks, nil
}

func (s *Scanner) render(block *DeltaBlock, inKey string) ([]string, error) {
	generated := make([]string, len(block.Templates))
	for j, tpl := range block.Templates {
		line, err := s.renderer.Render(tpl, inKey)
		if err != nil {
			return nil, locate(err, s.path, block.MarkerLine+j, tpl)
		}
		generated[j] = line
	}
	return generated, nil
}

func (s *Scanner) malformed(block *DeltaBlock, line int, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrMalformedBlock, format, args...).
		WithDetail("file", s.path).
		WithDetail("line", line).
		WithDetail("marker_line", block.MarkerLine)
}

// locate attaches the file, line and template to an evaluation error, keeping its code.
func locate(err error, path string, line int, template string) error {
	coded, ok := err.(*errors.Error)
	if !ok {
		coded = errors.Wrap(err, errors.ErrExpression, "cannot render template")
	}
	details := map[string]interface{}{"file": path, "line": line}
	if _, has := coded.Details["expression"]; !has {
		details["expression"] = template
	}
	return coded.WithDetails(details)
}

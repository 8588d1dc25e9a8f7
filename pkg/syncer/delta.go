package syncer

import (
	"fmt"
	"strings"
)

// DeltaBlock records one marker block: its templates, the lines they replaced and the
// lines they generated. Line numbers are 1-based.
type DeltaBlock struct {
	Path string
	// MarkerLine is the line of the first template.
	MarkerLine int
	// FirstLine is the line of the first generated line.
	FirstLine int
	Templates []string
	OldLines  []string
	NewLines  []string
}

// Len is the number of generated lines.
func (b *DeltaBlock) Len() int {
	return len(b.Templates)
}

// LastLine is the line of the last generated line.
func (b *DeltaBlock) LastLine() int {
	return b.FirstLine + b.Len() - 1
}

// LinesDiffer counts generated lines that differ from the lines they replaced.
func (b *DeltaBlock) LinesDiffer() int {
	n := 0
	for i := range b.NewLines {
		if i >= len(b.OldLines) || b.OldLines[i] != b.NewLines[i] {
			n++
		}
	}
	return n
}

// Changed reports whether any line differs.
func (b *DeltaBlock) Changed() bool {
	return b.LinesDiffer() > 0
}

func (b *DeltaBlock) String() string {
	if b.Len() == 1 {
		if !b.Changed() {
			return fmt.Sprintf("Line %d unchanged.", b.FirstLine)
		}
		return fmt.Sprintf("Line %d edited from '%s' to '%s'.", b.FirstLine, b.OldLines[0], b.NewLines[0])
	}
	if !b.Changed() {
		return fmt.Sprintf("Lines %d to %d unchanged.", b.FirstLine, b.LastLine())
	}
	return fmt.Sprintf("Lines %d to %d edited (%d lines differ).", b.FirstLine, b.LastLine(), b.LinesDiffer())
}

// Summary reports the outcome of syncing one file.
type Summary struct {
	Path   string
	Blocks []*DeltaBlock
	// Changed is true if the generated content differs from the file.
	Changed bool
	// Written is true if the file was rewritten; it stays false for dry runs and unchanged files.
	Written bool
	// BackupPath is set when a backup copy was made.
	BackupPath string
}

// BlockCount is the number of marker blocks.
func (s *Summary) BlockCount() int {
	return len(s.Blocks)
}

// LinesCovered is the number of generated lines across all blocks.
func (s *Summary) LinesCovered() int {
	n := 0
	for _, b := range s.Blocks {
		n += b.Len()
	}
	return n
}

// LinesChanged is the number of generated lines that differ from the old ones.
func (s *Summary) LinesChanged() int {
	n := 0
	for _, b := range s.Blocks {
		n += b.LinesDiffer()
	}
	return n
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d lines changed (of %d in %d blocks)", s.Path, s.LinesChanged(), s.LinesCovered(), s.BlockCount())
	if s.BackupPath != "" {
		fmt.Fprintf(&b, " (backup saved as %s)", s.BackupPath)
	}
	return b.String()
}

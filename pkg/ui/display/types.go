// Package display holds the results that commands hand to a renderer.
package display

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/syncer"
)

// File statuses
const (
	StatusWritten   = "written"
	StatusUnchanged = "unchanged"
	StatusWouldEdit = "would change"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// SyncResult reports a sync run.
type SyncResult struct {
	RunID  string       `json:"run_id"`
	DryRun bool         `json:"dry_run"`
	Files  []FileResult `json:"files"`
}

// FileResult reports one file. Path is relative to the project root when possible.
type FileResult struct {
	Path         string   `json:"path"`
	Status       string   `json:"status"`
	LinesChanged int      `json:"lines_changed"`
	LinesCovered int      `json:"lines_covered"`
	Blocks       int      `json:"blocks"`
	Backup       string   `json:"backup,omitempty"`
	Deltas       []string `json:"deltas,omitempty"`
	Error        string   `json:"error,omitempty"`
	Code         string   `json:"code,omitempty"`
}

// Counts tallies files by status.
func (r *SyncResult) Counts() map[string]int {
	counts := map[string]int{}
	for _, f := range r.Files {
		counts[f.Status]++
	}
	return counts
}

// NewSyncResult converts a syncer report, listing files in the order they were given.
func NewSyncResult(report *syncer.Report, root string, dryRun bool) *SyncResult {
	out := &SyncResult{RunID: report.RunID, DryRun: dryRun}
	for _, s := range report.Summaries {
		f := FileResult{
			Path:         relTo(root, s.Path),
			LinesChanged: s.LinesChanged(),
			LinesCovered: s.LinesCovered(),
			Blocks:       s.BlockCount(),
		}
		if s.BackupPath != "" {
			f.Backup = relTo(root, s.BackupPath)
		}
		switch {
		case s.Written:
			f.Status = StatusWritten
		case s.Changed:
			f.Status = StatusWouldEdit
		default:
			f.Status = StatusUnchanged
		}
		for _, b := range s.Blocks {
			if b.Changed() {
				f.Deltas = append(f.Deltas, b.String())
			}
		}
		out.Files = append(out.Files, f)
	}
	for _, failure := range report.Failures {
		f := FileResult{Path: relTo(root, failure.Path), Status: StatusFailed, Error: failure.Err.Error()}
		if coded, ok := errors.Find(failure.Err); ok {
			f.Code = string(coded.Code)
			f.Error = coded.Describe()
		}
		out.Files = append(out.Files, f)
	}
	for _, path := range report.Skipped {
		out.Files = append(out.Files, FileResult{Path: relTo(root, path), Status: StatusSkipped})
	}
	return out
}

func relTo(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// EvalResult is the value of one expression.
type EvalResult struct {
	Expression string `json:"expression"`
	InKey      string `json:"in_key,omitempty"`
	Value      any    `json:"value"`
	// Rendered is the value as it would appear in a generated line.
	Rendered string `json:"rendered"`
}

// InfoResult describes the loaded project.
type InfoResult struct {
	Version     string   `json:"version"`
	Root        string   `json:"root"`
	Fallback    bool     `json:"fallback"`
	DataFiles   []string `json:"data_files"`
	ConfigFiles []string `json:"config_files"`
	BackupDir   string   `json:"backup_dir"`
	LogFile     string   `json:"log_file"`
	Patterns    []string `json:"patterns"`
	Targets     []string `json:"targets"`
}

// FunctionsResult is the expression function reference.
type FunctionsResult struct {
	Functions []functions.Doc `json:"functions"`
}

// Markdown renders the reference as a markdown document.
func (r *FunctionsResult) Markdown() string {
	var b strings.Builder
	b.WriteString("# Expression functions\n\n")
	b.WriteString("Call these from any expression, as in `${{ pep440(project.version).major }}`.\n")
	for _, d := range r.Functions {
		b.WriteString("\n## " + d.Name + "\n\n")
		b.WriteString("`" + d.Signature + "`\n\n")
		b.WriteString(d.Description + "\n")
	}
	return b.String()
}

// Line is the one-line summary of a file, without its deltas.
func (f FileResult) Line() string {
	switch f.Status {
	case StatusFailed:
		return fmt.Sprintf("%s: failed: %s", f.Path, f.Error)
	case StatusSkipped:
		return fmt.Sprintf("%s: skipped", f.Path)
	}
	s := fmt.Sprintf("%s: %s (%d of %d lines changed in %d blocks)", f.Path, f.Status, f.LinesChanged, f.LinesCovered, f.Blocks)
	if f.Backup != "" {
		s += fmt.Sprintf(" (backup saved as %s)", f.Backup)
	}
	return s
}

// Totals is the closing summary line, such as "3 files: 1 written, 2 unchanged".
func (r *SyncResult) Totals() string {
	counts := r.Counts()
	var parts []string
	for _, status := range []string{StatusWritten, StatusWouldEdit, StatusUnchanged, StatusFailed, StatusSkipped} {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	noun := "files"
	if len(r.Files) == 1 {
		noun = "file"
	}
	if len(parts) == 0 {
		return "no files to sync"
	}
	return fmt.Sprintf("%d %s: %s", len(r.Files), noun, strings.Join(parts, ", "))
}

// Fields lists the info entries in display order.
func (r *InfoResult) Fields() [][2]string {
	root := r.Root
	if r.Fallback {
		root += " (no data file found; using the working directory)"
	}
	return [][2]string{
		{"version", r.Version},
		{"root", root},
		{"data files", strings.Join(r.DataFiles, ", ")},
		{"config files", strings.Join(r.ConfigFiles, ", ")},
		{"backup dir", r.BackupDir},
		{"log file", r.LogFile},
		{"patterns", strings.Join(r.Patterns, " ")},
		{"targets", fmt.Sprintf("%d", len(r.Targets))},
	}
}

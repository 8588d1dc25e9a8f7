package syncer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/filesystem"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/paths"
)

// Failure policies for SyncFiles
const (
	// PolicyAbort stops at the first file that fails.
	PolicyAbort = "abort"
	// PolicyContinue syncs every file and reports all failures together.
	PolicyContinue = "continue"
)

// Options controls how a Syncer commits files.
type Options struct {
	FS filesystem.FS
	// Paths locates backups. It is required when Backup is set.
	Paths paths.Paths
	// Atomic writes through a temporary sibling and a rename.
	Atomic bool
	// Backup copies each file before it is rewritten.
	Backup bool
	// DryRun computes summaries without writing anything.
	DryRun bool
	// Policy is PolicyAbort or PolicyContinue; empty means PolicyAbort.
	Policy string
}

// Syncer rewrites target files.
type Syncer struct {
	renderer Renderer
	opts     Options
	runID    string
	logger   zerolog.Logger
}

// New creates a Syncer. Each Syncer has its own run id, attached to its log lines.
func New(renderer Renderer, opts Options) *Syncer {
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	runID := uuid.NewString()
	return &Syncer{
		renderer: renderer,
		opts:     opts,
		runID:    runID,
		logger:   logging.GetLogger("syncer").With().Str("run", runID).Logger(),
	}
}

// RunID identifies this Syncer's run in logs.
func (s *Syncer) RunID() string {
	return s.runID
}

// Failure is a file that could not be synced.
type Failure struct {
	Path string
	Err  error
}

// Report collects the outcome of SyncFiles.
type Report struct {
	RunID     string
	Summaries []*Summary
	Failures  []Failure
	// Skipped lists files not attempted because an earlier file failed under PolicyAbort.
	Skipped []string
}

// Written counts files that were rewritten.
func (r *Report) Written() int {
	n := 0
	for _, s := range r.Summaries {
		if s.Written {
			n++
		}
	}
	return n
}

// SyncFiles syncs each file in order. Under PolicyAbort the first failure ends the run;
// under PolicyContinue every file is attempted and the failures are joined.
func (s *Syncer) SyncFiles(files []string) (*Report, error) {
	done := logging.LogOperationStart(s.logger, "sync")
	defer done()

	report := &Report{RunID: s.runID}
	var errs []error
	for i, path := range files {
		summary, err := s.SyncFile(path)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Path: path, Err: err})
			errs = append(errs, err)
			if s.opts.Policy != PolicyContinue {
				report.Skipped = append(report.Skipped, files[i+1:]...)
				break
			}
			continue
		}
		report.Summaries = append(report.Summaries, summary)
	}
	return report, errors.Join(errs...)
}

// SyncFile syncs one file.
func (s *Syncer) SyncFile(path string) (*Summary, error) {
	start := time.Now()
	profile, err := ProfileFor(path)
	if err != nil {
		return nil, err
	}
	data, err := s.opts.FS.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileRead, "cannot read %s", path).WithDetail("file", path)
	}

	content := string(data)
	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}
	trailing := strings.HasSuffix(content, newline)
	body := strings.TrimSuffix(content, newline)
	var lines []string
	if body != "" || trailing {
		lines = strings.Split(body, newline)
	}

	out, blocks, err := NewScanner(path, profile, s.renderer).Scan(lines)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		s.logger.Debug().Str("file", path).Int("line", b.FirstLine).Msg(b.String())
	}

	updated := strings.Join(out, newline)
	if trailing {
		updated += newline
	}
	summary := &Summary{Path: path, Blocks: blocks, Changed: updated != content}

	if summary.Changed && !s.opts.DryRun {
		if err := s.commit(summary, []byte(updated)); err != nil {
			return nil, err
		}
	}

	event := s.logger.Info()
	if s.opts.DryRun {
		event = event.Bool("dry_run", true)
	}
	event.Str("file", path).
		Int("changed", summary.LinesChanged()).
		Int("covered", summary.LinesCovered()).
		Int("blocks", summary.BlockCount()).
		Str("backup", summary.BackupPath).
		Dur("duration", time.Since(start)).
		Msg("Synced file")
	return summary, nil
}

func (s *Syncer) commit(summary *Summary, data []byte) error {
	path := summary.Path
	if s.opts.Backup {
		if s.opts.Paths == nil {
			return errors.New(errors.ErrInternal, "backup requested without a project root").WithDetail("file", path)
		}
		bak, err := s.opts.Paths.BackupPath(path)
		if err != nil {
			return err
		}
		if err := filesystem.CopyFile(s.opts.FS, path, bak); err != nil {
			return err
		}
		summary.BackupPath = bak
	}
	var err error
	if s.opts.Atomic {
		err = filesystem.AtomicWriteFile(s.opts.FS, path, data, 0o644)
	} else {
		err = filesystem.WriteFile(s.opts.FS, path, data, 0o644)
	}
	if err != nil {
		return err
	}
	summary.Written = true
	return nil
}

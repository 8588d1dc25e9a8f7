package targets

import (
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/filesystem"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/paths"
)

// GitignoreName is the ignore file read from the project root.
const GitignoreName = ".gitignore"

// Options configures a Scanner.
type Options struct {
	FS filesystem.FS
	// Root is the absolute project root.
	Root string
	// Patterns selects targets.
	Patterns []string
	// SkipDirs are directory names that are never entered. Empty means ".git" and the project dir.
	SkipDirs []string
	// IgnoreGitignore disables exclusion by the root .gitignore.
	IgnoreGitignore bool
}

// Scanner walks a project tree and returns matching files.
type Scanner struct {
	fs       filesystem.FS
	root     string
	include  *RuleSet
	ignore   *RuleSet
	skipDirs []string
	logger   zerolog.Logger
}

// NewScanner parses the patterns and the root .gitignore.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	if len(opts.SkipDirs) == 0 {
		opts.SkipDirs = []string{".git", paths.DefaultProjectDir}
	}
	include, err := NewRuleSet(opts.Patterns)
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		fs:       opts.FS,
		root:     opts.Root,
		include:  include,
		ignore:   &RuleSet{},
		skipDirs: opts.SkipDirs,
		logger:   logging.GetLogger("targets"),
	}
	if !opts.IgnoreGitignore {
		if s.ignore, err = s.loadGitignore(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) loadGitignore() (*RuleSet, error) {
	file := filepath.Join(s.root, GitignoreName)
	data, err := s.fs.ReadFile(file)
	if err != nil {
		if _, statErr := s.fs.Stat(file); statErr != nil {
			s.logger.Debug().Str("file", file).Msg("No .gitignore")
			return &RuleSet{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileRead, "cannot read %s", file).WithDetail("file", file)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	set, err := NewRuleSet(lines)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid .gitignore").WithDetail("file", file)
	}
	return set, nil
}

// Scan returns the absolute paths of all targets, sorted.
func (s *Scanner) Scan() ([]string, error) {
	s.logger.Debug().
		Str("root", s.root).
		Int("patterns", s.include.Len()).
		Int("ignored", s.ignore.Len()).
		Msg("Scanning for targets")
	var found []string
	if err := s.walk("", &found); err != nil {
		return nil, err
	}
	slices.Sort(found)
	s.logger.Debug().Int("targets", len(found)).Msg("Target scan complete")
	return found, nil
}

func (s *Scanner) walk(relDir string, found *[]string) error {
	dir := filepath.Join(s.root, filepath.FromSlash(relDir))
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileRead, "cannot list %s", dir).WithDetail("file", dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		rel := path.Join(relDir, name)
		isDir := entry.IsDir()
		if ignored, pattern := s.ignore.Match(rel, isDir); ignored {
			s.logger.Trace().Str("path", rel).Str("pattern", pattern).Msg("Ignored by .gitignore")
			continue
		}
		if isDir {
			if slices.Contains(s.skipDirs, name) {
				continue
			}
			if err := s.walk(rel, found); err != nil {
				return err
			}
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if ok, pattern := s.include.Match(rel, false); ok {
			s.logger.Trace().Str("path", rel).Str("pattern", pattern).Msg("Target")
			*found = append(*found, filepath.Join(s.root, filepath.FromSlash(rel)))
		}
	}
	return nil
}

// Resolve turns explicit command-line paths, relative to the working directory, into
// absolute targets. Each must be an existing regular file under the project root.
func Resolve(fsys filesystem.FS, p paths.Paths, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(paths.ExpandHome(arg))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve %s", arg).WithDetail("file", arg)
		}
		if _, err := p.Rel(abs); err != nil {
			return nil, err
		}
		info, err := fsys.Stat(abs)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileRead, "cannot stat %s", arg).WithDetail("file", abs)
		}
		if !info.Mode().IsRegular() {
			return nil, errors.Newf(errors.ErrInvalidInput, "%s is not a regular file", arg).WithDetail("file", abs)
		}
		if !slices.Contains(out, abs) {
			out = append(out, abs)
		}
	}
	return out, nil
}

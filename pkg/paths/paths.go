package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

// Environment variable names
const (
	// EnvRoot overrides project root discovery
	EnvRoot = "TYRANNO_ROOT"

	// EnvConfigDir overrides the XDG config directory for tyranno
	EnvConfigDir = "TYRANNO_CONFIG_DIR"

	// EnvCacheDir overrides the XDG cache directory for tyranno
	EnvCacheDir = "TYRANNO_CACHE_DIR"

	// EnvStateDir overrides the XDG state directory for tyranno
	EnvStateDir = "TYRANNO_STATE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Default directories and files
const (
	// AppDirName is the directory name under each XDG base directory
	AppDirName = "tyranno"

	// DefaultProjectDir is the per-project directory under the root
	DefaultProjectDir = ".tyranno"

	// DefaultDataFile marks a project root
	DefaultDataFile = "pyproject.toml"

	// ConfigFileName is the settings file in both the user and project directories
	ConfigFileName = "config.toml"

	// BackupDirName holds copies of files taken before sync rewrites them
	BackupDirName = "sync-bak"

	// TrashDirName holds files moved aside instead of deleted
	TrashDirName = "trashed"

	// LogFileName is the name of the log file
	LogFileName = "tyranno.log"
)

// Paths provides centralized path management for tyranno
type Paths interface {
	Root() string
	UsedFallback() bool
	ProjectDir() string
	ProjectConfigPath() string
	DataFilePath(name string) string
	BackupDir() string
	BackupPath(path string) (string, error)
	TrashDir() string
	TrashPath(path string) (string, error)
	ConfigDir() string
	UserConfigPath() string
	CacheDir() string
	StateDir() string
	LogFilePath() string
	NormalizePath(path string) (string, error)
	Rel(path string) (string, error)
}

// paths provides centralized path management for tyranno
type paths struct {
	// root is the project root directory
	root string

	// projectDir is the per-project directory name, such as .tyranno
	projectDir string

	xdgConfig string
	xdgCache  string
	xdgState  string

	// usedFallback indicates if we fell back to cwd (for warning display)
	usedFallback bool
}

// New creates a Paths instance. An empty root is discovered with FindRoot;
// an empty projectDir means DefaultProjectDir.
func New(root, projectDir string) (Paths, error) {
	p := &paths{projectDir: projectDir}
	if p.projectDir == "" {
		p.projectDir = DefaultProjectDir
	}

	if root == "" {
		found, usedFallback, err := FindRoot(DefaultDataFile)
		if err != nil {
			return nil, err
		}
		p.root = found
		p.usedFallback = usedFallback
	} else {
		p.root = expandHome(root)
	}

	absRoot, err := filepath.Abs(p.root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileRead, "failed to get absolute path for project root")
	}
	p.root = absRoot

	p.setupXDGDirs()
	return p, nil
}

// setupXDGDirs initializes XDG directories, respecting environment overrides
func (p *paths) setupXDGDirs() {
	p.xdgConfig = fromEnvOr(EnvConfigDir, filepath.Join(xdg.ConfigHome, AppDirName))
	p.xdgCache = fromEnvOr(EnvCacheDir, filepath.Join(xdg.CacheHome, AppDirName))
	p.xdgState = fromEnvOr(EnvStateDir, filepath.Join(xdg.StateHome, AppDirName))
}

func fromEnvOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return expandHome(v)
	}
	return fallback
}

// FindRoot determines the project root using the following priority:
//  1. TYRANNO_ROOT environment variable (if set)
//  2. The nearest ancestor of the working directory containing dataFile
//  3. Git repository root (found via 'git rev-parse --show-toplevel')
//  4. Current working directory (fallback)
//
// The boolean result reports whether the working directory was used as fallback.
func FindRoot(dataFile string) (string, bool, error) {
	if root := os.Getenv(EnvRoot); root != "" {
		return expandHome(root), false, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrFileRead, "failed to get current directory")
	}

	for dir := cwd; ; {
		if info, err := os.Stat(filepath.Join(dir, dataFile)); err == nil && !info.IsDir() {
			return dir, false, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if gitRoot, err := findGitRoot(); err == nil {
		return gitRoot, false, nil
	}
	return cwd, true, nil
}

// findGitRoot attempts to find the root of the current git repository
func findGitRoot() (string, error) {
	output, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", err
	}
	gitRoot := strings.TrimSpace(string(output))
	if gitRoot == "" {
		return "", errors.New(errors.ErrFileRead, "git root is empty")
	}
	return gitRoot, nil
}

// expandHome expands ~ to the home directory
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}
	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}
	// ~something (not the user's home)
	return path
}

// ExpandHome is a utility function that expands ~ in paths
func ExpandHome(path string) string {
	return expandHome(path)
}

func (p *paths) Root() string {
	return p.root
}

// UsedFallback returns true if the current working directory was used as fallback
func (p *paths) UsedFallback() bool {
	return p.usedFallback
}

func (p *paths) ProjectDir() string {
	return filepath.Join(p.root, p.projectDir)
}

func (p *paths) ProjectConfigPath() string {
	return filepath.Join(p.ProjectDir(), ConfigFileName)
}

// DataFilePath resolves a data file name, such as pyproject.toml, against the root.
func (p *paths) DataFilePath(name string) string {
	name = expandHome(name)
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(p.root, name)
}

func (p *paths) BackupDir() string {
	return filepath.Join(p.ProjectDir(), BackupDirName)
}

// BackupPath mirrors a project file under the backup directory.
func (p *paths) BackupPath(path string) (string, error) {
	rel, err := p.Rel(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.BackupDir(), rel), nil
}

func (p *paths) TrashDir() string {
	return filepath.Join(p.ProjectDir(), TrashDirName)
}

// TrashPath mirrors a project file under the trash directory.
func (p *paths) TrashPath(path string) (string, error) {
	rel, err := p.Rel(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.TrashDir(), rel), nil
}

func (p *paths) ConfigDir() string {
	return p.xdgConfig
}

func (p *paths) UserConfigPath() string {
	return filepath.Join(p.xdgConfig, ConfigFileName)
}

func (p *paths) CacheDir() string {
	return p.xdgCache
}

func (p *paths) StateDir() string {
	return p.xdgState
}

func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}

// NormalizePath normalizes a path by expanding home, making it absolute
// relative to the project root, and cleaning it
func (p *paths) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}
	expanded := expandHome(path)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(p.root, expanded)
	}
	return filepath.Clean(expanded), nil
}

// Rel returns path relative to the project root. A path outside the root,
// or the root itself, is a NOT_DESCENDANT error.
func (p *paths) Rel(path string) (string, error) {
	normalized, err := p.NormalizePath(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(p.root, normalized)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.ErrNotDescendant, "%s is not a descendant of %s", normalized, p.root).
			WithDetail("file", normalized).
			WithDetail("root", p.root)
	}
	return rel, nil
}

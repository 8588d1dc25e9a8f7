// Package project loads everything a sync run needs from one repository:
// the data tree, the expression evaluator and the target files.
package project

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dmyersturnbull/tyranno-sandbox/internal/version"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/config"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/dottree"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/expr"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/filesystem"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/paths"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/targets"
)

// Options configures Load.
type Options struct {
	Paths  paths.Paths
	Config *config.Config
	// FS defaults to the OS filesystem.
	FS filesystem.FS
	// ExtraData names more data files, merged after those in the config.
	ExtraData []string
	// Functions overrides the function library settings derived from the config.
	Functions *functions.Options
}

// Project is a loaded repository.
type Project struct {
	paths     paths.Paths
	cfg       *config.Config
	fs        filesystem.FS
	tree      *dottree.Tree
	lib       *functions.Library
	evaluator *expr.Evaluator
	sources   []string
	logger    zerolog.Logger
}

// Load reads the data file and any extra data files, merges them with the configured
// policy and prepares the evaluator.
func Load(ctx context.Context, opts Options) (*Project, error) {
	if opts.Paths == nil || opts.Config == nil {
		return nil, errors.New(errors.ErrInternal, "project requires paths and config")
	}
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	p := &Project{
		paths:  opts.Paths,
		cfg:    opts.Config,
		fs:     opts.FS,
		logger: logging.GetLogger("project"),
	}

	files := []string{opts.Paths.DataFilePath(opts.Config.Project.DataFile)}
	for _, extra := range append(append([]string{}, opts.Config.Project.ExtraData...), opts.ExtraData...) {
		files = append(files, opts.Paths.DataFilePath(extra))
	}
	trees := make([]*dottree.Tree, 0, len(files))
	for _, file := range files {
		tree, err := ReadTree(opts.FS, file)
		if err != nil {
			return nil, err
		}
		p.logger.Debug().Str("file", file).Int("leaves", len(tree.Leaves())).Msg("Loaded data")
		trees = append(trees, tree)
	}
	p.sources = files

	if len(trees) == 1 {
		p.tree = trees[0]
	} else {
		merged, err := dottree.Merge(opts.Config.MergePolicy(), trees...)
		if err != nil {
			return nil, errors.Wrap(err, errors.GetErrorCode(err), "cannot merge project data").
				WithDetail("files", files)
		}
		p.tree = merged
	}

	libOpts := functions.Options{
		SPDXBaseURL: opts.Config.HTTP.SPDX,
		PyPIBaseURL: opts.Config.HTTP.PyPI,
		Timeout:     opts.Config.HTTP.Timeout,
		UserAgent:   version.UserAgent(opts.Config.HTTP.Agent),
	}
	if opts.Functions != nil {
		libOpts = *opts.Functions
	}
	p.lib = functions.New(ctx, libOpts)

	ev, err := expr.New(p.tree, p.lib, expr.Options{DataKey: opts.Config.Project.DataKey})
	if err != nil {
		return nil, err
	}
	p.evaluator = ev
	return p, nil
}

// ReadTree parses a data file by extension: .toml, .yaml/.yml or .json.
func ReadTree(fsys filesystem.FS, file string) (*dottree.Tree, error) {
	data, err := fsys.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileRead, "cannot read data file %s", file).WithDetail("file", file)
	}
	var tree *dottree.Tree
	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".toml":
		tree, err = dottree.FromTOML(data)
	case ".yaml", ".yml":
		tree, err = dottree.FromYAML(data)
	case ".json":
		tree, err = dottree.FromJSON(data)
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unsupported data file type %q", ext).WithDetail("file", file)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.GetErrorCode(err), "invalid data file").WithDetail("file", file)
	}
	return tree, nil
}

func (p *Project) Paths() paths.Paths {
	return p.paths
}

func (p *Project) Config() *config.Config {
	return p.cfg
}

func (p *Project) FS() filesystem.FS {
	return p.fs
}

// Tree is the merged project data.
func (p *Project) Tree() *dottree.Tree {
	return p.tree
}

func (p *Project) Functions() *functions.Library {
	return p.lib
}

func (p *Project) Evaluator() *expr.Evaluator {
	return p.evaluator
}

// Sources lists the data files in merge order.
func (p *Project) Sources() []string {
	return p.sources
}

// TargetPatterns reads the target patterns from the data tree. A missing key means no patterns.
func (p *Project) TargetPatterns() ([]string, error) {
	return dottree.GetListAs[string](p.tree, p.cfg.Project.TargetsKey, nil)
}

// Targets discovers target files from the configured patterns.
func (p *Project) Targets() ([]string, error) {
	patterns, err := p.TargetPatterns()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		p.logger.Warn().Str("key", p.cfg.Project.TargetsKey).Msg("No target patterns configured")
		return nil, nil
	}
	scanner, err := targets.NewScanner(targets.Options{
		FS:       p.fs,
		Root:     p.paths.Root(),
		Patterns: patterns,
		SkipDirs: []string{".git", filepath.Base(p.paths.ProjectDir())},
	})
	if err != nil {
		return nil, err
	}
	return scanner.Scan()
}

// ResolveTargets returns the explicit paths if any are given, and discovered targets otherwise.
func (p *Project) ResolveTargets(args []string) ([]string, error) {
	if len(args) > 0 {
		return targets.Resolve(p.fs, p.paths, args)
	}
	return p.Targets()
}

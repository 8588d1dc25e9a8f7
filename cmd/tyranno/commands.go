package tyranno

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/dmyersturnbull/tyranno-sandbox/internal/version"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/config"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/dottree"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/expr"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/paths"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/project"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/syncer"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/ui"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/ui/display"
)

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	verbosity int
	dryRun    bool
	root      string
	output    string
}

// session is what every command needs before it can touch the project
type session struct {
	paths    paths.Paths
	cfg      *config.Config
	renderer ui.Renderer
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	// Initialize custom template formatting functions
	initTemplateFormatting()

	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "tyranno",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(logging.Options{Verbosity: g.verbosity, Console: cmd.ErrOrStderr()})
			logging.LogCommand(cmd.CommandPath(), args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf(MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().BoolVar(&g.dryRun, "dry-run", false, MsgFlagDryRun)
	rootCmd.PersistentFlags().StringVar(&g.root, "root", "", MsgFlagRoot)
	rootCmd.PersistentFlags().StringVarP(&g.output, "output", "o", ui.FormatAuto.String(), MsgFlagOutput)
	_ = rootCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		ui.FormatNames(), cobra.ShellCompDirectiveNoFileComp))

	// Define command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})
	rootCmd.SetHelpCommandGroupID("misc")

	// Set custom help template
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	// Add all commands
	rootCmd.AddCommand(newSyncCmd(g))
	rootCmd.AddCommand(newEvalCmd(g))
	rootCmd.AddCommand(newDataCmd(g))
	rootCmd.AddCommand(newFunctionsCmd(g))
	rootCmd.AddCommand(newInfoCmd(g))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd())

	return rootCmd
}

// initPaths initializes the paths instance and shows a warning if using fallback
func initPaths(cmd *cobra.Command, root, projectDir string) (paths.Paths, error) {
	p, err := paths.New(root, projectDir)
	if err != nil {
		return nil, fmt.Errorf(MsgErrInitPaths, err)
	}
	if p.UsedFallback() {
		fmt.Fprintf(cmd.ErrOrStderr(), MsgFallbackWarning, p.Root())
	}
	return p, nil
}

// newSession resolves the project root, loads the layered settings and picks the output renderer.
func newSession(cmd *cobra.Command, g *globalFlags, overrides map[string]interface{}) (*session, error) {
	format, err := ui.ParseFormat(g.output)
	if err != nil {
		return nil, err
	}
	p, err := initPaths(cmd, g.root, "")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{
		UserConfigPath:    p.UserConfigPath(),
		ProjectConfigPath: p.ProjectConfigPath(),
		Overrides:         overrides,
	})
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}
	if cfg.Project.Dir != "" && cfg.Project.Dir != paths.DefaultProjectDir {
		// The project settings file stays where it was found; everything else moves.
		if p, err = paths.New(p.Root(), cfg.Project.Dir); err != nil {
			return nil, fmt.Errorf(MsgErrInitPaths, err)
		}
	}

	renderer, err := ui.NewRenderer(format, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("root", p.Root()).Str("output", format.String()).Msg("Session ready")
	return &session{paths: p, cfg: cfg, renderer: renderer}, nil
}

func (s *session) loadProject(cmd *cobra.Command, extraData []string) (*project.Project, error) {
	proj, err := project.Load(cmd.Context(), project.Options{
		Paths:     s.paths,
		Config:    s.cfg,
		ExtraData: extraData,
	})
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadProject, err)
	}
	return proj, nil
}

func newSyncCmd(g *globalFlags) *cobra.Command {
	var (
		backup    bool
		noAtomic  bool
		keepGoing bool
		dataFiles []string
		merge     string
	)

	cmd := &cobra.Command{
		Use:     "sync [paths...]",
		Short:   MsgSyncShort,
		Long:    MsgSyncLong,
		Example: MsgSyncExample,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]interface{}{}
			if cmd.Flags().Changed("backup") {
				overrides["sync.backup"] = backup
			}
			if noAtomic {
				overrides["sync.atomic"] = false
			}
			if keepGoing {
				overrides["sync.policy"] = config.PolicyContinue
			}
			if merge != "" {
				overrides["sync.merge"] = merge
			}

			s, err := newSession(cmd, g, overrides)
			if err != nil {
				return err
			}
			proj, err := s.loadProject(cmd, dataFiles)
			if err != nil {
				return err
			}
			files, err := proj.ResolveTargets(args)
			if err != nil {
				return err
			}

			engine := syncer.New(proj.Evaluator(), syncer.Options{
				FS:     proj.FS(),
				Paths:  s.paths,
				Atomic: s.cfg.Sync.Atomic,
				Backup: s.cfg.Sync.Backup,
				DryRun: g.dryRun,
				Policy: s.cfg.Sync.Policy,
			})
			report, syncErr := engine.SyncFiles(files)
			if err := s.renderer.RenderResult(display.NewSyncResult(report, s.paths.Root(), g.dryRun)); err != nil {
				return err
			}
			return syncErr
		},
	}

	cmd.Flags().BoolVar(&backup, "backup", false, MsgFlagBackup)
	cmd.Flags().BoolVar(&noAtomic, "no-atomic", false, MsgFlagNoAtomic)
	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, MsgFlagKeepGoing)
	cmd.Flags().StringArrayVar(&dataFiles, "data", nil, MsgFlagData)
	cmd.Flags().StringVar(&merge, "merge", "", MsgFlagMerge)
	_ = cmd.RegisterFlagCompletionFunc("merge", mergePolicyCompletion)

	return cmd
}

func mergePolicyCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, len(dottree.MergePolicies))
	for i, p := range dottree.MergePolicies {
		out[i] = string(p)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newEvalCmd(g *globalFlags) *cobra.Command {
	var (
		inKey     string
		dataFiles []string
	)

	cmd := &cobra.Command{
		Use:     "eval EXPRESSION",
		Short:   MsgEvalShort,
		Long:    MsgEvalLong,
		Example: MsgEvalExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g, nil)
			if err != nil {
				return err
			}
			proj, err := s.loadProject(cmd, dataFiles)
			if err != nil {
				return err
			}

			ev := proj.Evaluator()
			result := &display.EvalResult{Expression: args[0], InKey: inKey}
			if expr.HasSubstitutions(args[0]) {
				out, err := ev.Substitute(args[0], inKey)
				if err != nil {
					return err
				}
				result.Value, result.Rendered = out, out
			} else {
				value, err := ev.Eval(args[0], inKey)
				if err != nil {
					return err
				}
				rendered, err := expr.Stringify(value)
				if err != nil {
					return err
				}
				result.Value, result.Rendered = value, rendered
			}
			return s.renderer.RenderResult(result)
		},
	}

	cmd.Flags().StringVar(&inKey, "in", "", MsgFlagIn)
	cmd.Flags().StringArrayVar(&dataFiles, "data", nil, MsgFlagData)
	return cmd
}

func newDataCmd(g *globalFlags) *cobra.Command {
	var (
		format    string
		key       string
		dataFiles []string
	)

	cmd := &cobra.Command{
		Use:     "data",
		Short:   MsgDataShort,
		Long:    MsgDataLong,
		Args:    cobra.NoArgs,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g, nil)
			if err != nil {
				return err
			}
			proj, err := s.loadProject(cmd, dataFiles)
			if err != nil {
				return err
			}
			tree := proj.Tree()
			if key != "" {
				if tree, err = tree.AccessSubtree(key); err != nil {
					return err
				}
			}

			var out string
			switch format {
			case "json":
				b, err := tree.JSON(true)
				if err != nil {
					return err
				}
				out = string(b)
			case "toml":
				b, err := tree.TOML()
				if err != nil {
					return err
				}
				out = string(b)
			case "dotted":
				if out, err = tree.DottedString(); err != nil {
					return err
				}
			default:
				return errors.Newf(errors.ErrInvalidInput, "unknown data format %q (want json, toml or dotted)", format).
					WithDetail("format", format)
			}
			if !strings.HasSuffix(out, "\n") {
				out += "\n"
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "toml", MsgFlagFormat)
	cmd.Flags().StringVar(&key, "key", "", MsgFlagKey)
	cmd.Flags().StringArrayVar(&dataFiles, "data", nil, MsgFlagData)
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{"json", "toml", "dotted"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func newFunctionsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "functions",
		Short:   MsgFunctionsShort,
		Args:    cobra.NoArgs,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ui.ParseFormat(g.output)
			if err != nil {
				return err
			}
			renderer, err := ui.NewRenderer(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			lib := functions.New(cmd.Context(), functions.DefaultOptions())
			return renderer.RenderResult(&display.FunctionsResult{Functions: lib.Docs()})
		},
	}
}

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "info",
		Short:   MsgInfoShort,
		Args:    cobra.NoArgs,
		GroupID: "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g, nil)
			if err != nil {
				return err
			}
			result := &display.InfoResult{
				Version:   version.Version,
				Root:      s.paths.Root(),
				Fallback:  s.paths.UsedFallback(),
				BackupDir: s.paths.BackupDir(),
				LogFile:   s.paths.LogFilePath(),
			}
			for _, path := range []string{s.paths.UserConfigPath(), s.paths.ProjectConfigPath()} {
				if _, err := os.Stat(path); err == nil {
					result.ConfigFiles = append(result.ConfigFiles, path)
				}
			}

			proj, err := s.loadProject(cmd, nil)
			if err != nil {
				return err
			}
			result.DataFiles = proj.Sources()
			if result.Patterns, err = proj.TargetPatterns(); err != nil {
				return err
			}
			if result.Targets, err = proj.Targets(); err != nil {
				return err
			}
			return s.renderer.RenderResult(result)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		Args:    cobra.NoArgs,
		GroupID: "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.GenerateConfigContent())
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		Args:    cobra.NoArgs,
		GroupID: "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// ManHeader is shared by the man command and the tyranno-manpage generator.
func ManHeader() *doc.GenManHeader {
	return &doc.GenManHeader{
		Title:   "TYRANNO",
		Section: "1",
		Source:  "tyranno " + version.Version,
		Manual:  "tyranno manual",
	}
}

func newManCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:     "man",
		Short:   MsgManShort,
		Args:    cobra.NoArgs,
		Hidden:  true,
		GroupID: "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return doc.GenMan(cmd.Root(), ManHeader(), cmd.OutOrStdout())
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", dir).WithDetail("dir", dir)
			}
			return doc.GenManTree(cmd.Root(), ManHeader(), dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", MsgFlagManDir)
	return cmd
}

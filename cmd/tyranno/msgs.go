package tyranno

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Keep generated lines in sync with project metadata"
	MsgSyncShort       = "Regenerate marker-governed lines in target files"
	MsgEvalShort       = "Evaluate an expression against the project data"
	MsgDataShort       = "Print the merged project data"
	MsgFunctionsShort  = "List the functions available in expressions"
	MsgInfoShort       = "Show the project root, settings and targets"
	MsgConfigShort     = "Print a commented settings file to start from"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgManShort        = "Generate man pages"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun    = "Report what would change without writing files"
	MsgFlagRoot      = "Project root (default: nearest directory with pyproject.toml, then the git root)"
	MsgFlagOutput    = "Output format: auto, term, text or json"
	MsgFlagBackup    = "Copy each file to .tyranno/sync-bak before rewriting it"
	MsgFlagNoAtomic  = "Write files in place instead of through a temporary file"
	MsgFlagKeepGoing = "Sync remaining files after a failure and report all failures"
	MsgFlagData      = "Extra TOML, YAML or JSON data file to merge (repeatable)"
	MsgFlagMerge     = "Merge policy for extra data: always, if_values_match or never"
	MsgFlagIn        = "Key that relative expressions (.x) resolve against"
	MsgFlagFormat    = "Data format: json, toml or dotted"
	MsgFlagKey       = "Print only the subtree at this key"
	MsgFlagManDir    = "Directory to write man pages to"

	// Error messages
	MsgErrInitPaths   = "failed to initialize paths: %w"
	MsgErrLoadConfig  = "failed to load settings: %w"
	MsgErrLoadProject = "failed to load project: %w"
	MsgErrNoCommand   = "no command specified"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/sync-long.txt
	msgSyncLongRaw string
	MsgSyncLong    = strings.TrimSpace(msgSyncLongRaw)

	//go:embed msgs/sync-example.txt
	msgSyncExampleRaw string
	MsgSyncExample    = strings.TrimRight(msgSyncExampleRaw, "\n")

	//go:embed msgs/eval-long.txt
	msgEvalLongRaw string
	MsgEvalLong    = strings.TrimSpace(msgEvalLongRaw)

	//go:embed msgs/eval-example.txt
	msgEvalExampleRaw string
	MsgEvalExample    = strings.TrimRight(msgEvalExampleRaw, "\n")

	//go:embed msgs/data-long.txt
	msgDataLongRaw string
	MsgDataLong    = strings.TrimSpace(msgDataLongRaw)

	//go:embed msgs/fallback-warning.txt
	msgFallbackWarningRaw string
	MsgFallbackWarning    = strings.TrimSpace(msgFallbackWarningRaw) + "\n"

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)
)

var (
	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw) + "\n"
)

// Package paths provides centralized path handling for tyranno.
//
// It resolves the project root a run operates on and the per-user XDG
// directories tyranno writes to.
//
// # Environment Variables
//
//   - TYRANNO_ROOT: project root (default: nearest ancestor holding pyproject.toml, then the git root, then the working directory)
//   - TYRANNO_CONFIG_DIR: user configuration (default: $XDG_CONFIG_HOME/tyranno)
//   - TYRANNO_CACHE_DIR: cache (default: $XDG_CACHE_HOME/tyranno)
//   - TYRANNO_STATE_DIR: logs (default: $XDG_STATE_HOME/tyranno)
//
// # Project Layout
//
// Per-project files live under <root>/.tyranno:
//
//   - config.toml: project overrides of the application settings
//   - sync-bak/<relative path>: backups written by `tyranno sync --backup`
//   - trashed/: files moved aside instead of deleted
package paths

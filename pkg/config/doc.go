// Package config handles application settings for tyranno.
//
// Settings are distinct from the project data that expressions read. They are
// loaded with koanf from the embedded defaults, the user configuration file,
// the project's .tyranno/config.toml, and TYRANNO_* environment variables, in
// that order.
package config

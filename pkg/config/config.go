package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/dottree"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
)

// EnvPrefix starts every environment variable that overrides a setting,
// as in TYRANNO_SYNC_POLICY for sync.policy.
const EnvPrefix = "TYRANNO_"

// Failure policies for multi-file runs
const (
	PolicyAbort    = "abort"
	PolicyContinue = "continue"
)

// Config is the complete set of application settings
type Config struct {
	Project Project `koanf:"project"`
	Sync    Sync    `koanf:"sync"`
	HTTP    HTTP    `koanf:"http"`
}

// Project locates the project data and the files to sync
type Project struct {
	DataFile   string   `koanf:"datafile"`
	ExtraData  []string `koanf:"extradata"`
	DataKey    string   `koanf:"datakey"`
	TargetsKey string   `koanf:"targetskey"`
	Dir        string   `koanf:"dir"`
}

// Sync holds the commit and failure policies of `tyranno sync`
type Sync struct {
	Backup bool   `koanf:"backup"`
	Atomic bool   `koanf:"atomic"`
	Policy string `koanf:"policy"`
	Merge  string `koanf:"merge"`
}

// HTTP configures the network-backed expression functions
type HTTP struct {
	Timeout time.Duration `koanf:"timeout"`
	SPDX    string        `koanf:"spdx"`
	PyPI    string        `koanf:"pypi"`
	Agent   string        `koanf:"agent"`
}

// LoadOptions names the optional setting files. Missing files are skipped.
type LoadOptions struct {
	UserConfigPath    string
	ProjectConfigPath string
	// Overrides are applied last, keyed by dotted setting name (e.g. "sync.backup").
	Overrides map[string]interface{}
}

// Load merges the embedded defaults, the user and project files, the environment and
// the overrides, then validates the result.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Load user and project config if they exist
	for _, path := range []string{opts.UserConfigPath, opts.ProjectConfigPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", path).
				WithDetail("file", path)
		}
		logger.Debug().Str("file", path).Msg("Loaded settings")
	}

	// 3. Environment, e.g. TYRANNO_HTTP_TIMEOUT=10s
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	// 4. Command-line overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps TYRANNO_SYNC_POLICY to sync.policy.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load(LoadOptions{})
	if err != nil {
		panic("embedded defaults are invalid: " + err.Error())
	}
	return cfg
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Sync.Policy {
	case PolicyAbort, PolicyContinue:
	default:
		return errors.Newf(errors.ErrConfigLoad, "sync.policy must be %q or %q, not %q",
			PolicyAbort, PolicyContinue, c.Sync.Policy).WithDetail("key", "sync.policy")
	}
	if _, err := dottree.ParseMergePolicy(c.Sync.Merge); err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "invalid sync.merge").WithDetail("key", "sync.merge")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New(errors.ErrConfigLoad, "http.timeout must be positive").WithDetail("key", "http.timeout")
	}
	if c.Project.DataFile == "" {
		return errors.New(errors.ErrConfigLoad, "project.datafile is empty").WithDetail("key", "project.datafile")
	}
	return nil
}

// MergePolicy returns the parsed sync.merge setting.
func (c *Config) MergePolicy() dottree.MergePolicy {
	p, err := dottree.ParseMergePolicy(c.Sync.Merge)
	if err != nil {
		return dottree.MergeIfValuesMatch
	}
	return p
}

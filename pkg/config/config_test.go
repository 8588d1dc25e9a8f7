package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/dottree"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "pyproject.toml", cfg.Project.DataFile)
	assert.Equal(t, "tool.tyranno.data", cfg.Project.DataKey)
	assert.Equal(t, "tool.tyranno.targets", cfg.Project.TargetsKey)
	assert.Equal(t, ".tyranno", cfg.Project.Dir)
	assert.Empty(t, cfg.Project.ExtraData)
	assert.False(t, cfg.Sync.Backup)
	assert.True(t, cfg.Sync.Atomic)
	assert.Equal(t, PolicyAbort, cfg.Sync.Policy)
	assert.Equal(t, dottree.MergeIfValuesMatch, cfg.MergePolicy())
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "https://pypi.org/pypi", cfg.HTTP.PyPI)
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, filepath.Join(dir, "user", "config.toml"), `
[sync]
backup = true
policy = "continue"

[http]
timeout = "5s"
`)
	project := writeFile(t, filepath.Join(dir, "project", ".tyranno", "config.toml"), `
[sync]
policy = "abort"

[project]
extradata = ["meta.yaml"]
`)

	t.Run("files_in_order", func(t *testing.T) {
		cfg, err := Load(LoadOptions{UserConfigPath: user, ProjectConfigPath: project})
		require.NoError(t, err)
		assert.True(t, cfg.Sync.Backup, "user value survives")
		assert.Equal(t, PolicyAbort, cfg.Sync.Policy, "project overrides user")
		assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
		assert.Equal(t, []string{"meta.yaml"}, cfg.Project.ExtraData)
	})

	t.Run("environment_overrides_files", func(t *testing.T) {
		t.Setenv("TYRANNO_SYNC_POLICY", "continue")
		t.Setenv("TYRANNO_HTTP_TIMEOUT", "2m")
		cfg, err := Load(LoadOptions{UserConfigPath: user, ProjectConfigPath: project})
		require.NoError(t, err)
		assert.Equal(t, PolicyContinue, cfg.Sync.Policy)
		assert.Equal(t, 2*time.Minute, cfg.HTTP.Timeout)
	})

	t.Run("overrides_win", func(t *testing.T) {
		t.Setenv("TYRANNO_SYNC_BACKUP", "false")
		cfg, err := Load(LoadOptions{
			UserConfigPath: user,
			Overrides:      map[string]interface{}{"sync.backup": true, "sync.merge": "never"},
		})
		require.NoError(t, err)
		assert.True(t, cfg.Sync.Backup)
		assert.Equal(t, dottree.MergeNever, cfg.MergePolicy())
	})

	t.Run("missing_files_are_skipped", func(t *testing.T) {
		_, err := Load(LoadOptions{UserConfigPath: filepath.Join(dir, "nope.toml")})
		assert.NoError(t, err)
	})
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad_policy", content: "[sync]\npolicy = \"retry\"\n"},
		{name: "bad_merge", content: "[sync]\nmerge = \"sometimes\"\n"},
		{name: "bad_timeout", content: "[http]\ntimeout = \"0s\"\n"},
		{name: "bad_toml", content: "[sync\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(dir, tt.name+".toml"), tt.content)
			_, err := Load(LoadOptions{ProjectConfigPath: path})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad), err.Error())
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "sync.policy", envKey("TYRANNO_SYNC_POLICY"))
	assert.Equal(t, "project.datakey", envKey("TYRANNO_PROJECT_DATAKEY"))
}

func TestGenerateConfigContent(t *testing.T) {
	content := GenerateConfigContent()
	assert.Contains(t, content, "[sync]")
	assert.Contains(t, content, `# policy = "abort"`)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		t.Errorf("uncommented value line: %q", line)
	}
}

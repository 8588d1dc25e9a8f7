package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvRoot, EnvConfigDir, EnvCacheDir, EnvStateDir} {
		t.Setenv(name, "")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		root       string
		projectDir string
		envSetup   map[string]string
		validate   func(t *testing.T, p Paths)
	}{
		{
			name: "explicit root",
			root: "/tmp/project",
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/tmp/project", p.Root())
				assert.False(t, p.UsedFallback())
				assert.Equal(t, "/tmp/project/.tyranno", p.ProjectDir())
				assert.Equal(t, "/tmp/project/.tyranno/config.toml", p.ProjectConfigPath())
				assert.Equal(t, "/tmp/project/.tyranno/sync-bak", p.BackupDir())
				assert.Equal(t, "/tmp/project/.tyranno/trashed", p.TrashDir())
			},
		},
		{
			name:       "custom project dir",
			root:       "/tmp/project",
			projectDir: ".meta",
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/tmp/project/.meta/sync-bak", p.BackupDir())
			},
		},
		{
			name: "from TYRANNO_ROOT env",
			envSetup: map[string]string{
				EnvRoot: "/env/project",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/env/project", p.Root())
			},
		},
		{
			name: "expand tilde in explicit path",
			root: "~/code/pkg",
			validate: func(t *testing.T, p Paths) {
				homeDir, _ := os.UserHomeDir()
				assert.Equal(t, filepath.Join(homeDir, "code", "pkg"), p.Root())
			},
		},
		{
			name: "custom XDG directories",
			root: "/tmp/project",
			envSetup: map[string]string{
				EnvConfigDir: "/custom/config",
				EnvCacheDir:  "/custom/cache",
				EnvStateDir:  "/custom/state",
			},
			validate: func(t *testing.T, p Paths) {
				assert.Equal(t, "/custom/config", p.ConfigDir())
				assert.Equal(t, "/custom/config/config.toml", p.UserConfigPath())
				assert.Equal(t, "/custom/cache", p.CacheDir())
				assert.Equal(t, "/custom/state", p.StateDir())
				assert.Equal(t, "/custom/state/tyranno.log", p.LogFilePath())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envSetup {
				t.Setenv(k, v)
			}
			p, err := New(tt.root, tt.projectDir)
			require.NoError(t, err)
			tt.validate(t, p)
		})
	}
}

func TestFindRoot_DataFile(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultDataFile), []byte("[project]\n"), 0o644))
	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	found, usedFallback, err := FindRoot(DefaultDataFile)
	require.NoError(t, err)
	assert.False(t, usedFallback)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRel(t *testing.T) {
	clearEnv(t)
	p, err := New("/repo", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "absolute child", path: "/repo/src/main.py", want: "src/main.py"},
		{name: "relative child", path: "docs/index.md", want: "docs/index.md"},
		{name: "cleaned", path: "/repo/a/../b.txt", want: "b.txt"},
		{name: "outside", path: "/other/file", wantErr: true},
		{name: "sibling prefix", path: "/repository/file", wantErr: true},
		{name: "root itself", path: "/repo", wantErr: true},
		{name: "escape", path: "../x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Rel(tt.path)
			if tt.wantErr {
				assert.True(t, errors.IsErrorCode(err, errors.ErrNotDescendant), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackupAndTrashPaths(t *testing.T) {
	clearEnv(t)
	p, err := New("/repo", "")
	require.NoError(t, err)

	bak, err := p.BackupPath("/repo/src/main.py")
	require.NoError(t, err)
	assert.Equal(t, "/repo/.tyranno/sync-bak/src/main.py", bak)

	trash, err := p.TrashPath("README.md")
	require.NoError(t, err)
	assert.Equal(t, "/repo/.tyranno/trashed/README.md", trash)

	_, err = p.BackupPath("/elsewhere/x")
	assert.Error(t, err)

	assert.Equal(t, "/repo/pyproject.toml", p.DataFilePath("pyproject.toml"))
	assert.Equal(t, "/data/extra.yaml", p.DataFilePath("/data/extra.yaml"))
}

func TestNormalizePath(t *testing.T) {
	clearEnv(t)
	p, err := New("/repo", "")
	require.NoError(t, err)

	_, err = p.NormalizePath("")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	got, err := p.NormalizePath("./a//b/")
	require.NoError(t, err)
	assert.Equal(t, "/repo/a/b", got)
}

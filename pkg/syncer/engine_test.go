// pkg/syncer/engine_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Memory filesystem, real filesystem for golden files
// PURPOSE: Test committing synced files with dry runs, backups and failure policies

package syncer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/dottree"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/expr"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/filesystem"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/paths"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/syncer"
)

func newRenderer(t *testing.T) *expr.Evaluator {
	t.Helper()
	tree, err := dottree.FromNested(map[string]any{
		"project": map[string]any{
			"name":    "mypkg",
			"version": "1.2.0",
			"authors": []any{"Ada", "Grace"},
		},
		"tool": map[string]any{
			"tyranno": map[string]any{
				"data": map[string]any{
					"version": "1.2.0",
					"license": "Apache-2.0",
					"year":    2025,
				},
			},
		},
	})
	require.NoError(t, err)
	lib := functions.New(context.Background(), functions.Options{Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	ev, err := expr.New(tree, lib, expr.Options{})
	require.NoError(t, err)
	return ev
}

func writeFiles(t *testing.T, fsys filesystem.FS, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, fsys.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, fsys filesystem.FS, path string) string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const (
	stalePy = "# ::tyranno:: ~.license\nMIT\nprint('hi')\n"
	freshPy = "# ::tyranno:: ~.license\nApache-2.0\nprint('hi')\n"
)

func TestSyncFile(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		fsys := filesystem.NewMemory()
		writeFiles(t, fsys, map[string]string{"/proj/a.py": stalePy})

		s := syncer.New(newRenderer(t), syncer.Options{FS: fsys, Atomic: atomic})
		summary, err := s.SyncFile("/proj/a.py")
		require.NoError(t, err)

		assert.True(t, summary.Changed)
		assert.True(t, summary.Written)
		assert.Equal(t, 1, summary.LinesChanged())
		assert.Equal(t, freshPy, readFile(t, fsys, "/proj/a.py"))

		entries, err := fsys.ReadDir("/proj")
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temporary file is left behind")
	}
}

func TestSyncFile_Unchanged(t *testing.T) {
	fsys := filesystem.NewMemory()
	writeFiles(t, fsys, map[string]string{"/proj/a.py": freshPy})

	summary, err := syncer.New(newRenderer(t), syncer.Options{FS: fsys}).SyncFile("/proj/a.py")
	require.NoError(t, err)
	assert.False(t, summary.Changed)
	assert.False(t, summary.Written)
	assert.Equal(t, 1, summary.LinesCovered())
}

func TestSyncFile_DryRun(t *testing.T) {
	fsys := filesystem.NewMemory()
	writeFiles(t, fsys, map[string]string{"/proj/a.py": stalePy})

	summary, err := syncer.New(newRenderer(t), syncer.Options{FS: fsys, DryRun: true, Atomic: true}).SyncFile("/proj/a.py")
	require.NoError(t, err)
	assert.True(t, summary.Changed)
	assert.False(t, summary.Written)
	assert.Equal(t, stalePy, readFile(t, fsys, "/proj/a.py"))
}

func TestSyncFile_Backup(t *testing.T) {
	fsys := filesystem.NewMemory()
	writeFiles(t, fsys, map[string]string{"/proj/src/a.py": stalePy})
	p, err := paths.New("/proj", "")
	require.NoError(t, err)

	s := syncer.New(newRenderer(t), syncer.Options{FS: fsys, Paths: p, Backup: true, Atomic: true})
	summary, err := s.SyncFile("/proj/src/a.py")
	require.NoError(t, err)

	want := filepath.Join("/proj", paths.DefaultProjectDir, paths.BackupDirName, "src", "a.py")
	assert.Equal(t, want, summary.BackupPath)
	assert.Equal(t, stalePy, readFile(t, fsys, want))
	assert.Equal(t, freshPy, readFile(t, fsys, "/proj/src/a.py"))
}

func TestSyncFile_BackupOutsideRoot(t *testing.T) {
	fsys := filesystem.NewMemory()
	writeFiles(t, fsys, map[string]string{"/elsewhere/a.py": stalePy})
	p, err := paths.New("/proj", "")
	require.NoError(t, err)

	_, err = syncer.New(newRenderer(t), syncer.Options{FS: fsys, Paths: p, Backup: true}).SyncFile("/elsewhere/a.py")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotDescendant))
	assert.Equal(t, stalePy, readFile(t, fsys, "/elsewhere/a.py"))
}

func TestSyncFile_LineEndings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "crlf",
			in:   "# ::tyranno:: project.name\r\nold\r\n",
			want: "# ::tyranno:: project.name\r\nmypkg\r\n",
		},
		{
			name: "no_trailing_newline",
			in:   "# ::tyranno:: project.name\nold",
			want: "# ::tyranno:: project.name\nmypkg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := filesystem.NewMemory()
			writeFiles(t, fsys, map[string]string{"/p/x.sh": tt.in})
			_, err := syncer.New(newRenderer(t), syncer.Options{FS: fsys}).SyncFile("/p/x.sh")
			require.NoError(t, err)
			assert.Equal(t, tt.want, readFile(t, fsys, "/p/x.sh"))
		})
	}
}

func TestSyncFile_Errors(t *testing.T) {
	fsys := filesystem.NewMemory()
	writeFiles(t, fsys, map[string]string{
		"/p/notes.txt":  "hello\n",
		"/p/broken.py":  "# ::tyranno:: project.name\n",
		"/p/missing.py": "# ::tyranno:: project.nope\nold\n",
	})
	s := syncer.New(newRenderer(t), syncer.Options{FS: fsys})

	tests := []struct {
		path string
		code errors.ErrorCode
	}{
		{path: "/p/notes.txt", code: errors.ErrUnknownProfile},
		{path: "/p/broken.py", code: errors.ErrMalformedBlock},
		{path: "/p/missing.py", code: errors.ErrKeyNotFound},
		{path: "/p/absent.py", code: errors.ErrFileRead},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			_, err := s.SyncFile(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err), err.Error())
			assert.Equal(t, tt.path, errors.GetErrorDetails(err)["file"])
		})
	}
	assert.Equal(t, "# ::tyranno:: project.nope\nold\n", readFile(t, fsys, "/p/missing.py"), "failed files are not written")
}

func TestSyncFiles_Policies(t *testing.T) {
	files := map[string]string{
		"/p/a.py": stalePy,
		"/p/b.py": "# ::tyranno:: project.nope\nold\n",
		"/p/c.py": stalePy,
	}
	order := []string{"/p/a.py", "/p/b.py", "/p/c.py"}

	t.Run("abort", func(t *testing.T) {
		fsys := filesystem.NewMemory()
		writeFiles(t, fsys, files)
		s := syncer.New(newRenderer(t), syncer.Options{FS: fsys, Policy: syncer.PolicyAbort})

		report, err := s.SyncFiles(order)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrKeyNotFound))
		assert.Equal(t, s.RunID(), report.RunID)
		assert.Equal(t, 1, report.Written())
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "/p/b.py", report.Failures[0].Path)
		assert.Equal(t, []string{"/p/c.py"}, report.Skipped)
		assert.Equal(t, stalePy, readFile(t, fsys, "/p/c.py"))
	})

	t.Run("continue", func(t *testing.T) {
		fsys := filesystem.NewMemory()
		writeFiles(t, fsys, files)
		s := syncer.New(newRenderer(t), syncer.Options{FS: fsys, Policy: syncer.PolicyContinue})

		report, err := s.SyncFiles(order)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrKeyNotFound))
		assert.Equal(t, 2, report.Written())
		assert.Len(t, report.Failures, 1)
		assert.Empty(t, report.Skipped)
		assert.Equal(t, freshPy, readFile(t, fsys, "/p/c.py"))
	})

	t.Run("all_succeed", func(t *testing.T) {
		fsys := filesystem.NewMemory()
		writeFiles(t, fsys, map[string]string{"/p/a.py": stalePy})
		report, err := syncer.New(newRenderer(t), syncer.Options{FS: fsys}).SyncFiles([]string{"/p/a.py"})
		require.NoError(t, err)
		assert.Len(t, report.Summaries, 1)
	})
}

func TestSyncFile_Golden(t *testing.T) {
	dir := t.TempDir()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	s := syncer.New(newRenderer(t), syncer.Options{FS: filesystem.NewOS(), Atomic: true})

	for _, name := range []string{"README.md", "pyproject.toml", "site.css"} {
		t.Run(name, func(t *testing.T) {
			input, err := os.ReadFile(filepath.Join("testdata", "input", name))
			require.NoError(t, err)
			target := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(target, input, 0o644))

			summary, err := s.SyncFile(target)
			require.NoError(t, err)
			assert.True(t, summary.Written)

			got, err := os.ReadFile(target)
			require.NoError(t, err)
			g.Assert(t, name, got)
		})
	}
}

package filesystem

import (
	"io/fs"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
)

// TempSibling returns the hidden temporary name used while rewriting path,
// such as dir/.~pyproject.toml.1a2b3c4d.temp.
func TempSibling(path string) string {
	tag := uuid.NewString()[:8]
	return filepath.Join(filepath.Dir(path), ".~"+filepath.Base(path)+"."+tag+".temp")
}

// AtomicWriteFile writes data to a temporary sibling of path and renames it over path.
// The original is never left half-written, and the temporary file is removed on every path out.
// An existing file keeps its permissions; a new file gets perm.
func AtomicWriteFile(fsys FS, path string, data []byte, perm fs.FileMode) (err error) {
	logger := logging.GetLogger("filesystem")
	if info, statErr := fsys.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}
	temp := TempSibling(path)
	defer func() {
		if _, statErr := fsys.Stat(temp); statErr == nil {
			if rmErr := fsys.Remove(temp); rmErr != nil {
				logger.Warn().Err(rmErr).Str("temp", temp).Msg("Failed to remove temporary file")
			}
		}
	}()

	if err := fsys.WriteFile(temp, data, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write temporary file for %s", path).
			WithDetail("file", path).
			WithDetail("temp", temp)
	}
	if err := fsys.Rename(temp, path); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to replace %s", path).
			WithDetail("file", path).
			WithDetail("temp", temp)
	}
	logger.Trace().Str("file", path).Int("bytes", len(data)).Msg("Replaced file")
	return nil
}

// WriteFile writes data to path in place, keeping the permissions of an existing file.
func WriteFile(fsys FS, path string, data []byte, perm fs.FileMode) error {
	if info, err := fsys.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fsys.WriteFile(path, data, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", path).WithDetail("file", path)
	}
	return nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func CopyFile(fsys FS, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileRead, "cannot stat %s", src).WithDetail("file", src)
	}
	data, err := fsys.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileRead, "cannot read %s", src).WithDetail("file", src)
	}
	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create directory for %s", dst).WithDetail("file", dst)
	}
	if err := fsys.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dst).WithDetail("file", dst)
	}
	return nil
}

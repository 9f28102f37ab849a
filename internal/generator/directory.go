package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/metrics"
)

// EnsureDirectory makes sure dir exists. An existing directory is left as
// is, mode included. A missing one fails with ErrDirectoryMissing unless
// s.CreateDirectory is set, in which case it and any missing parents are
// created with s.CreateDirectoryMode. It reports whether it created dir.
func EnsureDirectory(dir string, s Settings) (bool, error) {
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, &Error{Kind: ErrDirectoryCreateFailed, Path: dir, Err: errors.New("exists and is not a directory")}
		}
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, &Error{Kind: ErrDirectoryCreateFailed, Path: dir, Err: err}
	case !s.CreateDirectory:
		return false, &Error{Kind: ErrDirectoryMissing, Path: dir}
	}

	if err := mkdirAll(dir, s.directoryMode()); err != nil {
		return false, &Error{Kind: ErrDirectoryCreateFailed, Path: dir, Err: err}
	}
	metrics.RecordDirectoryCreated()
	logging.Debug("generator: created directory",
		zap.String("directory", dir),
		zap.String("mode", fmt.Sprintf("%#o", s.directoryMode())))
	return true, nil
}

// mkdirAll creates dir and its missing parents top-down. Unlike os.MkdirAll
// it sets mode on each directory it creates, regardless of the umask, and
// leaves directories created concurrently by someone else untouched.
func mkdirAll(dir string, mode os.FileMode) error {
	var missing []string
	for p := dir; ; {
		_, err := os.Stat(p)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		missing = append(missing, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}

	for i := len(missing) - 1; i >= 0; i-- {
		p := missing[i]
		if err := os.Mkdir(p, mode); err != nil {
			if errors.Is(err, fs.ErrExist) {
				// Lost a race with another writer; fine if it is a directory.
				if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
					continue
				}
			}
			return err
		}
		if runtime.GOOS == "windows" {
			continue
		}
		if err := os.Chmod(p, mode); err != nil {
			return err
		}
	}
	return nil
}

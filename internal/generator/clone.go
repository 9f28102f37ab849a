package generator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/metrics"
)

// Clone materializes source as dir/name using strategy: copy duplicates the
// bytes, symlink links to the absolute source path and link hard-links it.
// An existing target is replaced.
func Clone(strategy, source, dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	source, err := filepath.Abs(source)
	if err != nil {
		return "", &Error{Kind: ErrCloneFailed, Path: target, Err: err}
	}

	switch strategy {
	case filter.CloneCopy:
		err = copyFile(source, target)
	case filter.CloneSymlink:
		err = replaceWith(target, func(tmp string) error { return os.Symlink(source, tmp) })
	case filter.CloneLink:
		err = replaceWith(target, func(tmp string) error { return os.Link(source, tmp) })
	default:
		return "", &Error{Kind: ErrUnknownCloneStrategy, Path: target, Err: fmt.Errorf("%q", strategy)}
	}
	metrics.RecordClone(strategy, err == nil)
	if err != nil {
		return "", &Error{Kind: ErrCloneFailed, Path: target, Err: err}
	}
	return target, nil
}

// copyFile writes a copy of src to dst through a temp file in dst's
// directory, so readers never see a partial file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	_, err = writeAtomic(dst, info.Mode().Perm(), func(w io.Writer) (int64, error) {
		return io.Copy(w, in)
	})
	return err
}

// writeAtomic streams write into a temp file next to dst and renames it
// into place.
func writeAtomic(dst string, perm os.FileMode, write func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".mediagen-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	n, err := write(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, fmt.Errorf("write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("rename temp: %w", err)
	}
	return n, nil
}

// replaceWith creates a new entry at a scratch name with create and renames
// it over target.
func replaceWith(target string, create func(tmp string) error) error {
	if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
		return create(target)
	}

	tmp := filepath.Join(filepath.Dir(target), fmt.Sprintf(".mediagen-%d-%s.tmp", os.Getpid(), filepath.Base(target)))
	os.Remove(tmp)
	if err := create(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	// rename is a no-op when tmp and target already share an inode.
	os.Remove(tmp)
	return nil
}

// Package generator materializes the configured versions of a media file:
// it resolves the versions for the file's category, provisions their target
// directories and then clones the source or runs it through the adapter
// registered for the category.
package generator

import (
	"os"
	"path/filepath"
)

// DefaultDirectoryMode is used when Settings.CreateDirectoryMode is zero.
const DefaultDirectoryMode os.FileMode = 0o755

// Settings configures where versions are written.
type Settings struct {
	// BaseDirectory resolves relative source paths and a relative
	// FilterDirectory. Empty means the working directory.
	BaseDirectory string

	// FilterDirectory is the root under which one subdirectory per version
	// id is created.
	FilterDirectory string

	// CreateDirectory creates missing target directories. When false a
	// missing directory fails the version.
	CreateDirectory bool

	// CreateDirectoryMode is applied to directories this package creates.
	// Existing directories are never chmod'ed.
	CreateDirectoryMode os.FileMode
}

func (s Settings) directoryMode() os.FileMode {
	if s.CreateDirectoryMode == 0 {
		return DefaultDirectoryMode
	}
	return s.CreateDirectoryMode.Perm()
}

// resolve makes path absolute against BaseDirectory.
func (s Settings) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) && s.BaseDirectory != "" {
		path = filepath.Join(s.BaseDirectory, path)
	}
	return filepath.Abs(path)
}

// FilterRoot returns the absolute FilterDirectory.
func (s Settings) FilterRoot() (string, error) {
	return s.resolve(s.FilterDirectory)
}

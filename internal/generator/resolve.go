package generator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fruitsalade/mediagen/internal/filter"
)

// VersionSpec is one resolved unit of work.
type VersionSpec struct {
	Version string

	// Directory is absolute and ends in a path separator.
	Directory    string
	Instructions filter.InstructionSet
}

// Resolve returns the versions configured for category in configuration
// order. A category without filters yields no specs and no error.
func Resolve(category string, cfg filter.Config, s Settings) ([]VersionSpec, error) {
	versions := cfg.Versions(category)
	if len(versions) == 0 {
		return nil, nil
	}
	root, err := s.FilterRoot()
	if err != nil {
		return nil, fmt.Errorf("resolve filter directory: %w", err)
	}

	specs := make([]VersionSpec, 0, len(versions))
	for _, v := range versions {
		specs = append(specs, specFor(root, v))
	}
	return specs, nil
}

func specFor(root string, v filter.Version) VersionSpec {
	return VersionSpec{
		Version:      v.ID,
		Directory:    withSeparator(filepath.Join(root, v.ID)),
		Instructions: v.Instructions,
	}
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

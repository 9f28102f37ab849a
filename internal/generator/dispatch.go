package generator

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fruitsalade/mediagen/internal/adapter"
	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/media"
)

const outputPerm = 0o644

// Dispatch runs file through the adapter registered for its category and
// writes the result to dir/<baseName>.<ext>. The extension comes from a
// convert instruction when present, else from the source. Any clone
// instruction is dropped. The adapter is called exactly once.
func Dispatch(ctx context.Context, reg *adapter.Registry, file media.File, instructions filter.InstructionSet, dir string) (string, error) {
	a, ok := reg.Lookup(file.Category)
	if !ok {
		return "", &Error{Kind: ErrNoAdapter, Path: file.Path, Err: fmt.Errorf("category %s", file.Category)}
	}

	target := filepath.Join(dir, OutputName(file, instructions))
	processed, err := a.Apply(ctx, file.Path, instructions.Without(filter.OpClone))
	if err != nil {
		return "", &Error{Kind: ErrAdapter, Path: file.Path, Err: err}
	}
	if c, ok := processed.(io.Closer); ok {
		defer c.Close()
	}

	if _, err := writeAtomic(target, outputPerm, processed.WriteTo); err != nil {
		return "", &Error{Kind: ErrAdapter, Path: target, Err: err}
	}
	return target, nil
}

// OutputName is the file name Dispatch writes for file.
func OutputName(file media.File, instructions filter.InstructionSet) string {
	ext := file.Ext()
	if mimeType, ok := instructions.Convert(); ok {
		if converted := media.ExtensionByType(mimeType); converted != "" {
			ext = converted
		}
	}
	if ext == "" {
		return file.BaseName()
	}
	return file.BaseName() + "." + ext
}

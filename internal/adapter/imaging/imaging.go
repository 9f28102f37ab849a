// Package imaging is the image adapter. It decodes the source, applies the
// instructions in order on top of github.com/disintegration/imaging and
// encodes the result in the requested format.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/fruitsalade/mediagen/internal/adapter"
	"github.com/fruitsalade/mediagen/internal/filter"
)

const (
	DefaultQuality = 85
	maxQuality     = 100
)

var formatTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// Adapter processes images.
type Adapter struct {
	// Quality is the JPEG quality used unless a quality instruction says
	// otherwise.
	Quality int

	// Filter is the resampling filter for geometry operations.
	Filter imaging.ResampleFilter
}

// New creates an Adapter with Lanczos resampling.
func New() *Adapter {
	return &Adapter{Quality: DefaultQuality, Filter: imaging.Lanczos}
}

// state is the image being transformed plus the encoder settings gathered
// from the instructions so far.
type state struct {
	img         image.Image
	format      imaging.Format
	quality     int
	compression png.CompressionLevel
	filter      imaging.ResampleFilter
}

// Apply decodes source and runs instructions over it. The output keeps the
// source format unless convert or setFormat picks another.
func (a *Adapter) Apply(ctx context.Context, source string, instructions filter.InstructionSet) (adapter.Processed, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		format = imaging.PNG
	}

	st := &state{
		img:         img,
		format:      format,
		quality:     a.Quality,
		compression: png.DefaultCompression,
		filter:      a.Filter,
	}
	if st.quality <= 0 {
		st.quality = DefaultQuality
	}

	for _, in := range instructions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := st.apply(in, data); err != nil {
			return nil, fmt.Errorf("%s: %w", in.Name, err)
		}
	}

	return &Result{
		Image:   st.img,
		Format:  st.format,
		Options: []imaging.EncodeOption{imaging.JPEGQuality(st.quality), imaging.PNGCompressionLevel(st.compression)},
	}, nil
}

func (st *state) apply(in filter.Instruction, data []byte) error {
	switch in.Name {
	case filter.OpConvert:
		mimeType, err := adapter.String(in.Arg)
		if err != nil {
			return err
		}
		f, ok := formatForType(mimeType)
		if !ok {
			return fmt.Errorf("cannot encode %s", mimeType)
		}
		st.format = f
		return nil
	case "autoOrient":
		on, err := adapter.Bool(in.Arg)
		if err != nil || !on {
			return err
		}
		st.img = applyOrientation(st.img, readOrientation(bytes.NewReader(data)))
		return nil
	}

	op, ok := lookupOp(in.Name)
	if !ok {
		return adapter.Unsupported(in.Name)
	}
	return op(st, in.Arg)
}

func formatForType(mimeType string) (imaging.Format, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for f, t := range formatTypes {
		if t == mimeType {
			return f, true
		}
	}
	return 0, false
}

// Result is an encoded-on-demand image.
type Result struct {
	Image   image.Image
	Format  imaging.Format
	Options []imaging.EncodeOption
}

// MimeType returns the type of the encoded output.
func (r *Result) MimeType() string {
	return formatTypes[r.Format]
}

// WriteTo encodes the image to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := imaging.Encode(cw, r.Image, r.Format, r.Options...)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/fruitsalade/mediagen/internal/adapter"
)

type op func(st *state, arg any) error

// ops maps lower-cased operation names to their implementation. Besides the
// geometry and encoder settings it exposes the engine's own functions under
// their names, so filters may say Grayscale or Blur directly.
var ops = map[string]op{
	"fit":       geometry(imaging.Fit, false),
	"resize":    geometry(imaging.Resize, true),
	"thumbnail": geometry(imaging.Thumbnail, false),
	"fill":      fill,
	"crop":      crop,
	"rotate":    rotate,
	"quality":   quality,
	"compress":  compress,
	"setformat": setFormat,

	"grayscale":  unary(imaging.Grayscale),
	"invert":     unary(imaging.Invert),
	"fliph":      unary(imaging.FlipH),
	"flipv":      unary(imaging.FlipV),
	"rotate90":   unary(imaging.Rotate90),
	"rotate180":  unary(imaging.Rotate180),
	"rotate270":  unary(imaging.Rotate270),
	"transpose":  unary(imaging.Transpose),
	"transverse": unary(imaging.Transverse),

	"blur":             scalar(imaging.Blur),
	"sharpen":          scalar(imaging.Sharpen),
	"adjustbrightness": scalar(imaging.AdjustBrightness),
	"adjustcontrast":   scalar(imaging.AdjustContrast),
	"adjustgamma":      scalar(imaging.AdjustGamma),
	"adjustsaturation": scalar(imaging.AdjustSaturation),
}

func lookupOp(name string) (op, bool) {
	o, ok := ops[strings.ToLower(name)]
	return o, ok
}

// geometry wraps a resampling function. With keepRatio a zero width or
// height is derived from the other one.
func geometry(fn func(image.Image, int, int, imaging.ResampleFilter) *image.NRGBA, keepRatio bool) op {
	return func(st *state, arg any) error {
		w, h, err := adapter.Pair(arg)
		if err != nil {
			return err
		}
		valid := w > 0 && h > 0
		if keepRatio {
			valid = w >= 0 && h >= 0 && w+h > 0
		}
		if !valid {
			return fmt.Errorf("invalid size %dx%d", w, h)
		}
		st.img = fn(st.img, w, h, st.filter)
		return nil
	}
}

func fill(st *state, arg any) error {
	w, h, err := adapter.Pair(arg)
	if err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid size %dx%d", w, h)
	}
	st.img = imaging.Fill(st.img, w, h, imaging.Center, st.filter)
	return nil
}

func crop(st *state, arg any) error {
	r, err := adapter.Ints(arg, 4)
	if err != nil {
		return err
	}
	rect := image.Rect(r[0], r[1], r[0]+r[2], r[1]+r[3])
	if rect.Empty() || !rect.Overlaps(st.img.Bounds()) {
		return fmt.Errorf("rectangle %v outside image %v", rect, st.img.Bounds())
	}
	st.img = imaging.Crop(st.img, rect)
	return nil
}

func rotate(st *state, arg any) error {
	deg, err := adapter.Float(arg)
	if err != nil {
		return err
	}
	st.img = imaging.Rotate(st.img, deg, color.Transparent)
	return nil
}

func quality(st *state, arg any) error {
	q, err := adapter.Int(arg)
	if err != nil {
		return err
	}
	if q < 1 || q > maxQuality {
		return fmt.Errorf("quality %d out of range 1-%d", q, maxQuality)
	}
	st.quality = q
	return nil
}

// compress takes a 0-9 level and maps it onto the PNG encoder's levels.
func compress(st *state, arg any) error {
	level, err := adapter.Int(arg)
	if err != nil {
		return err
	}
	switch {
	case level == 0:
		st.compression = png.NoCompression
	case level >= 1 && level <= 3:
		st.compression = png.BestSpeed
	case level >= 4 && level <= 6:
		st.compression = png.DefaultCompression
	case level >= 7 && level <= 9:
		st.compression = png.BestCompression
	default:
		return fmt.Errorf("compression level %d out of range 0-9", level)
	}
	return nil
}

// setFormat switches the encoder by extension name (png, jpg, gif, tif, bmp).
func setFormat(st *state, arg any) error {
	name, err := adapter.String(arg)
	if err != nil {
		return err
	}
	f, err := imaging.FormatFromExtension(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	st.format = f
	return nil
}

func unary(fn func(image.Image) *image.NRGBA) op {
	return func(st *state, arg any) error {
		on, err := adapter.Bool(arg)
		if err != nil {
			return err
		}
		if on {
			st.img = fn(st.img)
		}
		return nil
	}
}

func scalar(fn func(image.Image, float64) *image.NRGBA) op {
	return func(st *state, arg any) error {
		v, err := adapter.Float(arg)
		if err != nil {
			return err
		}
		st.img = fn(st.img, v)
		return nil
	}
}

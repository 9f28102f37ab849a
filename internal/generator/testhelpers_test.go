package generator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/mediagen/internal/adapter"
	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/media"
)

// recorder is a fake adapter that records its calls and emits fixed bytes.
type recorder struct {
	mu       sync.Mutex
	calls    []filter.InstructionSet
	mimeType string
	data     []byte
	err      error
}

func (r *recorder) Apply(_ context.Context, _ string, set filter.InstructionSet) (adapter.Processed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, set)
	if r.err != nil {
		return nil, r.err
	}
	return &adapter.Bytes{Type: r.mimeType, Data: r.data}, nil
}

func (r *recorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// failingWriter is a Processed whose WriteTo fails halfway.
type failingWriter struct{}

func (failingWriter) MimeType() string { return "image/png" }

func (failingWriter) WriteTo(io.Writer) (int64, error) {
	return 0, errors.New("disk on fire")
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for x := 0; x < 20; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

// fixture lays out a source image and a generator writing under root/filters.
type fixture struct {
	root   string
	source string
	file   media.File
	fake   *recorder
	gen    *Generator
}

func newFixture(t *testing.T, cfg filter.Config) *fixture {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "image-jpg.jpg")
	writeJPEG(t, source)

	fake := &recorder{mimeType: "image/png", data: []byte("derived")}
	reg := adapter.NewRegistry()
	reg.Register(media.CategoryImage, fake)

	gen := New(Settings{
		BaseDirectory:   root,
		FilterDirectory: "filters",
		CreateDirectory: true,
	}, cfg, reg)

	file, err := gen.Open(source)
	require.NoError(t, err)
	require.Equal(t, media.CategoryImage, file.Category)

	return &fixture{root: root, source: source, file: file, fake: fake, gen: gen}
}

func (f *fixture) versionDir(id string) string {
	return filepath.Join(f.root, "filters", id)
}

func mustConfig(t *testing.T, doc string) filter.Config {
	t.Helper()
	cfg, err := filter.Parse([]byte(doc))
	require.NoError(t, err)
	return cfg
}

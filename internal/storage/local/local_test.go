package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesRoot(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	missing := filepath.Join(t.TempDir(), "mirror")
	_, err = New(Config{RootPath: missing})
	assert.Error(t, err)

	b, err := New(Config{RootPath: missing, CreateDirs: true})
	require.NoError(t, err)
	assert.DirExists(t, missing)
	assert.Equal(t, "local", b.Type())
	assert.NoError(t, b.Close())

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Config{RootPath: file})
	assert.Error(t, err)
}

func TestPutExistsDelete(t *testing.T) {
	root := t.TempDir()
	b, err := NewFromJSON(json.RawMessage(`{"root_path":"` + filepath.ToSlash(root) + `","create_dirs":true}`))
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := b.ObjectExists(ctx, "s/image.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.PutObject(ctx, "s/image.png", strings.NewReader("png"), 3, "image/png"))
	data, err := os.ReadFile(filepath.Join(root, "s", "image.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, b.PutObject(ctx, "s/image.png", strings.NewReader("png2"), 4, "image/png"))
	data, err = os.ReadFile(filepath.Join(root, "s", "image.png"))
	require.NoError(t, err)
	assert.Equal(t, "png2", string(data))

	ok, err = b.ObjectExists(ctx, "s/image.png")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.DeleteObject(ctx, "s/image.png"))
	require.NoError(t, b.DeleteObject(ctx, "s/image.png"))
	assert.NoFileExists(t, filepath.Join(root, "s", "image.png"))

	entries, err := os.ReadDir(filepath.Join(root, "s"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left")
}

func TestPutWithoutCreateDirs(t *testing.T) {
	b, err := New(Config{RootPath: t.TempDir()})
	require.NoError(t, err)
	err = b.PutObject(context.Background(), "v/a.jpg", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	b, err := New(Config{RootPath: t.TempDir(), CreateDirs: true})
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, b.PutObject(ctx, "../outside", strings.NewReader("x"), 1, ""))
	_, err = b.ObjectExists(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, b.DeleteObject(ctx, "../x"))
}

func TestNewFromJSONRejectsGarbage(t *testing.T) {
	_, err := NewFromJSON(json.RawMessage(`{`))
	assert.Error(t, err)
}

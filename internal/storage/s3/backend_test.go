package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a path-style object store good enough for the calls the backend
// makes.
type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string][]byte
	types    map[string]string
	failPuts bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) object(id string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[id]
	return data, f.types[id], ok
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		case http.MethodPut:
			f.buckets[bucket] = true
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	id := bucket + "/" + key
	switch r.Method {
	case http.MethodPut:
		if f.failPuts {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[id] = body
		f.types[id] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestBackend(t *testing.T, fake *fakeS3, cfg BackendConfig) *Backend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")

	cfg.Endpoint = srv.URL
	cfg.AccessKey, cfg.SecretKey = "key", "secret"
	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)
	return b
}

func TestPutHeadDelete(t *testing.T) {
	fake := newFakeS3()
	b := newTestBackend(t, fake, BackendConfig{Bucket: "media", Prefix: "versions/"})
	ctx := context.Background()

	ok, err := b.ObjectExists(ctx, "s/image.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.PutObject(ctx, "s/image.png", bytes.NewReader([]byte("png")), 3, "image/png"))
	data, contentType, ok := fake.object("media/versions/s/image.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", contentType)

	ok, err = b.ObjectExists(ctx, "s/image.png")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.DeleteObject(ctx, "s/image.png"))
	_, _, ok = fake.object("media/versions/s/image.png")
	assert.False(t, ok)
	assert.Equal(t, "s3", b.Type())
	assert.NoError(t, b.Close())
}

func TestCreateBucket(t *testing.T) {
	fake := newFakeS3()
	newTestBackend(t, fake, BackendConfig{Bucket: "fresh", CreateBucket: true})
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.buckets["fresh"])
}

func TestPutFailureIsReported(t *testing.T) {
	fake := newFakeS3()
	fake.failPuts = true
	b := newTestBackend(t, fake, BackendConfig{Bucket: "media"})

	err := b.PutObject(context.Background(), "s/a.png", bytes.NewReader([]byte("x")), 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s/a.png")
}

func TestConfigValidation(t *testing.T) {
	_, err := NewBackend(context.Background(), BackendConfig{})
	assert.Error(t, err)

	_, err = NewBackendFromJSON(context.Background(), []byte(`not json`))
	assert.Error(t, err)
}

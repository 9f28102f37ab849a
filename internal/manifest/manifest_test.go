package manifest

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/media"
)

func sampleResult(source string) generator.BatchResult {
	return generator.BatchResult{
		File: media.File{Path: source, MimeType: "image/jpeg", Category: "image"},
		Outcomes: []generator.Outcome{
			{Version: "s", OK: true, Path: "/out/s/image.png", Duration: 12 * time.Millisecond},
			{Version: "m", OK: false, Err: errors.New("no adapter"), Duration: time.Millisecond},
		},
	}
}

func TestEntries(t *testing.T) {
	entries := Entries(sampleResult("/in/image.jpg"))
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{
		Source: "/in/image.jpg", Version: "s", Category: "image",
		Path: "/out/s/image.png", Status: StatusOK, Duration: 12 * time.Millisecond,
	}, entries[0])
	assert.Equal(t, StatusFailed, entries[1].Status)
	assert.Equal(t, "no adapter", entries[1].Error)
	assert.Empty(t, entries[1].Path)
}

func TestEntriesEmpty(t *testing.T) {
	assert.Empty(t, Entries(generator.BatchResult{}))
}

func TestStoreRoundTrip(t *testing.T) {
	url := os.Getenv("MEDIAGEN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MEDIAGEN_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, url)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	source := "/test/" + t.Name() + "/image.jpg"
	t.Cleanup(func() { store.Delete(context.Background(), source) })

	require.NoError(t, store.Record(ctx, sampleResult(source)))

	// A second run replaces the rows instead of duplicating them.
	again := sampleResult(source)
	again.Outcomes[1] = generator.Outcome{Version: "m", OK: true, Path: "/out/m/image.png"}
	require.NoError(t, store.Record(ctx, again))

	entries, err := store.Versions(ctx, source)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m", entries[0].Version)
	assert.Equal(t, StatusOK, entries[0].Status)
	assert.Empty(t, entries[0].Error)
	assert.Equal(t, "s", entries[1].Version)
	assert.Equal(t, 12*time.Millisecond, entries[1].Duration)
	assert.False(t, entries[1].GeneratedAt.IsZero())
}

func TestOpenFailsOnBadURL(t *testing.T) {
	_, err := Open(context.Background(), "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	assert.Error(t, err)
}

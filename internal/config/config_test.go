package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/mediagen/internal/filter"
	"github.com/fruitsalade/mediagen/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "filters", cfg.Settings.FilterDirectory)
	assert.False(t, cfg.Settings.CreateDirectory)
	assert.Equal(t, os.FileMode(0o755), cfg.Settings.CreateDirectoryMode)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.WatchInterval)
	assert.Empty(t, cfg.MirrorBackend)
	assert.Empty(t, cfg.Filters)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDIAGEN_TEST_BUCKET", "media")
	path := writeFile(t, dir, "mediagen.yaml", `
generator:
  baseDirectory: library
  filterDirectory: /srv/versions
  createDirectory: true
  createDirectoryMode: 0750
filters:
  image:
    s: {convert: image/png, fit: [5, 5]}
    orig: {clone: link}
log:
  level: debug
watch:
  workers: 4
  interval: 250ms
mirror:
  backend: s3
  config:
    bucket: ${MEDIAGEN_TEST_BUCKET}
    region: ${MEDIAGEN_TEST_REGION:-eu-west-1}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "library"), cfg.Settings.BaseDirectory)
	assert.Equal(t, "/srv/versions", cfg.Settings.FilterDirectory)
	assert.True(t, cfg.Settings.CreateDirectory)
	assert.Equal(t, os.FileMode(0o750), cfg.Settings.CreateDirectoryMode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchInterval)
	assert.Equal(t, "s3", cfg.MirrorBackend)
	assert.JSONEq(t, `{"bucket":"media","region":"eu-west-1"}`, string(cfg.MirrorConfig))

	versions := cfg.Filters.Versions("image")
	require.Len(t, versions, 2)
	assert.Equal(t, "s", versions[0].ID)
	assert.Equal(t, "orig", versions[1].ID)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mediagen.yaml", `
generator:
  filterDirectory: from-file
  createDirectory: false
watch:
  workers: 4
`)
	t.Setenv("MEDIAGEN_FILTER_DIR", "from-env")
	t.Setenv("MEDIAGEN_CREATE_DIR", "true")
	t.Setenv("MEDIAGEN_CREATE_DIR_MODE", "0700")
	t.Setenv("MEDIAGEN_WORKERS", "8")
	t.Setenv("MEDIAGEN_MIRROR_BACKEND", "local")
	t.Setenv("MEDIAGEN_MIRROR_CONFIG", `{"root_path":"/mnt/mirror"}`)
	t.Setenv("MEDIAGEN_WATCH_INTERVAL", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Settings.FilterDirectory)
	assert.True(t, cfg.Settings.CreateDirectory)
	assert.Equal(t, os.FileMode(0o700), cfg.Settings.CreateDirectoryMode)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "local", cfg.MirrorBackend)
	assert.JSONEq(t, `{"root_path":"/mnt/mirror"}`, string(cfg.MirrorConfig))
	assert.Equal(t, time.Minute, cfg.WatchInterval)
}

func TestFiltersFileFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	filters := writeFile(t, dir, "filters.yaml", "video:\n  preview: {convert: video/mp4}\n")
	t.Setenv("MEDIAGEN_FILTERS", filters)

	cfg, err := Load("")
	require.NoError(t, err)
	v, ok := cfg.Filters.Lookup("video", "preview")
	require.True(t, ok)
	assert.Equal(t, filter.InstructionSet{{Name: "convert", Arg: "video/mp4"}}, v.Instructions)
}

func TestFiltersFileRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "filters.yaml", "image:\n  s: {fit: [1, 1]}\n")
	path := writeFile(t, dir, "mediagen.yaml", "filtersFile: filters.yaml\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "filters.yaml"), cfg.FiltersFile)
	_, ok := cfg.Filters.Lookup("image", "s")
	assert.True(t, ok)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad mode", yaml: "generator:\n  createDirectoryMode: rwx\n"},
		{name: "decimal mode", yaml: "generator:\n  createDirectoryMode: 493\n"},
		{name: "duplicate version", yaml: "filters:\n  image:\n    s: {fit: [1, 1]}\n    s: {fit: [2, 2]}\n"},
		{name: "bad interval", yaml: "watch:\n  interval: soon\n"},
		{name: "bad yaml", yaml: "generator: [\n"},
		{name: "unknown backend", yaml: "mirror:\n  backend: smb\n"},
		{name: "zero workers env", env: map[string]string{"MEDIAGEN_WORKERS": "0"}},
		{name: "bad bool env", env: map[string]string{"MEDIAGEN_CREATE_DIR": "maybe"}},
		{name: "bad mirror json", env: map[string]string{"MEDIAGEN_MIRROR_CONFIG": "{"}},
		{name: "missing filters file", env: map[string]string{"MEDIAGEN_FILTERS": filepath.Join(dir, "none.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, t.TempDir(), "c.yaml", tt.yaml)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestUnknownBackendIsTyped(t *testing.T) {
	t.Setenv("MEDIAGEN_MIRROR_BACKEND", "ftp")
	_, err := Load("")
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]os.FileMode{
		"0755":  0o755,
		"755":   0o755,
		"0o700": 0o700,
		" 644 ": 0o644,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("1777")
	assert.Error(t, err)
	_, err = ParseMode("8")
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MEDIAGEN_TEST_SET", "yes")
	assert.Equal(t, "a: yes", ExpandEnv("a: ${MEDIAGEN_TEST_SET}"))
	assert.Equal(t, "a: ", ExpandEnv("a: ${MEDIAGEN_TEST_UNSET_123}"))
	assert.Equal(t, "a: dflt", ExpandEnv("a: ${MEDIAGEN_TEST_UNSET_123:-dflt}"))
	assert.Equal(t, "cost: $5", ExpandEnv("cost: $5"))
}

package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDefaultsOnFreshEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	s := New(path, nil)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "New must not touch the filesystem")

	cache, err := s.CachePath()
	require.NoError(t, err)
	assert.Equal(t, "", cache)

	w, h, err := s.WindowSize()
	require.NoError(t, err)
	assert.Equal(t, 550, w)
	assert.Equal(t, 900, h)

	data, err := os.ReadFile(path)
	require.NoError(t, err, "first access must persist defaults")
	text := string(data)
	assert.Contains(t, text, "[Settings]")
	assert.Contains(t, text, "CachePath =")
	assert.Contains(t, text, "WindowWidth = 550")
	assert.Contains(t, text, "WindowHeight = 900")
}

func TestStoreSetCachePathRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	s := New(path, nil)
	require.NoError(t, s.SetCachePath("/var/cache/zips"))

	reopened := New(path, nil)
	cache, err := reopened.CachePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/zips", cache)

	w, h, err := reopened.WindowSize()
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowWidth, w)
	assert.Equal(t, DefaultWindowHeight, h)
}

func TestStoreWindowSizeAcceptsAnyInteger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	s := New(path, nil)
	require.NoError(t, s.SetWindowSize(-5, 0))

	w, h, err := New(path, nil).WindowSize()
	require.NoError(t, err)
	assert.Equal(t, -5, w)
	assert.Equal(t, 0, h)
}

func TestStoreReadsLowerCasedKeysAndKeepsUnknownEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	legacy := "[Settings]\ncachepath = /data/cache\nwindowwidth = 640\nwindowheight = 480\ntheme = dark\n\n[Other]\nkeep = me\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := New(path, nil)
	cfg, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Config{CachePath: "/data/cache", WindowWidth: 640, WindowHeight: 480}, cfg)

	require.NoError(t, s.SetWindowSize(800, 600))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "WindowWidth = 800")
	assert.Contains(t, text, "theme = dark")
	assert.Contains(t, text, "[Other]")
	assert.Contains(t, text, "keep = me")
	assert.Equal(t, 1, strings.Count(strings.ToLower(text), "windowwidth"))
}

func TestStoreNonNumericGeometryFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Settings]\nWindowWidth = wide\n"), 0o644))

	w, h, err := New(path, nil).WindowSize()
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowWidth, w)
	assert.Equal(t, DefaultWindowHeight, h)
}

func TestStoreGetUnknownKey(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "settings.ini"), nil)
	_, err := s.Get("Colour")
	require.ErrorIs(t, err, ErrUnknownKey)

	v, err := s.Get("windowheight")
	require.NoError(t, err)
	assert.Equal(t, "900", v)
}

func TestStoreLongValueDoesNotHideLaterKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	long := strings.Repeat("n", 70*1024)
	content := "[Settings]\nnote = " + long + "\ncachepath = /cache\nwindowwidth = 640\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := New(path, nil)
	cache, err := s.CachePath()
	require.NoError(t, err)
	assert.Equal(t, "/cache", cache)
	w, _, err := s.WindowSize()
	require.NoError(t, err)
	assert.Equal(t, 640, w)

	require.NoError(t, s.SetWindowSize(1, 2))
	reopened := New(path, nil)
	cache, err = reopened.CachePath()
	require.NoError(t, err)
	assert.Equal(t, "/cache", cache)
	v, err := reopened.Get(KeyWindowHeight)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), long)
}

func TestStoreAcceptsColonDelimiterAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	content := "; written by hand\n[settings]\nCachePath: /srv/zips\n# geometry\nWindowHeight = 700\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := New(path, nil).Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Config{CachePath: "/srv/zips", WindowWidth: DefaultWindowWidth, WindowHeight: 700}, cfg)
}

package jobs

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipshelf/internal/archive"
	"zipshelf/internal/ledger"
	"zipshelf/internal/runstore"
	"zipshelf/internal/settings"
)

type harness struct {
	svc      *Service
	settings *settings.Store
	ledger   *ledger.Ledger
	cache    string
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		settings: settings.New(filepath.Join(root, "settings.ini"), nil),
		ledger:   ledger.New(filepath.Join(root, "history.ini"), nil),
		cache:    filepath.Join(root, "cache"),
		clock:    time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local),
	}
	h.svc = New(Options{
		Settings: h.settings,
		Ledger:   h.ledger,
		Now:      func() time.Time { return h.clock },
	})
	return h
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "photos")
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestOutputPathFor(t *testing.T) {
	got, err := OutputPathFor("/cache", "/data/photos/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "photos.zip"), got)

	_, err = OutputPathFor("/cache", "/")
	assert.Error(t, err)
}

func TestCompressRequiresCachePath(t *testing.T) {
	h := newHarness(t)
	src := writeTree(t, map[string]string{"a.txt": "a"})

	_, err := h.svc.Compress(src, nil)
	require.ErrorIs(t, err, ErrCachePathUnset)

	_, ok := h.svc.Active()
	assert.False(t, ok, "busy guard must be released after a refused run")
}

func TestCompressTwiceKeepsOneRecordWithLatestTime(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetCachePath(h.cache))
	src := writeTree(t, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	var events []int
	obs := archive.ObserverFuncs{Progress: func(p int) { events = append(events, p) }}
	first, err := h.svc.Compress(src, obs)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "photos.zip", first.Record.OutputName)
	assert.Equal(t, src, first.Record.SourcePath)
	assert.Equal(t, []int{50, 100}, events)
	assert.FileExists(t, filepath.Join(h.cache, "photos.zip"))
	assert.NoFileExists(t, runstore.OutputLockPath(filepath.Join(h.cache, "photos.zip")))

	h.clock = h.clock.Add(time.Hour)
	second, err := h.svc.Compress(src, nil)
	require.NoError(t, err)
	assert.False(t, second.Created)

	records, err := h.svc.History()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].CompletedAt.Equal(h.clock), "got %v want %v", records[0].CompletedAt, h.clock)
}

func TestCompressLogsRunDetailsOnlyAtDebug(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetCachePath(h.cache))
	src := writeTree(t, map[string]string{"a.txt": "a"})

	var buf bytes.Buffer
	svc := New(Options{
		Settings: h.settings,
		Ledger:   h.ledger,
		Logger:   slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})),
		Now:      func() time.Time { return h.clock },
	})
	_, err := svc.Compress(src, nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "a successful run must not write info lines over a progress display")

	buf.Reset()
	svc = New(Options{
		Settings: h.settings,
		Ledger:   h.ledger,
		Logger:   slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Now:      func() time.Time { return h.clock },
	})
	_, err = svc.Compress(src, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "archive started")
	assert.Contains(t, buf.String(), "archive completed")
}

func TestCompressRefusesWhileBusy(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetCachePath(h.cache))
	src := writeTree(t, map[string]string{"a.txt": "a"})

	entered := make(chan struct{})
	release := make(chan struct{})
	obs := archive.ObserverFuncs{Progress: func(int) {
		close(entered)
		<-release
	}}
	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Compress(src, obs)
		done <- err
	}()
	<-entered

	active, ok := h.svc.Active()
	assert.True(t, ok)
	assert.Equal(t, src, active)

	_, err := h.svc.Compress(src, nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	_, ok = h.svc.Active()
	assert.False(t, ok)
}

func TestCompressInvalidSourceLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetCachePath(h.cache))

	_, err := h.svc.Compress(filepath.Join(t.TempDir(), "missing"), nil)
	require.ErrorIs(t, err, archive.ErrInvalidSource)

	records, err := h.svc.History()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecompressUsesRecordedSource(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetCachePath(h.cache))
	src := writeTree(t, map[string]string{"a.txt": "a"})

	_, err := h.svc.Compress(src, nil)
	require.NoError(t, err)
	h.clock = h.clock.Add(time.Minute)

	out, err := h.svc.Recompress("photos.zip", nil)
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.True(t, out.Record.CompletedAt.Equal(h.clock))
}

func TestRecompressErrors(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetCachePath(h.cache))
	require.NoError(t, os.WriteFile(h.ledger.Path(), []byte("legacy.zip|2023-01-01 10:00:00\n"), 0o644))

	_, err := h.svc.Recompress("legacy.zip", nil)
	assert.ErrorIs(t, err, ErrNoSourcePath)

	_, err = h.svc.Recompress("unknown.zip", nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestArchivePathAndPrune(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ArchivePath("a.zip")
	require.ErrorIs(t, err, ErrCachePathUnset)

	require.NoError(t, h.settings.SetCachePath(h.cache))
	p, err := h.svc.ArchivePath("a.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.cache, "a.zip"), p)

	require.NoError(t, os.MkdirAll(h.cache, 0o755))
	stale := filepath.Join(h.cache, "stale.zip")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := h.clock.Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	res, err := h.svc.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, res.Removed)
}

func TestDoctor(t *testing.T) {
	h := newHarness(t)
	res := h.svc.Doctor()
	assert.False(t, res.OK, "unset cache path must fail the doctor")

	require.NoError(t, h.settings.SetCachePath(h.cache))
	require.NoError(t, os.WriteFile(h.ledger.Path(), []byte("legacy.zip|2023-01-01 10:00:00\n"), 0o644))
	res = h.svc.Doctor()
	require.True(t, res.OK, "%+v", res.Checks)
	assert.DirExists(t, h.cache)

	var sources string
	for _, c := range res.Checks {
		if c.Name == "history:sources" {
			sources = c.Message
		}
	}
	assert.Contains(t, sources, "1 legacy records")
}

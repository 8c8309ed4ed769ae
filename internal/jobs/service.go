// Package jobs wires the archiver, the history ledger and the settings store
// together: it names outputs, allows one active archive at a time and
// records every completed run in the ledger.
package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"zipshelf/internal/archive"
	"zipshelf/internal/ledger"
	"zipshelf/internal/model"
	"zipshelf/internal/runstore"
	"zipshelf/internal/settings"
)

var (
	ErrBusy           = errors.New("an archive is already in progress")
	ErrCachePathUnset = errors.New("cache path is not set (run: zipshelf settings set --cache-path <dir>)")
	ErrRecordNotFound = errors.New("no history record with that output name")
	ErrNoSourcePath   = errors.New("history record has no source path")
)

type Options struct {
	Settings *settings.Store
	Ledger   *ledger.Ledger
	Archiver *archive.Archiver
	Logger   *slog.Logger
	Now      func() time.Time
}

type Service struct {
	settings *settings.Store
	ledger   *ledger.Ledger
	archiver *archive.Archiver
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	active string
}

// Outcome describes a finished Compress or Recompress.
type Outcome struct {
	Record  model.JobRecord `json:"record"`
	Created bool            `json:"created"`
	Result  archive.Result  `json:"result"`
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	arch := opts.Archiver
	if arch == nil {
		arch = archive.New(archive.Options{Logger: logger})
	}
	return &Service{
		settings: opts.Settings,
		ledger:   opts.Ledger,
		archiver: arch,
		logger:   logger,
		now:      now,
	}
}

// OutputPathFor names the archive of sourceDir inside cachePath. Sources
// with the same basename share one output; the ledger keeps one record.
func OutputPathFor(cachePath, sourceDir string) (string, error) {
	base := filepath.Base(filepath.Clean(strings.TrimSpace(sourceDir)))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("cannot derive an archive name from %q", sourceDir)
	}
	return filepath.Join(cachePath, base+".zip"), nil
}

// Active reports the source directory of the running archive, if any.
func (s *Service) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

func (s *Service) begin(sourceDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		return fmt.Errorf("%w: %s", ErrBusy, s.active)
	}
	s.active = sourceDir
	return nil
}

func (s *Service) end() {
	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()
}

func (s *Service) cachePath() (string, error) {
	cache, err := s.settings.CachePath()
	if err != nil {
		return "", err
	}
	cache = strings.TrimSpace(cache)
	if cache == "" {
		return "", ErrCachePathUnset
	}
	return cache, nil
}

// Compress archives sourceDir into the cache directory and upserts the
// ledger record for it. It refuses to start while another run is active.
func (s *Service) Compress(sourceDir string, obs archive.Observer) (Outcome, error) {
	absSource, err := filepath.Abs(strings.TrimSpace(sourceDir))
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve source %s: %w", sourceDir, err)
	}
	if err := s.begin(absSource); err != nil {
		s.logger.Warn("refusing to start a second archive", "source", absSource, "error", err)
		return Outcome{}, err
	}
	defer s.end()

	cache, err := s.cachePath()
	if err != nil {
		return Outcome{}, err
	}
	output, err := OutputPathFor(cache, absSource)
	if err != nil {
		return Outcome{}, err
	}
	if err := runstore.Mkdir(cache); err != nil {
		return Outcome{}, err
	}

	jobID := uuid.NewString()
	lock, err := runstore.AcquireOutputLock(output, jobID)
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("release output lock", "output", output, "error", err)
		}
	}()

	log := s.logger.With("job_id", jobID, "source", absSource, "output", output)
	log.Debug("archive started")
	task, err := s.archiver.StartWithID(jobID, absSource, output, obs)
	if err != nil {
		log.Warn("archive rejected", "error", err)
		return Outcome{}, err
	}
	res, err := task.Wait()
	if err != nil {
		log.Warn("archive failed", "error", err)
		return Outcome{Result: res}, err
	}

	rec := ledger.NewRecord(filepath.Base(output), absSource, s.now())
	created, err := s.ledger.Upsert(rec)
	if err != nil {
		return Outcome{Result: res}, fmt.Errorf("record history for %s: %w", rec.OutputName, err)
	}
	log.Debug("archive completed", "files", res.Job.ProcessedFileCount, "compressed_bytes", res.CompressedBytes, "new_record", created)
	return Outcome{Record: rec, Created: created, Result: res}, nil
}

// Recompress reruns the job recorded under outputName from its recorded
// source directory.
func (s *Service) Recompress(outputName string, obs archive.Observer) (Outcome, error) {
	name := strings.TrimSpace(outputName)
	rec, ok, err := s.ledger.Find(name)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrRecordNotFound, name)
	}
	if strings.TrimSpace(rec.SourcePath) == "" {
		return Outcome{}, fmt.Errorf("%w: %q (recorded before sources were tracked)", ErrNoSourcePath, name)
	}
	return s.Compress(rec.SourcePath, obs)
}

func (s *Service) History() ([]model.JobRecord, error) {
	return s.ledger.Load()
}

// ArchivePath is the location of a recorded archive in the current cache
// directory.
func (s *Service) ArchivePath(outputName string) (string, error) {
	cache, err := s.cachePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, filepath.Base(outputName)), nil
}

func (s *Service) Prune(retention time.Duration) (archive.PruneResult, error) {
	cache, err := s.cachePath()
	if err != nil {
		return archive.PruneResult{}, err
	}
	return archive.PruneArchives(cache, retention, s.now(), s.logger)
}

func (s *Service) Settings() *settings.Store {
	return s.settings
}

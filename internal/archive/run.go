package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"zipshelf/internal/model"
)

type Options struct {
	// Method is the zip compression method; zero means zip.Deflate.
	Method uint16
	Logger *slog.Logger
}

// Archiver writes a directory tree into a zip file. One Archiver may serve
// many runs; it holds no per-run state.
type Archiver struct {
	method uint16
	logger *slog.Logger
}

type Result struct {
	Job             model.ArchiveJob `json:"job"`
	CompressedBytes int64            `json:"compressed_bytes"`
}

func New(opts Options) *Archiver {
	method := opts.Method
	if method == 0 {
		method = zip.Deflate
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{method: method, logger: logger}
}

// Task is the handle of a run started with Start.
type Task struct {
	job    model.ArchiveJob
	done   chan struct{}
	result Result
	err    error
}

// Job returns the job as it was when the run started.
func (t *Task) Job() model.ArchiveJob {
	return t.job
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run finishes and returns its outcome.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.result, t.err
}

// Start validates sourceDir and runs the archive on a new goroutine. An
// invalid source is reported here, before any traversal or event.
func (a *Archiver) Start(sourceDir, outputPath string, obs Observer) (*Task, error) {
	return a.StartWithID(uuid.NewString(), sourceDir, outputPath, obs)
}

// StartWithID is Start with a caller-chosen job id, for callers that stamp
// the id elsewhere (an output lock) before the run begins.
func (a *Archiver) StartWithID(jobID, sourceDir, outputPath string, obs Observer) (*Task, error) {
	job, err := a.prepare(jobID, sourceDir, outputPath)
	if err != nil {
		return nil, err
	}
	t := &Task{job: job, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = a.run(job, obs)
	}()
	return t, nil
}

// Archive is the synchronous form of Start.
func (a *Archiver) Archive(sourceDir, outputPath string, obs Observer) (Result, error) {
	job, err := a.prepare(uuid.NewString(), sourceDir, outputPath)
	if err != nil {
		return Result{Job: job}, err
	}
	return a.run(job, obs)
}

func (a *Archiver) prepare(jobID, sourceDir, outputPath string) (model.ArchiveJob, error) {
	job := model.ArchiveJob{ID: jobID}
	if err := model.TransitionArchiveStatus(&job, model.StatusPending, ""); err != nil {
		return job, err
	}

	src := strings.TrimSpace(sourceDir)
	if src == "" {
		return job, &Error{Kind: InvalidSource, Path: sourceDir, Err: errors.New("source directory is required")}
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return job, &Error{Kind: InvalidSource, Path: src, Err: err}
	}
	info, err := os.Stat(absSrc)
	if err != nil {
		return job, &Error{Kind: InvalidSource, Path: absSrc, Err: err}
	}
	if !info.IsDir() {
		return job, &Error{Kind: InvalidSource, Path: absSrc, Err: errors.New("not a directory")}
	}
	job.SourceDir = absSrc

	out := strings.TrimSpace(outputPath)
	if out == "" {
		return job, &Error{Kind: WriteFailure, Path: outputPath, Err: errors.New("output path is required")}
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return job, &Error{Kind: WriteFailure, Path: out, Err: err}
	}
	job.OutputPath = absOut
	return job, nil
}

func (a *Archiver) run(job model.ArchiveJob, obs Observer) (Result, error) {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	log := a.logger.With("job_id", job.ID, "source", job.SourceDir, "output", job.OutputPath)
	fail := func(kind Kind, path string, err error) (Result, error) {
		_ = model.TransitionArchiveStatus(&job, model.StatusFailed, kind.String())
		log.Debug("archive failed", "kind", kind.String(), "path", path, "error", err)
		return Result{Job: job}, &Error{Kind: kind, Path: path, Err: err}
	}

	if err := model.TransitionArchiveStatus(&job, model.StatusScanning, ""); err != nil {
		return Result{Job: job}, err
	}
	total, totalBytes, err := scanTree(job.SourceDir, job.OutputPath)
	if err != nil {
		return fail(InvalidSource, job.SourceDir, fmt.Errorf("scan source tree: %w", err))
	}
	job.TotalFileCount = total
	job.TotalBytes = totalBytes
	log.Debug("archive scan finished", "files", total, "bytes", totalBytes)

	if err := model.TransitionArchiveStatus(&job, model.StatusWriting, ""); err != nil {
		return Result{Job: job}, err
	}
	f, err := os.Create(job.OutputPath)
	if err != nil {
		return fail(WriteFailure, job.OutputPath, err)
	}
	zw := zip.NewWriter(f)

	lastPct := 0
	walkErr := walkRegularFiles(job.SourceDir, job.OutputPath, func(path string, info fs.FileInfo) error {
		rel, err := filepath.Rel(job.SourceDir, path)
		if err != nil {
			return err
		}
		if err := a.writeEntry(zw, path, filepath.ToSlash(rel), info); err != nil {
			return err
		}
		job.ProcessedFileCount++
		lastPct = percentOf(job.ProcessedFileCount, total)
		log.Debug("archive entry written", "entry", filepath.ToSlash(rel), "percent", lastPct)
		obs.OnProgress(lastPct)
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = f.Close()
		return fail(WriteFailure, job.OutputPath, walkErr)
	}
	// Files removed between the two passes leave the count short of total.
	if job.ProcessedFileCount > 0 && lastPct < 100 {
		obs.OnProgress(100)
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fail(WriteFailure, job.OutputPath, err)
	}
	if err := f.Close(); err != nil {
		return fail(WriteFailure, job.OutputPath, err)
	}

	var compressed int64
	if st, err := os.Stat(job.OutputPath); err == nil {
		compressed = st.Size()
	}
	if err := model.TransitionArchiveStatus(&job, model.StatusCompleted, ""); err != nil {
		return Result{Job: job}, err
	}
	obs.OnComplete(job.OutputPath)
	log.Debug("archive completed", "files", job.ProcessedFileCount, "compressed_bytes", compressed)
	return Result{Job: job, CompressedBytes: compressed}, nil
}

func (a *Archiver) writeEntry(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", path, err)
	}
	hdr.Name = name
	hdr.Method = a.method

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}

// percentOf is floor(processed/total*100), capped at 100. Callers never
// emit progress when total is zero.
func percentOf(processed, total int) int {
	if total <= 0 {
		return 100
	}
	p := processed * 100 / total
	if p > 100 {
		return 100
	}
	return p
}

func scanTree(root, skip string) (int, int64, error) {
	count := 0
	var size int64
	err := walkRegularFiles(root, skip, func(_ string, info fs.FileInfo) error {
		count++
		size += info.Size()
		return nil
	})
	return count, size, err
}

// walkRegularFiles visits regular files under root in lexical order,
// skipping the path skip (the archive itself when it lives inside root).
func walkRegularFiles(root, skip string, fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() || path == skip {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, info)
	})
}

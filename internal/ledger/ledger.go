// Package ledger keeps the history of completed archive jobs in a flat file,
// one "outputName|YYYY-MM-DD HH:MM:SS|sourcePath" record per line.
//
// Every mutation except Append is a full read-modify-write of the file.
package ledger

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"zipshelf/internal/model"
	"zipshelf/internal/runstore"
)

const DefaultPath = "history.ini"

// Ledger serialises access to one backing file within a process. It does
// not lock across processes.
type Ledger struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

func New(path string, logger *slog.Logger) *Ledger {
	p := strings.TrimSpace(path)
	if p == "" {
		p = DefaultPath
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{path: p, logger: logger}
}

func (l *Ledger) Path() string {
	return l.path
}

// Load returns the records in file order. A missing file is an empty ledger.
func (l *Ledger) Load() ([]model.JobRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

func (l *Ledger) loadLocked() ([]model.JobRecord, error) {
	data, ok, err := runstore.ReadBytesIfExists(l.path)
	if err != nil {
		return nil, err
	}
	records := []model.JobRecord{}
	if !ok {
		return records, nil
	}

	for i, raw := range strings.Split(string(data), "\n") {
		lineNo := i + 1
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		p := parseLine(line)
		switch {
		case p.fields == 2:
			l.logger.Debug("ledger legacy record without source path", "path", l.path, "line", lineNo, "output", p.record.OutputName)
		case p.fields < 2:
			l.logger.Warn("ledger line has missing fields, defaulting to empty", "path", l.path, "line", lineNo, "fields", p.fields)
		}
		if p.badTime {
			l.logger.Warn("ledger line has unparseable completion time", "path", l.path, "line", lineNo, "value", p.rawTime)
		}
		records = append(records, p.record)
	}
	return records, nil
}

// Append adds rec at the end without checking for an existing OutputName.
func (l *Ledger) Append(rec model.JobRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return runstore.AppendBytes(l.path, []byte(formatLine(rec)+"\n"))
}

// Upsert updates the CompletedAt and SourcePath of the record with the same
// OutputName in place, or appends rec when none exists. It reports whether
// a new record was created.
func (l *Ledger) Upsert(rec model.JobRecord) (bool, error) {
	if err := validateRecord(rec); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.loadLocked()
	if err != nil {
		return false, err
	}
	created := true
	for i := range records {
		if records[i].OutputName == rec.OutputName {
			records[i].CompletedAt = rec.CompletedAt
			records[i].CompletedAtRaw = rec.CompletedAtRaw
			records[i].SourcePath = rec.SourcePath
			created = false
			break
		}
	}
	if created {
		records = append(records, rec)
	}
	if err := l.writeLocked(records); err != nil {
		return false, err
	}
	return created, nil
}

// Find returns the first record whose OutputName matches.
func (l *Ledger) Find(outputName string) (model.JobRecord, bool, error) {
	records, err := l.Load()
	if err != nil {
		return model.JobRecord{}, false, err
	}
	for _, r := range records {
		if r.OutputName == outputName {
			return r, true, nil
		}
	}
	return model.JobRecord{}, false, nil
}

func (l *Ledger) writeLocked(records []model.JobRecord) error {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(formatLine(r))
		b.WriteByte('\n')
	}
	return runstore.WriteBytes(l.path, []byte(b.String()))
}

// NewRecord builds the record for a finished run at now, truncated to
// whole seconds.
func NewRecord(outputName, sourcePath string, now time.Time) model.JobRecord {
	return model.JobRecord{
		OutputName:  outputName,
		CompletedAt: now.Local().Truncate(time.Second),
		SourcePath:  sourcePath,
	}
}

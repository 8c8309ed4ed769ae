package model

import "time"

// CompletionTimeLayout is the on-disk form of JobRecord.CompletedAt.
const CompletionTimeLayout = "2006-01-02 15:04:05"

// JobRecord is one ledger entry. OutputName is the unique key.
type JobRecord struct {
	OutputName  string    `json:"output_name" yaml:"output_name"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
	SourcePath  string    `json:"source_path" yaml:"source_path"`

	// CompletedAtRaw holds a stored completion time that did not parse, so
	// rewrites of the ledger keep it verbatim.
	CompletedAtRaw string `json:"completed_at_raw,omitempty" yaml:"completed_at_raw,omitempty"`
}

// CompletedAtText renders CompletedAt in ledger form. The zero time renders
// CompletedAtRaw, which is usually empty.
func (r JobRecord) CompletedAtText() string {
	if r.CompletedAt.IsZero() {
		return r.CompletedAtRaw
	}
	return r.CompletedAt.Format(CompletionTimeLayout)
}

// ArchiveJob is the transient state of a single archiver run.
type ArchiveJob struct {
	ID                 string `json:"id"`
	SourceDir          string `json:"source_dir"`
	OutputPath         string `json:"output_path"`
	TotalFileCount     int    `json:"total_file_count"`
	ProcessedFileCount int    `json:"processed_file_count"`
	TotalBytes         int64  `json:"total_bytes"`
	Status             string `json:"status"`
	Reason             string `json:"reason,omitempty"`
}

type EventKind int

const (
	EventProgress EventKind = iota
	EventComplete
)

// Event is the value form of an archive observer callback.
type Event struct {
	Kind       EventKind
	Percent    int
	OutputPath string
}

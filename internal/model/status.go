package model

import "fmt"

const (
	StatusPending   = "pending"
	StatusScanning  = "scanning"
	StatusWriting   = "writing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusScanning: true,
		StatusFailed:   true,
	},
	StatusScanning: {
		StatusWriting: true,
		StatusFailed:  true,
	},
	StatusWriting: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
	// terminal; a rerun is a new job
	StatusCompleted: {},
	StatusFailed:    {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionArchiveStatus(job *ArchiveJob, toStatus string, reason string) error {
	from := job.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid archive job status transition: %q -> %q (job_id=%s source=%s)", from, toStatus, job.ID, job.SourceDir)
	}
	job.Status = toStatus
	job.Reason = reason
	return nil
}

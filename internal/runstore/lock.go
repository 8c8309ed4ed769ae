package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	outputLockSuffix    = ".lock"
	outputLockOwnerFile = "owner.json"
)

// ErrLocked reports that another archive run holds the output lock.
var ErrLocked = errors.New("output is locked by another archive run")

type OutputLock struct {
	lockDir string
}

type outputLockOwner struct {
	JobID     string `json:"job_id,omitempty"`
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func OutputLockPath(outputPath string) string {
	return strings.TrimSpace(outputPath) + outputLockSuffix
}

// AcquireOutputLock claims outputPath for one archive run by creating
// <outputPath>.lock. The lock directory is stamped with the job id and pid.
func AcquireOutputLock(outputPath, jobID string) (OutputLock, error) {
	target := strings.TrimSpace(outputPath)
	if target == "" {
		return OutputLock{}, fmt.Errorf("output path is required")
	}
	if err := Mkdir(filepath.Dir(target)); err != nil {
		return OutputLock{}, err
	}

	lockDir := OutputLockPath(target)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, outputLockOwnerFile)
			var owner outputLockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return OutputLock{}, fmt.Errorf(
					"%w: %s (job=%s pid=%d created_at=%s host=%s)",
					ErrLocked, target, owner.JobID, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return OutputLock{}, fmt.Errorf("%w: %s", ErrLocked, target)
		}
		return OutputLock{}, fmt.Errorf("acquire output lock for %s: %w", target, err)
	}

	owner := outputLockOwner{
		JobID:     jobID,
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, outputLockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return OutputLock{}, fmt.Errorf("write output lock owner for %s: %w", target, err)
	}

	return OutputLock{lockDir: lockDir}, nil
}

func (l OutputLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, outputLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release output lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}

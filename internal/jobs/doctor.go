package jobs

import (
	"fmt"
	"path/filepath"

	"zipshelf/internal/runstore"
)

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Doctor checks that settings and history are readable and that the cache
// directory is set and writable. It creates missing directories.
func (s *Service) Doctor() DoctorResult {
	checks := make([]DoctorCheck, 0, 4)

	cfg, err := s.settings.Snapshot()
	checks = append(checks, checkFrom("file:settings", err, "readable: "+s.settings.Path()))

	records, err := s.ledger.Load()
	checks = append(checks, checkFrom("file:history", err, fmt.Sprintf("readable: %s (%d records)", s.ledger.Path(), len(records))))

	if err == nil {
		missing := 0
		for _, r := range records {
			if r.SourcePath == "" {
				missing++
			}
		}
		msg := "all records can be recompressed"
		if missing > 0 {
			msg = fmt.Sprintf("%d legacy records without a source path", missing)
		}
		checks = append(checks, DoctorCheck{Name: "history:sources", OK: true, Message: msg})
	}

	switch {
	case cfg.CachePath == "":
		checks = append(checks, DoctorCheck{Name: "directory:cache", OK: false, Message: ErrCachePathUnset.Error()})
	default:
		dir := filepath.Clean(cfg.CachePath)
		checks = append(checks, checkFrom("directory:cache", runstore.EnsureWritableDir(dir), "writable: "+dir))
	}

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}
}

func checkFrom(name string, err error, okMessage string) DoctorCheck {
	if err != nil {
		return DoctorCheck{Name: name, OK: false, Message: err.Error()}
	}
	return DoctorCheck{Name: name, OK: true, Message: okMessage}
}

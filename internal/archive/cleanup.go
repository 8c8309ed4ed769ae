package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zipshelf/internal/runstore"
)

type PruneResult struct {
	Dir     string   `json:"dir"`
	Removed []string `json:"removed"`
	Kept    int      `json:"kept"`
	Skipped []string `json:"skipped,omitempty"`
}

// PruneArchives removes *.zip files in dir whose modification time is
// before now-retention. Archives with a live output lock are skipped.
func PruneArchives(dir string, retention time.Duration, now time.Time, logger *slog.Logger) (PruneResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := PruneResult{Dir: dir, Removed: []string{}}
	if retention <= 0 {
		return res, fmt.Errorf("retention must be > 0, got %s", retention)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil {
		return res, fmt.Errorf("list archives in %s: %w", dir, err)
	}

	cutoff := now.Add(-retention)
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if _, err := os.Stat(runstore.OutputLockPath(f)); err == nil {
			res.Skipped = append(res.Skipped, f)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			res.Kept++
			continue
		}
		if err := os.Remove(f); err != nil {
			logger.Warn("failed to remove archive", "path", f, "error", err)
			res.Skipped = append(res.Skipped, f)
			continue
		}
		res.Removed = append(res.Removed, f)
	}

	if len(res.Removed) > 0 {
		logger.Info("pruned old archives", "dir", dir, "removed", len(res.Removed))
	}
	return res, nil
}

package cli

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"zipshelf/internal/jobs"
	"zipshelf/internal/ledger"
	"zipshelf/internal/settings"
)

const (
	envSettingsPath = "ZIPSHELF_SETTINGS"
	envHistoryPath  = "ZIPSHELF_HISTORY"
)

// storeFlags are the state-file flags shared by every subcommand.
type storeFlags struct {
	settingsPath *string
	historyPath  *string
	verbose      *bool
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		settingsPath: fs.String("settings", envOr(envSettingsPath, settings.DefaultPath), "settings file path"),
		historyPath:  fs.String("history", envOr(envHistoryPath, ledger.DefaultPath), "history file path"),
		verbose:      fs.Bool("verbose", false, "debug logging on stderr"),
	}
}

func (f storeFlags) logger() *slog.Logger {
	return newLogger(*f.verbose)
}

// tuiLogger is the logger for commands whose bubbletea program owns the
// terminal: stderr lines would tear the redraw, so logs are dropped unless
// --verbose or DEBUG asks for them.
func (f storeFlags) tuiLogger() *slog.Logger {
	if !*f.verbose && os.Getenv("DEBUG") == "" {
		return slog.New(slog.DiscardHandler)
	}
	return newLogger(true)
}

func (f storeFlags) settingsStore(logger *slog.Logger) *settings.Store {
	return settings.New(strings.TrimSpace(*f.settingsPath), logger)
}

func (f storeFlags) service() *jobs.Service {
	return f.serviceWithLogger(f.logger())
}

func (f storeFlags) serviceWithLogger(logger *slog.Logger) *jobs.Service {
	return jobs.New(jobs.Options{
		Settings: f.settingsStore(logger),
		Ledger:   ledger.New(strings.TrimSpace(*f.historyPath), logger),
		Logger:   logger,
	})
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Package settings persists the cache directory and window geometry in an
// INI file with a single [Settings] section.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	"zipshelf/internal/runstore"
)

const (
	DefaultPath = "settings.ini"

	SectionName = "Settings"

	KeyCachePath    = "CachePath"
	KeyWindowWidth  = "WindowWidth"
	KeyWindowHeight = "WindowHeight"

	DefaultWindowWidth  = 550
	DefaultWindowHeight = 900
)

var ErrUnknownKey = errors.New("unknown settings key")

var knownKeys = []string{KeyCachePath, KeyWindowWidth, KeyWindowHeight}

// Config is a snapshot of the supported settings.
type Config struct {
	CachePath    string `json:"cache_path"`
	WindowWidth  int    `json:"window_width"`
	WindowHeight int    `json:"window_height"`
}

func Defaults() Config {
	return Config{
		CachePath:    "",
		WindowWidth:  DefaultWindowWidth,
		WindowHeight: DefaultWindowHeight,
	}
}

// Store is safe for use by multiple goroutines of one process. It performs
// no I/O until the first accessor runs.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	file   *ini.File
}

func New(path string, logger *slog.Logger) *Store {
	p := strings.TrimSpace(path)
	if p == "" {
		p = DefaultPath
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: p, logger: logger}
}

func (s *Store) Path() string {
	return s.path
}

// loadLocked reads the backing file once. A missing file is initialised
// with defaults and written immediately.
func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, ok, err := runstore.ReadBytesIfExists(s.path)
	if err != nil {
		return err
	}
	if !ok {
		s.file = defaultFile()
		if err := s.saveLocked(); err != nil {
			return err
		}
		s.logger.Info("settings file initialised with defaults", "path", s.path)
		s.loaded = true
		return nil
	}
	f, err := parseINI(s.path, data)
	if err != nil {
		return err
	}
	s.file = f
	lookupSection(s.file, SectionName)
	s.loaded = true
	return nil
}

func (s *Store) saveLocked() error {
	data, err := encodeINI(s.file)
	if err != nil {
		return fmt.Errorf("encode settings %s: %w", s.path, err)
	}
	if err := runstore.WriteBytes(s.path, data); err != nil {
		return fmt.Errorf("save settings %s: %w", s.path, err)
	}
	return nil
}

func defaultFile() *ini.File {
	def := Defaults()
	f := ini.Empty(loadOptions)
	sec := lookupSection(f, SectionName)
	_, _ = sec.NewKey(KeyCachePath, def.CachePath)
	_, _ = sec.NewKey(KeyWindowWidth, strconv.Itoa(def.WindowWidth))
	_, _ = sec.NewKey(KeyWindowHeight, strconv.Itoa(def.WindowHeight))
	return f
}

func canonicalKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	for _, known := range knownKeys {
		if strings.EqualFold(k, known) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func defaultValue(key string) string {
	def := Defaults()
	switch key {
	case KeyWindowWidth:
		return strconv.Itoa(def.WindowWidth)
	case KeyWindowHeight:
		return strconv.Itoa(def.WindowHeight)
	default:
		return def.CachePath
	}
}

// Get returns the stored value for key, or its default when absent.
func (s *Store) Get(key string) (string, error) {
	k, err := canonicalKey(key)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return "", err
	}
	return s.getLocked(k), nil
}

func (s *Store) getLocked(key string) string {
	if k, ok := lookupKey(lookupSection(s.file, SectionName), key); ok {
		return k.String()
	}
	return defaultValue(key)
}

// Set stores value under key and rewrites the backing file.
func (s *Store) Set(key, value string) error {
	k, err := canonicalKey(key)
	if err != nil {
		return err
	}
	return s.setMany(map[string]string{k: value})
}

func (s *Store) setMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	sec := lookupSection(s.file, SectionName)
	for _, k := range knownKeys {
		if v, ok := values[k]; ok {
			if err := setKey(sec, k, v); err != nil {
				return fmt.Errorf("set %s in %s: %w", k, s.path, err)
			}
		}
	}
	return s.saveLocked()
}

func (s *Store) CachePath() (string, error) {
	return s.Get(KeyCachePath)
}

func (s *Store) SetCachePath(path string) error {
	return s.Set(KeyCachePath, strings.TrimSpace(path))
}

// WindowSize returns the stored geometry. A value that is not an integer
// falls back to its default; sign and range are not checked.
func (s *Store) WindowSize() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return 0, 0, err
	}
	w := s.intLocked(KeyWindowWidth, DefaultWindowWidth)
	h := s.intLocked(KeyWindowHeight, DefaultWindowHeight)
	return w, h, nil
}

func (s *Store) intLocked(key string, def int) int {
	raw := strings.TrimSpace(s.getLocked(key))
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("settings value is not an integer, using default", "path", s.path, "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func (s *Store) SetWindowSize(width, height int) error {
	return s.setMany(map[string]string{
		KeyWindowWidth:  strconv.Itoa(width),
		KeyWindowHeight: strconv.Itoa(height),
	})
}

// Snapshot returns all supported settings at once.
func (s *Store) Snapshot() (Config, error) {
	cache, err := s.CachePath()
	if err != nil {
		return Config{}, err
	}
	w, h, err := s.WindowSize()
	if err != nil {
		return Config{}, err
	}
	return Config{CachePath: cache, WindowWidth: w, WindowHeight: h}, nil
}

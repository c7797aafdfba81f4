package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by a Backend that holds no blob yet
var ErrNotFound = errors.New("settings not found")

// Backend stores the raw settings blob
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// FileBackend keeps the blob in a YAML file
type FileBackend struct {
	Path string
}

func (b FileBackend) Read() ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write replaces the file atomically
func (b FileBackend) Write(data []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keepout-*.yaml")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.Path)
}

// MemoryBackend keeps the blob in memory, for boards without a filesystem
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func (b *MemoryBackend) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBackend) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}

// Parse decodes a settings blob over Defaults, so absent keys keep their
// default values. The result is not validated.
func Parse(data []byte) (Settings, error) {
	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Store loads, validates and saves Settings through a Backend
type Store struct {
	mu      sync.Mutex
	backend Backend
	current Settings
	logger  *slog.Logger
}

// NewStore creates a store holding Defaults until Load is called
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		backend: backend,
		current: Defaults(),
		logger:  logger,
	}
}

// Load reads the persisted settings. A missing or corrupt blob is replaced
// by Defaults, which are written back; that recovery is logged, not returned.
// Only a backend read failure other than not-found is an error.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Read()
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Warn("keepout settings not found, restoring defaults")
		return s.restoreLocked(), nil
	case err != nil:
		return s.current, fmt.Errorf("failed to read keepout settings: %w", err)
	}

	loaded, err := Parse(data)
	if err != nil {
		s.logger.Warn("keepout settings corrupt, restoring defaults", "err", err)
		return s.restoreLocked(), nil
	}
	if err := loaded.Validate(); err != nil {
		s.logger.Warn("keepout settings invalid, restoring defaults", "err", err)
		return s.restoreLocked(), nil
	}

	s.current = loaded
	return loaded, nil
}

// Reload re-reads the persisted settings while running. Unlike Load it
// never falls back to Defaults: a missing, corrupt or invalid blob is
// returned as an error, the backend is left untouched and the current
// settings stay in effect.
func (s *Store) Reload() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Read()
	if err != nil {
		return s.current, fmt.Errorf("failed to read keepout settings: %w", err)
	}
	loaded, err := Parse(data)
	if err != nil {
		return s.current, fmt.Errorf("keepout settings corrupt: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return s.current, fmt.Errorf("keepout settings invalid: %w", err)
	}

	s.current = loaded
	return loaded, nil
}

func (s *Store) restoreLocked() Settings {
	s.current = Defaults()
	if err := s.writeLocked(s.current); err != nil {
		s.logger.Warn("failed to persist default keepout settings", "err", err)
	}
	return s.current
}

func (s *Store) writeLocked(v Settings) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Write(data)
}

// Save validates and persists v
func (s *Store) Save(v Settings) error {
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(v); err != nil {
		return fmt.Errorf("failed to write keepout settings: %w", err)
	}
	s.current = v
	return nil
}

// Restore persists and returns Defaults
func (s *Store) Restore() (Settings, error) {
	d := Defaults()
	return d, s.Save(d)
}

// Set changes one setting and persists the result
func (s *Store) Set(id int, value float64) (Settings, error) {
	next := s.Current()
	if err := next.Set(id, value); err != nil {
		return s.Current(), err
	}
	if err := s.Save(next); err != nil {
		return s.Current(), err
	}
	return next, nil
}

// Current returns the last loaded or saved settings
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

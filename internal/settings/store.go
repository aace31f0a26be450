package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoSettings is returned by Load when no settings record has been saved yet
var ErrNoSettings = errors.New("no settings record")

// Store persists the settings record as YAML on disk
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store backed by the file at path
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the file the store reads and writes
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings record
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSettings
		}
		return nil, fmt.Errorf("failed to read settings file %s: %w", s.path, err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}

	s.logger.Debug("Loaded settings", "path", s.path)
	return &cfg, nil
}

// LoadOrDefaults returns the saved record, or defaults for the platform when
// none exists. The boolean reports whether a saved record was found.
func (s *Store) LoadOrDefaults(p Platform) (*Settings, bool, error) {
	cfg, err := s.Load()
	if errors.Is(err, ErrNoSettings) {
		return Defaults(p), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Save writes the settings record, replacing the file atomically
func (s *Store) Save(cfg *Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	// Credentials live in this file
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	s.logger.Info("Settings saved", "path", s.path)
	return nil
}

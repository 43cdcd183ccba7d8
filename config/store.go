package config

import (
	"sync"

	"go.kwisper.app/kwisper/hotkey"
)

// Store holds the live configuration behind a lock so settings changes
// apply to running components without a restart.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore wraps a loaded configuration.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: *cfg}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to the configuration and persists it.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
	s.cfg.applyDefaults()
	return s.cfg.Save()
}

// SetShortcut validates and installs a new recording chord. An active
// gesture keeps the chord it started with; the new one applies from the
// next press.
func (s *Store) SetShortcut(chord hotkey.Chord) error {
	if err := chord.Validate(); err != nil {
		return err
	}
	return s.Update(func(c *Config) {
		c.Shortcut = chord
	})
}

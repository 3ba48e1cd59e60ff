// Package prefs holds the enabled flag and selected tier. Setters write
// through to a Backend; a failed write is logged and the in-memory value
// is kept.
package prefs

import (
	"log/slog"
	"sync"

	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region store

// Store is the in-memory preference state. Safe for concurrent use.
// Readers never wait on a save.
type Store struct {
	mu       sync.RWMutex
	enabled  bool
	selected tier.Tier

	saveMu  sync.Mutex // serializes backend writes
	backend Backend
}

// Open loads preferences from b. Load errors and unknown tier ids fall
// back to defaults.
func Open(b Backend) *Store {
	p, err := b.Load()
	if err != nil {
		slog.Error("load preferences failed, using defaults", "error", err)
		p = Defaults()
	}

	t, ok := tier.Lookup(p.Tier)
	if !ok {
		slog.Warn("invalid tier in preferences, replacing with default",
			"tier", string(p.Tier),
			"default", string(tier.Default().ID),
		)
		t = tier.Default()
	}

	return &Store{enabled: p.Enabled, selected: t, backend: b}
}

// #endregion store

// #region getters

// IsEnabled reports whether auto-buy is on.
func (s *Store) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SelectedTier returns the tier to buy.
func (s *Store) SelectedTier() tier.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Current returns the enabled flag and selected tier under one lock.
func (s *Store) Current() (bool, tier.Tier) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled, s.selected
}

// Snapshot returns the current preferences in persisted form.
func (s *Store) Snapshot() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Preferences{Enabled: s.enabled, Tier: s.selected.ID}
}

// #endregion getters

// #region setters

// SetEnabled turns auto-buy on or off and persists the change.
func (s *Store) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	s.persist()
}

// SetSelectedTier changes the tier to buy and persists the change.
func (s *Store) SetSelectedTier(t tier.Tier) {
	s.mu.Lock()
	s.selected = t
	s.mu.Unlock()
	s.persist()
}

// persist writes the state as of taking saveMu, so the last save to run
// always carries the latest values. mu is not held during the write.
func (s *Store) persist() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	p := s.Snapshot()
	if err := s.backend.Save(p); err != nil {
		slog.Error("save preferences failed", "error", err, "enabled", p.Enabled, "tier", string(p.Tier))
	}
}

// #endregion setters

// #region memory-backend

// MemoryBackend keeps preferences in memory. SaveErr, when set, is
// returned from every Save.
type MemoryBackend struct {
	mu      sync.Mutex
	prefs   *Preferences
	saves   int
	SaveErr error
	LoadErr error
}

// NewMemoryBackend returns a backend with nothing saved.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns the last saved preferences or Defaults.
func (m *MemoryBackend) Load() (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return Preferences{}, m.LoadErr
	}
	if m.prefs == nil {
		return Defaults(), nil
	}
	return *m.prefs, nil
}

// Save records p.
func (m *MemoryBackend) Save(p Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.prefs = &p
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// #endregion memory-backend

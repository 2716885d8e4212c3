// Package settings holds the agenda display settings that may change at
// runtime: default event duration, slot granularity, and the agency
// timezone. Handlers read a consistent snapshot through an atomic pointer
// while the watcher swaps in reloaded values.
package settings

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Settings is an immutable snapshot of the display configuration.
type Settings struct {
	// Location is the agency timezone. Day bucketing and "today" checks
	// always use it, never the process-local zone.
	Location *time.Location

	// DefaultDuration is applied to created events; the dialogs do not
	// collect an end time.
	DefaultDuration time.Duration

	// SlotGranularity is the click-target lattice step shared by the week
	// and day views.
	SlotGranularity time.Duration
}

// Store publishes Settings snapshots to concurrent readers.
type Store struct {
	current atomic.Pointer[Settings]
}

// NewStore creates a store holding the initial snapshot.
func NewStore(s Settings) *Store {
	st := &Store{}
	st.current.Store(&s)
	return st
}

// Current returns the latest snapshot. The returned value must not be
// mutated.
func (s *Store) Current() Settings {
	return *s.current.Load()
}

// Replace swaps in a new snapshot.
func (s *Store) Replace(next Settings) {
	s.current.Store(&next)
}

// Build resolves raw config values into a Settings snapshot.
func Build(timezone string, defaultDurationMin, slotGranularityMin int) (Settings, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load timezone %q: %w", timezone, err)
	}
	if defaultDurationMin <= 0 {
		defaultDurationMin = 60
	}
	if slotGranularityMin <= 0 {
		slotGranularityMin = 30
	}
	return Settings{
		Location:        loc,
		DefaultDuration: time.Duration(defaultDurationMin) * time.Minute,
		SlotGranularity: time.Duration(slotGranularityMin) * time.Minute,
	}, nil
}

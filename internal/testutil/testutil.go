// Package testutil provides shared test helpers for setting up cache
// databases and display settings.
package testutil

import (
	"os"
	"testing"

	"github.com/vivenda/agenda/internal/cache"
	"github.com/vivenda/agenda/internal/settings"
)

// TestCache creates a temporary SQLite event cache that is automatically
// cleaned up.
func TestCache(t *testing.T) *cache.DB {
	t.Helper()
	f, err := os.CreateTemp("", "agenda-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := cache.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSettings returns a settings store pinned to the Madrid timezone with
// the default duration and granularity.
func TestSettings(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Build("Europe/Madrid", 60, 30)
	if err != nil {
		t.Fatal(err)
	}
	return settings.NewStore(s)
}

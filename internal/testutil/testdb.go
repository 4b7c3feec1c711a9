// Package testutil provides shared test scaffolding: an isolated,
// migrated repository for any package that needs a real scan_events
// database rather than a mock.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/db"
)

// NewTestRepository returns a Repository backed by a fresh SQLite file
// under t.TempDir(), migrated and ready to use. A real file (not
// ":memory:") is used deliberately: modernc.org/sqlite's in-memory mode
// is per-connection, and the pooled *sql.DB here opens more than one.
func NewTestRepository(t *testing.T) *db.Repository {
	t.Helper()

	dir := t.TempDir()
	repo, err := db.NewRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test repository: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	return repo
}

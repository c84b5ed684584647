// Package testing provides testing utilities for the financeiro project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/lutivix/financeiro/internal/database"
)

// NewTestDB creates a temp-file SQLite database for testing. Returns the
// database instance and an idempotent cleanup function. Temporary files are
// used instead of :memory: so each test gets an isolated database that
// behaves like the real store, WAL mode included.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		_ = db.Close()
		_ = os.Remove(tmpPath)
		_ = os.Remove(tmpPath + "-wal")
		_ = os.Remove(tmpPath + "-shm")
	}
	return db, cleanup
}

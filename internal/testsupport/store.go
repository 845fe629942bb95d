package testsupport

import (
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"labwatch/internal/config"
	"labwatch/internal/results"
)

// MustOpenResults opens a results.Store for tests and registers cleanup.
func MustOpenResults(t testing.TB, cfg *config.Config) *results.Store {
	t.Helper()

	store, err := results.Open(cfg)
	if err != nil {
		t.Fatalf("results.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SetResultsSchemaVersion rewrites the stored schema version of a results
// database, simulating a database created by another release.
func SetResultsSchemaVersion(path string, version int) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}

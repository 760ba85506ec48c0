package testutil

import (
	"testing"

	"filechk/internal/database"
)

// NewTestStore creates an in-memory catalog with the schema applied.
// The store is closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewSQLiteStore(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	if err := store.EnsureSchema(); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return store
}

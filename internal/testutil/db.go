package testutil

import (
	"testing"

	"filesentry/internal/store"
)

// NewTestStore creates an in-memory SQLite store migrated to the latest
// schema. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

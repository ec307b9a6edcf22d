package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mailattic/mailattic/internal/store"
)

// NewTestStore creates a throwaway file-backed SQLiteStore with all
// migrations applied. A file under t.TempDir keeps every pooled
// connection on the same database, which ":memory:" would not.
// The store is closed automatically when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "mailattic.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

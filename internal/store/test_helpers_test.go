package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/factdb/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createWorldStore creates a store holding the shared Skylane world.
func createWorldStore(t *testing.T) (*Store, *testutil.World) {
	t.Helper()
	s := createTestStore(t)
	w := testutil.NewWorld()
	if _, err := s.Save(context.Background(), w.Graph()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	return s, w
}

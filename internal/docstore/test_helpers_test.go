package docstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/gko/internal/outline"
	"github.com/roach88/gko/internal/testutil"
)

var testEpoch = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory named "notes".
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "notes")
	opts = append([]Option{WithClock(testutil.FixedClock(testEpoch))}, opts...)
	s, err := Open(dir, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleTree returns root{a, b{c}}.
func sampleTree(t *testing.T) *outline.Node {
	t.Helper()
	root, err := outline.FromPlainTree([]byte(`[{"content":"a"},{"content":"b","children":[{"content":"c"}]}]`))
	if err != nil {
		t.Fatalf("FromPlainTree() failed: %v", err)
	}
	return root
}

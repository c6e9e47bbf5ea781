package fileio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gko/internal/docstore"
	"github.com/roach88/gko/internal/outline"
	"github.com/roach88/gko/internal/testutil"
)

var testEpoch = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

const sampleTreeJSON = `[{"content":"a"},{"content":"b","children":[{"content":"c"}]}]`

// openSampleStore creates a store named "notes" holding root{a, b{c}}. Each
// dump gets a later start_time.
func openSampleStore(t *testing.T) *docstore.Store {
	t.Helper()
	clock := testutil.NewSteppingClock(testEpoch, time.Second)
	s, err := docstore.Open(filepath.Join(t.TempDir(), "notes"), docstore.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	root, err := outline.FromPlainTree([]byte(sampleTreeJSON))
	require.NoError(t, err)
	require.NoError(t, s.ImportTree(context.Background(), root))
	return s
}

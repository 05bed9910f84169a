package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/slot"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.Get(ctx, "ledger")
	assert.ErrorIs(t, err, slot.ErrNotFound)

	require.NoError(t, s.Put(ctx, "ledger", []byte(`[{"id":"a"}]`)))
	require.NoError(t, s.Put(ctx, "ledger", []byte(`[]`)))

	got, err := s.Get(ctx, "ledger")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "ledger.json", entries[0].Name())
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", `a\b`, ".."} {
		assert.Error(t, s.Put(ctx, key, []byte(`[]`)), "key %q", key)
	}
}

func TestFileStoreCancelledContext(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "ledger", []byte(`[]`)), context.Canceled)
}

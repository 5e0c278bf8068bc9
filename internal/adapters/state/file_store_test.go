package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	blob := []byte(`{"latestKey":"abc"}`)
	require.NoError(t, store.Save(context.Background(), blob))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreSaveReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), []byte("first")))
	require.NoError(t, store.Save(context.Background(), []byte("second")))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file cleaned up after rename")
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), []byte("data")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(context.Background(), []byte("blob")))
	got, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)
}

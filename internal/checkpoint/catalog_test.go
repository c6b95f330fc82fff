package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, b)

	b, err = ParseBackend("sqlite")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	_, err = ParseBackend("hdf5")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "run0001.ckpt", FileName(0, 0, 1))
	assert.Equal(t, "run0003.rank01.ckpt", FileName(2, 1, 4))
}

func TestCatalog_BackendsRoundTrip(t *testing.T) {
	for _, backend := range []Backend{BackendFile, BackendSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			c := NewCatalog(backend, dir)
			defer c.Close()

			st, err := c.Store("task-a", 0, 0, 1)
			require.NoError(t, err)
			require.NoError(t, st.Save(ctx, createTestSnapshot(4)))

			ro := NewCatalog(backend, dir, CatalogReadOnly())
			defer ro.Close()
			rst, err := ro.Store("task-a", 0, 0, 1)
			require.NoError(t, err)
			got, err := rst.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(4), got.Sequence)
			assert.Error(t, rst.Save(ctx, createTestSnapshot(5)))
		})
	}
}

func TestCatalog_ReadOnlyDoesNotCreateFiles(t *testing.T) {
	for _, backend := range []Backend{BackendFile, BackendSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			dir := t.TempDir()
			c := NewCatalog(backend, dir, CatalogReadOnly())
			defer c.Close()

			st, err := c.Store("missing", 0, 0, 1)
			require.NoError(t, err)
			_, err = st.Load(context.Background())
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = os.Stat(filepath.Join(dir, "missing"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

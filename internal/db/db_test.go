package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Initialize())
	return database
}

func TestDB_SetGetRemove(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)

	_, ok, err := database.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, database.Set("k", []byte("v1")))
	require.NoError(t, database.Set("k", []byte("v2")))

	value, ok, err := database.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, database.Remove("k"))
	_, ok, err = database.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, database.Remove("k"), "removing an absent key is not an error")
}

func TestDB_InitializeIsIdempotent(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	require.NoError(t, database.Set("k", []byte("v")))
	require.NoError(t, database.Initialize())

	value, ok, err := database.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

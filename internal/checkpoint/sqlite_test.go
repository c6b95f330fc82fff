package checkpoint

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/mc"
)

// createTestDB opens a checkpoint database in a temp dir.
func createTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	for i := 0; i < 3; i++ {
		db, err := OpenSQLite(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, db.Close())
	}
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/checkpoints.db")
	assert.Error(t, err)
}

func TestSQLiteStore_LoadMissing(t *testing.T) {
	db := createTestDB(t)
	_, err := db.Store(0, 0).Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_KeepsOnlyLatest(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	s := db.Store(0, 0)

	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, s.Save(ctx, createTestSnapshot(seq)))
	}

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Sequence)

	var rows int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM checkpoints").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLiteStore_RunsAreIndependent(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)

	a := createTestSnapshot(1)
	b := createTestSnapshot(5)
	b.Run = 1
	require.NoError(t, db.Store(0, 0).Save(ctx, a))
	require.NoError(t, db.Store(1, 0).Save(ctx, b))

	gotA, err := db.Store(0, 0).Load(ctx)
	require.NoError(t, err)
	gotB, err := db.Store(1, 0).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotA.Sequence)
	assert.Equal(t, int64(5), gotB.Sequence)

	_, err = db.Store(0, 1).Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	_, err := db.db.Exec(`INSERT INTO checkpoints (run, rank, sequence, format_version, checksum, payload) VALUES (0, 0, 1, 1, 'x', 'garbage')`)
	require.NoError(t, err)

	_, err = db.Store(0, 0).Load(ctx)
	require.Error(t, err)
	assert.True(t, mc.IsPersistenceError(err))
}

func TestSQLiteDB_ReadOnlyRefusesSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	rw, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, rw.Store(0, 0).Save(ctx, createTestSnapshot(1)))
	require.NoError(t, rw.Close())

	ro, err := OpenSQLite(path, ReadOnly())
	require.NoError(t, err)
	defer ro.Close()

	got, err := ro.Store(0, 0).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Sequence)

	err = ro.Store(0, 0).Save(ctx, createTestSnapshot(2))
	assert.True(t, mc.IsPersistenceError(err))
}

func TestSQLiteStore_StagedIsInvisibleUntilPromoted(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	s := db.Store(0, 0)
	require.NoError(t, s.Save(ctx, createTestSnapshot(1)))

	staged, err := s.Stage(ctx, createTestSnapshot(2))
	require.NoError(t, err)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Sequence)

	require.NoError(t, staged.Promote(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Sequence)

	var rows int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM checkpoints").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLiteStore_DiscardKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	s := db.Store(0, 0)
	require.NoError(t, s.Save(ctx, createTestSnapshot(1)))

	staged, err := s.Stage(ctx, createTestSnapshot(2))
	require.NoError(t, err)
	require.NoError(t, staged.Discard())

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Sequence)
	assert.Error(t, staged.Promote(ctx), "discarded snapshot cannot be promoted")

	var rows int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM checkpoints").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestOpenSQLite_MigratesVersion1(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	data, err := Encode(createTestSnapshot(3))
	require.NoError(t, err)

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE checkpoints (
			run INTEGER NOT NULL, rank INTEGER NOT NULL, sequence INTEGER NOT NULL,
			format_version INTEGER NOT NULL, checksum TEXT NOT NULL, payload BLOB NOT NULL,
			PRIMARY KEY (run, rank, sequence))`,
		"PRAGMA user_version = 1",
	} {
		_, err := raw.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = raw.Exec(`INSERT INTO checkpoints (run, rank, sequence, format_version, checksum, payload) VALUES (0, 0, 3, 1, ?, ?)`,
		Checksum(data), data)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	got, err := db.Store(0, 0).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Sequence)
}

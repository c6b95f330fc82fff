package checkpoint

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/mcjob/internal/mc"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial checkpoints table
// 2 - staged column for two-phase saves
const currentSchemaVersion = 2

// SQLiteDB holds the checkpoints of all runs of one task.
type SQLiteDB struct {
	db       *sql.DB
	readOnly bool
}

// SQLiteOption configures OpenSQLite.
type SQLiteOption func(*sqliteConfig)

type sqliteConfig struct {
	readOnly bool
}

// ReadOnly opens the database without creating or migrating it.
// Used by merge and status, which must not touch run data.
func ReadOnly() SQLiteOption {
	return func(c *sqliteConfig) {
		c.readOnly = true
	}
}

// OpenSQLite creates or opens the checkpoint database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - FULL synchronous mode so a committed checkpoint survives power loss
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteDB, error) {
	cfg := &sqliteConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.readOnly {
		for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA query_only = ON"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
			}
		}
		return &SQLiteDB{db: db, readOnly: true}, nil
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Store returns the store for one run and rank.
func (d *SQLiteDB) Store(run, rank int) *SQLiteStore {
	return &SQLiteStore{db: d, run: run, rank: rank}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations upgrades databases written by older versions. A version of 0
// means the table was just created from schema.sql and is already current.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	if version == 1 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV2 adds the staged column. Existing rows were written by a single
// Save and are promoted.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`ALTER TABLE checkpoints ADD COLUMN staged INTEGER NOT NULL DEFAULT 0`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// SQLiteStore is the Store of one run and rank inside a SQLiteDB.
type SQLiteStore struct {
	db   *SQLiteDB
	run  int
	rank int
}

// Save inserts the snapshot and deletes older snapshots of the same run and
// rank.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	staged, err := s.Stage(ctx, snap)
	if err != nil {
		return err
	}
	return staged.Promote(ctx)
}

// Stage inserts the snapshot as a staged row. Load ignores it until Promote.
func (s *SQLiteStore) Stage(ctx context.Context, snap *Snapshot) (Staged, error) {
	if s.db.readOnly {
		return nil, mc.NewPersistenceError("save checkpoint", errors.New("database is read-only"))
	}
	data, err := Encode(snap)
	if err != nil {
		return nil, mc.NewPersistenceError("save checkpoint", err)
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run, rank, sequence, format_version, checksum, payload, staged)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(run, rank, sequence) DO UPDATE SET
			format_version = excluded.format_version,
			checksum = excluded.checksum,
			payload = excluded.payload,
			staged = 1
	`, s.run, s.rank, snap.Sequence, snap.FormatVersion, Checksum(data), data)
	if err != nil {
		return nil, mc.NewPersistenceError("save checkpoint: insert", err)
	}
	return &stagedRow{store: s, sequence: snap.Sequence}, nil
}

type stagedRow struct {
	store    *SQLiteStore
	sequence int64
}

// Promote clears the staged flag and deletes every other snapshot of the
// run and rank in a single transaction.
func (r *stagedRow) Promote(ctx context.Context) error {
	s := r.store
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return mc.NewPersistenceError("promote checkpoint: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		UPDATE checkpoints SET staged = 0
		WHERE run = ? AND rank = ? AND sequence = ? AND staged = 1
	`, s.run, s.rank, r.sequence)
	if err != nil {
		return mc.NewPersistenceError("promote checkpoint: update", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return mc.NewPersistenceError("promote checkpoint", fmt.Errorf("staged sequence %d not found", r.sequence))
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM checkpoints WHERE run = ? AND rank = ? AND sequence <> ?
	`, s.run, s.rank, r.sequence)
	if err != nil {
		return mc.NewPersistenceError("promote checkpoint: prune", err)
	}

	if err := tx.Commit(); err != nil {
		return mc.NewPersistenceError("promote checkpoint: commit", err)
	}
	return nil
}

func (r *stagedRow) Discard() error {
	s := r.store
	_, err := s.db.db.Exec(`
		DELETE FROM checkpoints WHERE run = ? AND rank = ? AND sequence = ? AND staged = 1
	`, s.run, s.rank, r.sequence)
	if err != nil {
		return fmt.Errorf("discard staged checkpoint: %w", err)
	}
	return nil
}

// Load returns the promoted snapshot with the highest sequence, or
// ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	var payload []byte
	err := s.db.db.QueryRowContext(ctx, `
		SELECT payload FROM checkpoints
		WHERE run = ? AND rank = ? AND staged = 0
		ORDER BY sequence DESC
		LIMIT 1
	`, s.run, s.rank).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mc.NewPersistenceError(fmt.Sprintf("load checkpoint run=%d rank=%d", s.run, s.rank), err)
	}
	snap, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint run=%d rank=%d: %w", s.run, s.rank, err)
	}
	return snap, nil
}

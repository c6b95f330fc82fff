package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Backend selects the checkpoint storage.
type Backend string

const (
	// BackendFile stores one file per run and rank.
	BackendFile Backend = "file"
	// BackendSQLite stores one SQLite database per task.
	BackendSQLite Backend = "sqlite"
)

// ParseBackend validates a backend name. The empty string selects the file
// backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendFile:
		return BackendFile, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown checkpoint backend %q: must be %q or %q", s, BackendFile, BackendSQLite)
	}
}

// sqliteFileName is the per-task database name.
const sqliteFileName = "checkpoints.db"

// Catalog hands out the stores of all runs below a data directory.
//
// Layout:
//
//	<dir>/<task>/run0001.ckpt          single rank, file backend
//	<dir>/<task>/run0001.rank02.ckpt   parallel-run ranks, file backend
//	<dir>/<task>/checkpoints.db        sqlite backend
//
// Safe for concurrent use.
type Catalog struct {
	backend  Backend
	dir      string
	readOnly bool

	mu  sync.Mutex
	dbs map[string]*SQLiteDB
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// CatalogReadOnly makes the catalog refuse writes and never create files.
func CatalogReadOnly() CatalogOption {
	return func(c *Catalog) {
		c.readOnly = true
	}
}

// NewCatalog creates a catalog rooted at dir.
func NewCatalog(backend Backend, dir string, opts ...CatalogOption) *Catalog {
	c := &Catalog{backend: backend, dir: dir, dbs: make(map[string]*SQLiteDB)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the storage backend.
func (c *Catalog) Backend() Backend {
	return c.backend
}

// Store returns the store for a run and rank of a task. taskDir is the
// task's directory name below the catalog root. ranks is the group size;
// rank suffixes are only used when it is greater than one.
func (c *Catalog) Store(taskDir string, run, rank, ranks int) (Store, error) {
	switch c.backend {
	case BackendFile:
		path := filepath.Join(c.dir, taskDir, FileName(run, rank, ranks))
		var st Store = NewFileStore(path)
		if c.readOnly {
			st = readOnlyStore{st}
		}
		return st, nil
	case BackendSQLite:
		db, err := c.sqlite(taskDir)
		if err != nil {
			return nil, err
		}
		if db == nil {
			return emptyStore{}, nil
		}
		return db.Store(run, rank), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", c.backend)
	}
}

// FileName returns the checkpoint file name of a run and rank.
func FileName(run, rank, ranks int) string {
	if ranks > 1 {
		return fmt.Sprintf("run%04d.rank%02d.ckpt", run+1, rank)
	}
	return fmt.Sprintf("run%04d.ckpt", run+1)
}

func (c *Catalog) sqlite(taskDir string) (*SQLiteDB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.dbs[taskDir]; ok {
		return db, nil
	}

	path := filepath.Join(c.dir, taskDir, sqliteFileName)
	var opts []SQLiteOption
	if c.readOnly {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		opts = append(opts, ReadOnly())
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create task dir: %w", err)
	}

	db, err := OpenSQLite(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database %s: %w", path, err)
	}
	c.dbs[taskDir] = db
	return db, nil
}

// Close closes every database opened by the catalog.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, db := range c.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(c.dbs, name)
	}
	return errors.Join(errs...)
}

var errReadOnly = errors.New("checkpoint catalog is read-only")

// readOnlyStore wraps a store and refuses saves.
type readOnlyStore struct {
	Store
}

func (readOnlyStore) Save(context.Context, *Snapshot) error {
	return errReadOnly
}

func (readOnlyStore) Stage(context.Context, *Snapshot) (Staged, error) {
	return nil, errReadOnly
}

// emptyStore is the store of a task that has no database yet.
type emptyStore struct{}

func (emptyStore) Save(context.Context, *Snapshot) error {
	return errReadOnly
}

func (emptyStore) Stage(context.Context, *Snapshot) (Staged, error) {
	return nil, errReadOnly
}

func (emptyStore) Load(context.Context) (*Snapshot, error) {
	return nil, ErrNotFound
}

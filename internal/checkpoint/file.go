package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/mcjob/internal/mc"
)

// FileStore keeps a snapshot in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save atomically replaces the checkpoint file.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	staged, err := s.Stage(ctx, snap)
	if err != nil {
		return err
	}
	return staged.Promote(ctx)
}

// Stage writes and syncs the snapshot to a temporary file next to the
// checkpoint file. The checkpoint file itself is not touched until Promote.
func (s *FileStore) Stage(ctx context.Context, snap *Snapshot) (Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, mc.NewPersistenceError("save checkpoint", err)
	}
	data, err := Encode(snap)
	if err != nil {
		return nil, mc.NewPersistenceError("save checkpoint", err)
	}
	tmp, err := writeTemp(s.path, data, 0o644)
	if err != nil {
		return nil, mc.NewPersistenceError(fmt.Sprintf("save checkpoint %s", s.path), err)
	}
	return &stagedFile{tmp: tmp, path: s.path}, nil
}

type stagedFile struct {
	tmp  string
	path string
}

func (f *stagedFile) Promote(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		_ = os.Remove(f.tmp)
		return mc.NewPersistenceError("promote checkpoint", err)
	}
	if err := renameSynced(f.tmp, f.path); err != nil {
		_ = os.Remove(f.tmp)
		return mc.NewPersistenceError(fmt.Sprintf("promote checkpoint %s", f.path), err)
	}
	return nil
}

func (f *stagedFile) Discard() error {
	if err := os.Remove(f.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard staged checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint file. Returns ErrNotFound if it does not exist.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, mc.NewPersistenceError("load checkpoint", err)
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mc.NewPersistenceError(fmt.Sprintf("load checkpoint %s", s.path), err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", s.path, err)
	}
	return snap, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it,
// renames it over path and syncs the directory. Readers see either the old
// or the new content, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	if err := renameSynced(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// writeTemp writes data to a synced temporary file in the directory of path
// and returns its name. The file is removed on error.
func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	done := false
	defer func() {
		_ = tmp.Close()
		if !done {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	done = true
	return tmpName, nil
}

func renameSynced(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jpalmerr/tokenwatch/internal/account"
)

// FileStore keeps the account table as a single JSON object on disk.
//
// Save writes to a temporary file in the same directory and renames it over
// the target, so a crash leaves either the old table or the new one.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a [FileStore] for path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and decodes the table. A missing or empty file yields an
// empty table. Unrecognized statuses are normalized to unknown.
func (f *FileStore) Load(ctx context.Context) (account.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return account.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account table %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return account.Table{}, nil
	}

	var table account.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode account table %s: %w", f.path, err)
	}
	if table == nil {
		table = account.Table{}
	}

	for id, p := range table {
		p.Status = p.Status.Normalize()
		if p.Identifier == "" {
			p.Identifier = id
		}
		table[id] = p
	}
	return table, nil
}

// Save encodes the table and atomically replaces the file.
func (f *FileStore) Save(ctx context.Context, table account.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if table == nil {
		table = account.Table{}
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account table: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	return WriteFileAtomic(f.path, data, 0o644)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

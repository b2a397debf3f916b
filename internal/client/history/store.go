package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/filex"
)

// Store persists the whole history list.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// FileStore keeps the history as one JSON document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing file is an empty history; a malformed
// one is reported as ErrPersistence.
func (s *FileStore) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrPersistence, s.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", common.ErrPersistence, s.path, err)
	}
	return entries, nil
}

// Save replaces the document atomically.
func (s *FileStore) Save(_ context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrPersistence, err)
	}
	if err := filex.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	return nil
}

// Package meta persists the per-account metadata file: a single JSON
// object mapping "<id>.session" keys to API credentials and display data.
// Every mutation is a load-modify-save of the whole file under one lock;
// callers treat each load as a snapshot with last-writer-wins semantics.
package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/billylighter/telegrab/internal/model"
)

// StorageError indicates the metadata file could not be read, parsed, or
// written. It is never swallowed: proceeding with stale in-memory state
// would silently lose credentials.
type StorageError struct {
	Path string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("metadata %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err (or any error in its chain) is a
// StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Store is the durable account-id → metadata mapping.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the JSON file at path. The file is
// not required to exist yet, but the path must look like a JSON file.
func NewStore(path string) (*Store, error) {
	if !strings.HasSuffix(path, ".json") {
		return nil, &StorageError{
			Path: path,
			Op:   "open",
			Err:  errors.New("metadata path must end in .json"),
		}
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the whole metadata file. A missing file is an empty mapping.
func (s *Store) Load() (map[string]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[string]model.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.Account{}, nil
		}
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}

	meta := map[string]model.Account{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &StorageError{Path: s.path, Op: "parse", Err: err}
	}
	return meta, nil
}

func (s *Store) save(meta map[string]model.Account) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &StorageError{Path: s.path, Op: "encode", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}

	// Write-then-rename so a crash mid-write cannot truncate the file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// Get returns the metadata record for the given account identity, and
// whether one exists.
func (s *Store) Get(id string) (model.Account, bool, error) {
	meta, err := s.Load()
	if err != nil {
		return model.Account{}, false, err
	}
	acc, ok := meta[model.MetaKey(id)]
	return acc, ok, nil
}

// Put writes (or overwrites) the metadata record for the given account
// identity.
func (s *Store) Put(id string, acc model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.load()
	if err != nil {
		return err
	}
	meta[model.MetaKey(id)] = acc
	return s.save(meta)
}

// Update applies fn to the existing record for id (a zero record if none
// exists yet) and writes the result back.
func (s *Store) Update(id string, fn func(*model.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.load()
	if err != nil {
		return err
	}
	acc := meta[model.MetaKey(id)]
	fn(&acc)
	meta[model.MetaKey(id)] = acc
	return s.save(meta)
}

// Delete removes the record for id. Deleting a missing record is a no-op
// and does not rewrite the file.
func (s *Store) Delete(id string) (model.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.load()
	if err != nil {
		return model.Account{}, false, err
	}
	acc, ok := meta[model.MetaKey(id)]
	if !ok {
		return model.Account{}, false, nil
	}
	delete(meta, model.MetaKey(id))
	if err := s.save(meta); err != nil {
		return model.Account{}, false, err
	}
	return acc, true, nil
}

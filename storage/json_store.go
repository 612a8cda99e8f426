package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytinsight/internal/retry"
)

const schemaVersion = "2.0"

// JSONStore implements Store using a single JSON file. The whole map is held in
// memory and rewritten atomically on every mutation; the file is guarded by an
// advisory lock for the lifetime of the store.
type JSONStore struct {
	path string
	lock *fileLock
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version    string            `json:"version"`
	InstanceID string            `json:"instance_id"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Entries    map[string][]byte `json:"entries"`
}

// LockRetry controls how long NewJSONStore waits for another process to release
// the store file.
var LockRetry = retry.LockPolling()

// NewJSONStore opens the JSON file store at path, creating it if it does not exist.
func NewJSONStore(ctx context.Context, path string) (*JSONStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Backend: "file", Err: ErrInvalidInput}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Backend: "file", Key: path, Err: err}
	}

	s := &JSONStore{
		path: path,
		lock: newFileLock(path),
	}

	if err := s.lock.lock(ctx, LockRetry); err != nil {
		return nil, &StorageError{Op: "lock", Backend: "file", Key: path, Err: err}
	}

	if err := s.load(); err != nil {
		s.lock.unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Backend: "file", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(raw, s.data); err != nil {
		return &StorageError{Op: "read", Backend: "file", Err: ErrStorageCorrupt}
	}
	if s.data.Entries == nil {
		s.data.Entries = make(map[string][]byte)
	}
	if s.data.InstanceID == "" {
		s.data.InstanceID = uuid.NewString()
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = time.Now()

	err := writeFileAtomic(s.path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(s.data)
	})
	if err != nil {
		return &StorageError{Op: "write", Backend: "file", Err: err}
	}
	return nil
}

func newStoreData() *storeData {
	return &storeData{
		Version:    schemaVersion,
		InstanceID: uuid.NewString(),
		UpdatedAt:  time.Now(),
		Entries:    make(map[string][]byte),
	}
}

// InstanceID identifies the store file across process restarts.
func (s *JSONStore) InstanceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.InstanceID
}

func (s *JSONStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, &StorageError{Op: "get", Backend: "file", Key: key, Err: ErrClosed}
	}
	v, ok := s.data.Entries[key]
	if !ok {
		return nil, &StorageError{Op: "get", Backend: "file", Key: key, Err: ErrNotFound}
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *JSONStore) Set(ctx context.Context, key string, value []byte) error {
	if !validKey(key) {
		return &StorageError{Op: "set", Backend: "file", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return &StorageError{Op: "set", Backend: "file", Key: key, Err: ErrClosed}
	}
	v := make([]byte, len(value))
	copy(v, value)
	prev, had := s.data.Entries[key]
	s.data.Entries[key] = v

	if err := s.save(); err != nil {
		if had {
			s.data.Entries[key] = prev
		} else {
			delete(s.data.Entries, key)
		}
		return err
	}
	return nil
}

func (s *JSONStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return &StorageError{Op: "delete", Backend: "file", Key: key, Err: ErrClosed}
	}
	prev, ok := s.data.Entries[key]
	if !ok {
		return nil
	}
	delete(s.data.Entries, key)

	if err := s.save(); err != nil {
		s.data.Entries[key] = prev
		return err
	}
	return nil
}

// Close releases the file lock. The store must not be used afterwards.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return s.lock.unlock()
}

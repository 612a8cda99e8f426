package storage

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store. Useful for tests and one-shot runs where
// nothing needs to survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, &StorageError{Op: "get", Backend: "memory", Key: key, Err: ErrClosed}
	}
	v, ok := s.data[key]
	if !ok {
		return nil, &StorageError{Op: "get", Backend: "memory", Key: key, Err: ErrNotFound}
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if !validKey(key) {
		return &StorageError{Op: "set", Backend: "memory", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &StorageError{Op: "set", Backend: "memory", Key: key, Err: ErrClosed}
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &StorageError{Op: "delete", Backend: "memory", Key: key, Err: ErrClosed}
	}
	delete(s.data, key)
	return nil
}

// Len reports the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

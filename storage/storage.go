// Package storage provides the durable key-value store used by the quota ledger
// and the fetch cache.
//
// The contract is deliberately small: string-keyed get/set/delete of opaque byte
// values. Expiry is the caller's business; backends never expire entries on their
// own.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("storage: store closed")
)

// StorageError wraps storage errors with operation and key context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Backend, storErr.Key, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("get", "set", "delete", "open", ...).
	Op string
	// Backend names the store implementation ("memory", "file", "sqlite", "redis").
	Backend string
	// Key is the key involved, if any.
	Key string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage: %s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is a durable string-keyed byte store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases any resources held by the store.
	Close() error
}

// Kind names a Store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// Options selects and configures a backend for Open.
type Options struct {
	Kind Kind
	// Path is the file path for the file and sqlite backends.
	Path string
	// RedisURL is the connection URL for the redis backend.
	RedisURL string
}

// Open constructs the backend described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemoryStore(), nil
	case KindFile:
		s, err := NewJSONStore(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindSQLite:
		s, err := NewSQLiteStore(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindRedis:
		s, err := NewRedisStore(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, &StorageError{Op: "open", Backend: string(opts.Kind), Err: ErrInvalidInput}
	}
}

func validKey(key string) bool {
	return key != ""
}

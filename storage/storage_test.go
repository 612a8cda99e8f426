package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ytinsight/internal/retry"
)

// exerciseStore runs the Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "quota:ledger", []byte(`{"units":3}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "quota:ledger")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"units":3}` {
		t.Errorf("Get() = %q, want %q", got, `{"units":3}`)
	}

	if err := s.Set(ctx, "quota:ledger", []byte(`{"units":4}`)); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _ = s.Get(ctx, "quota:ledger")
	if string(got) != `{"units":4}` {
		t.Errorf("Get() after overwrite = %q", got)
	}

	if err := s.Delete(ctx, "quota:ledger"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "quota:ledger"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}

	if err := s.Set(ctx, "", []byte("x")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Set(empty key) error = %v, want ErrInvalidInput", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte("abc")
	s.Set(ctx, "k", buf)
	buf[0] = 'z'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: got %q", got)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	s.Close()
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close error = %v, want ErrClosed", err)
	}
}

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := NewJSONStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	s, err := NewJSONStore(ctx, path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	id := s.InstanceID()
	if err := s.Set(ctx, "cache:search:go:50", []byte("payload")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewJSONStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "cache:search:go:50")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get() after reopen = %q, want payload", got)
	}
	if reopened.InstanceID() != id {
		t.Errorf("InstanceID changed across reopen: %q -> %q", id, reopened.InstanceID())
	}
}

func TestJSONStoreFailedSaveLeavesEntriesUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := NewJSONStore(ctx, path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	defer s.Close()
	if err := s.Set(ctx, "a", []byte("old")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// A non-empty directory at the store path makes the final rename fail.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := s.Set(ctx, "b", []byte("new")); err == nil {
		t.Fatal("Set(b) succeeded, want write error")
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(b) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "a", []byte("new")); err == nil {
		t.Fatal("Set(a) succeeded, want write error")
	}
	if got, err := s.Get(ctx, "a"); err != nil || string(got) != "old" {
		t.Errorf("Get(a) = %q, %v, want old", got, err)
	}

	if err := s.Delete(ctx, "a"); err == nil {
		t.Fatal("Delete(a) succeeded, want write error")
	}
	if got, err := s.Get(ctx, "a"); err != nil || string(got) != "old" {
		t.Errorf("Get(a) after failed Delete = %q, %v, want old", got, err)
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewJSONStore(context.Background(), path)
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Fatalf("NewJSONStore() error = %v, want ErrStorageCorrupt", err)
	}

	var storErr *StorageError
	if !errors.As(err, &storErr) || storErr.Backend != "file" {
		t.Errorf("error = %#v, want *StorageError for file backend", err)
	}
}

func TestJSONStoreLockTimeout(t *testing.T) {
	saved := LockRetry
	LockRetry = retry.Policy{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond, Factor: 2}
	defer func() { LockRetry = saved }()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	first, err := NewJSONStore(ctx, path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	defer first.Close()

	if _, err := NewJSONStore(ctx, path); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("second NewJSONStore() error = %v, want ErrLockTimeout", err)
	}
}

func TestJSONStoreEmptyPath(t *testing.T) {
	if _, err := NewJSONStore(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NewJSONStore(\"\") error = %v, want ErrInvalidInput", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	s.Set(ctx, "k", []byte("v"))
	s.Close()

	s, err = NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v; want v, nil", got, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"default memory", Options{}, nil},
		{"memory", Options{Kind: KindMemory}, nil},
		{"file", Options{Kind: KindFile, Path: filepath.Join(dir, "s.json")}, nil},
		{"sqlite", Options{Kind: KindSQLite, Path: filepath.Join(dir, "s.db")}, nil},
		{"file without path", Options{Kind: KindFile}, ErrInvalidInput},
		{"redis without url", Options{Kind: KindRedis}, ErrInvalidInput},
		{"unknown kind", Options{Kind: "etcd"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			s.Close()
		})
	}
}

func TestRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url")
	var storErr *StorageError
	if !errors.As(err, &storErr) || storErr.Backend != "redis" {
		t.Errorf("NewRedisStore(bad url) error = %v, want redis *StorageError", err)
	}
}

func TestStorageErrorMessage(t *testing.T) {
	err := &StorageError{Op: "get", Backend: "memory", Key: "k", Err: ErrNotFound}
	if got, want := err.Error(), `storage: memory get "k": storage: not found`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = &StorageError{Op: "open", Backend: "file", Err: ErrInvalidInput}
	if got, want := err.Error(), "storage: file open: storage: invalid input"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

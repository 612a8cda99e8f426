package ytinsight

import (
	"errors"

	"ytinsight/storage"
	"ytinsight/youtube"
)

// Error handling types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytinsight.ErrChannelNotFound) {
//		fmt.Println("Channel not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var fe *ytinsight.FetchError
//	if errors.As(err, &fe) {
//		fmt.Printf("%s failed for %q: %v\n", fe.Op, fe.Query, fe.Err)
//	}

// Type aliases for convenient error handling.
type (
	// FetchError wraps resolution and upstream failures.
	FetchError = youtube.FetchError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrNotFound matches every resolution or fetch that came back empty,
	// including upstream 404 responses.
	ErrNotFound = youtube.ErrNotFound
	// ErrChannelNotFound indicates a channel reference resolved to nothing.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrInvalidQuery indicates the input could not be mapped to any entity.
	ErrInvalidQuery = youtube.ErrInvalidQuery
	// ErrNoVideos indicates a valid query that yielded zero videos.
	ErrNoVideos = youtube.ErrNoVideos

	// Storage errors
	// ErrEntryNotFound indicates a key is absent from the store.
	ErrEntryNotFound = storage.ErrNotFound
	// ErrInvalidInput indicates invalid input was provided to a store.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring the store file lock.
	ErrLockTimeout = storage.ErrLockTimeout
	// ErrClosed indicates use of a closed store.
	ErrClosed = storage.ErrClosed
)

// IsNotFound reports whether err means the requested channel, playlist,
// search or store entry does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, youtube.ErrNotFound) || errors.Is(err, storage.ErrNotFound)
}

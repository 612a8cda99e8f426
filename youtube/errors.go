package youtube

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for resolution and fetch operations.
var (
	// ErrNotFound is the base of every "nothing there" condition.
	ErrNotFound = errors.New("youtube: not found")

	// ErrChannelNotFound indicates a channel token resolved to nothing.
	ErrChannelNotFound = fmt.Errorf("youtube: channel not found: %w", ErrNotFound)

	// ErrInvalidQuery indicates the input could not be mapped to any entity.
	ErrInvalidQuery = fmt.Errorf("youtube: invalid query: %w", ErrNotFound)

	// ErrNoVideos indicates a valid query that yielded zero items.
	ErrNoVideos = fmt.Errorf("youtube: no videos found: %w", ErrNotFound)
)

// FetchError wraps an upstream or resolution failure with the operation and
// the query it was made for. Use errors.As() to extract it:
//
//	var fe *youtube.FetchError
//	if errors.As(err, &fe) {
//		fmt.Printf("%s failed for %q: %v\n", fe.Op, fe.Query, fe.Err)
//	}
//
// An HTTP 404 from the Data API also matches ErrNotFound.
type FetchError struct {
	// Op is the operation that failed ("resolve", "search", "playlist", "hydrate", ...).
	Op string
	// Query is the input or resolved query involved.
	Query string
	// Err is the underlying error.
	Err error
}

func (e *FetchError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("youtube: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("youtube: %s %q: %v", e.Op, e.Query, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports upstream 404 responses as ErrNotFound.
func (e *FetchError) Is(target error) bool {
	return target == ErrNotFound && isHTTPStatus(e.Err, http.StatusNotFound)
}

func isHTTPStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

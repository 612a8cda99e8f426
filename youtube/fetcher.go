package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	ytapi "google.golang.org/api/youtube/v3"
)

// ResultCache memoizes whole-query results. *ledger.Cache implements it.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, v any) bool
	PutJSON(ctx context.Context, key string, v any)
}

// Result is the raw outcome of one fetch.
type Result struct {
	Query  Query          `json:"query"`
	Videos []*ytapi.Video `json:"videos"`
	// Channel is set for channel queries.
	Channel *ytapi.Channel `json:"channel,omitempty"`
	// Exhausted is true when fewer than the requested count of videos came
	// back, either because listing ran out or hydration dropped ids.
	Exhausted bool `json:"exhausted"`
}

// Fetcher walks paginated results and hydrates video details. Requests are
// issued one at a time so quota charges reach the ledger in order.
type Fetcher struct {
	api   API
	cache ResultCache
}

// NewFetcher creates a fetcher. cache may be nil.
func NewFetcher(api API, cache ResultCache) *Fetcher {
	return &Fetcher{api: api, cache: cache}
}

// Fetch collects up to n videos for q. Fewer than n is not an error when
// upstream runs out first; zero is ErrNoVideos.
func (f *Fetcher) Fetch(ctx context.Context, q Query, n int) (*Result, error) {
	if n <= 0 {
		return nil, &FetchError{Op: "fetch", Query: q.String(), Err: fmt.Errorf("%w: count must be positive", ErrInvalidQuery)}
	}

	key := "fetch:" + q.Key() + ":" + strconv.Itoa(n)
	if f.cache != nil {
		var cached Result
		if f.cache.GetJSON(ctx, key, &cached) {
			log.Debug().Str("component", "youtube").Str("query", q.String()).Msg("fetch served from cache")
			return &cached, nil
		}
	}

	res := &Result{Query: q}
	var ids []string
	var err error

	switch q.Kind {
	case KindPlaylist:
		ids, err = f.walkPlaylist(ctx, q.ID, n)
	case KindChannel:
		ids, err = f.walkChannel(ctx, res, n)
	default:
		ids, err = f.collect(ctx, n, func(ctx context.Context, token string, max int) (IDPage, error) {
			return f.api.SearchVideos(ctx, SearchParams{Query: q.Term, PageToken: token, MaxResults: max})
		})
	}
	if err != nil {
		return nil, &FetchError{Op: "fetch", Query: q.String(), Err: err}
	}
	if len(ids) == 0 {
		return nil, &FetchError{Op: "fetch", Query: q.String(), Err: ErrNoVideos}
	}

	res.Videos, err = f.Hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	res.Exhausted = len(res.Videos) < n

	log.Info().Str("component", "youtube").Str("query", q.String()).
		Int("requested", n).Int("videos", len(res.Videos)).Bool("exhausted", res.Exhausted).
		Msg("fetch complete")

	if f.cache != nil {
		f.cache.PutJSON(ctx, key, res)
	}
	return res, nil
}

// Hydrate loads full video items in batches of MaxPageSize ids, preserving the
// order of ids. Ids upstream no longer knows are dropped.
func (f *Fetcher) Hydrate(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	byID := make(map[string]*ytapi.Video, len(ids))
	for start := 0; start < len(ids); start += MaxPageSize {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Op: "hydrate", Err: err}
		}
		end := min(start+MaxPageSize, len(ids))
		items, err := f.api.Videos(ctx, ids[start:end])
		if err != nil {
			return nil, &FetchError{Op: "hydrate", Err: err}
		}
		for _, v := range items {
			if v != nil {
				byID[v.Id] = v
			}
		}
	}

	out := make([]*ytapi.Video, 0, len(byID))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
			delete(byID, id)
		}
	}
	return out, nil
}

// Trending pages the most-popular chart for region. Results are never cached.
func (f *Fetcher) Trending(ctx context.Context, region, category string, n int) ([]*ytapi.Video, error) {
	if n <= 0 {
		return nil, &FetchError{Op: "trending", Query: region, Err: fmt.Errorf("%w: count must be positive", ErrInvalidQuery)}
	}

	var out []*ytapi.Video
	seen := make(map[string]bool)
	token := ""
	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Op: "trending", Query: region, Err: err}
		}
		page, err := f.api.MostPopular(ctx, region, category, token, min(MaxPageSize, n-len(out)))
		if err != nil {
			return nil, &FetchError{Op: "trending", Query: region, Err: err}
		}
		for _, v := range page.Items {
			if v == nil || seen[v.Id] {
				continue
			}
			seen[v.Id] = true
			out = append(out, v)
			if len(out) == n {
				break
			}
		}
		if page.NextPageToken == "" || page.NextPageToken == token {
			break
		}
		token = page.NextPageToken
	}

	if len(out) == 0 {
		return nil, &FetchError{Op: "trending", Query: region, Err: ErrNoVideos}
	}
	return out, nil
}

// walkChannel prefers the channel's uploads playlist and falls back to a
// search restricted to the channel when that yields nothing.
func (f *Fetcher) walkChannel(ctx context.Context, res *Result, n int) ([]string, error) {
	channelID := res.Query.ID
	channels, err := f.api.Channels(ctx, []string{channelID})
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 || channels[0] == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	ch := channels[0]
	res.Channel = ch
	if res.Query.Title == "" && ch.Snippet != nil {
		res.Query.Title = ch.Snippet.Title
	}

	if uploads := uploadsPlaylist(ch); uploads != "" {
		ids, err := f.walkPlaylist(ctx, uploads, n)
		switch {
		case err == nil && len(ids) > 0:
			return ids, nil
		case err != nil && !isHTTPStatus(err, http.StatusNotFound):
			return nil, err
		}
		log.Debug().Str("component", "youtube").Str("channel", channelID).Msg("uploads feed empty, searching channel")
	}

	return f.collect(ctx, n, func(ctx context.Context, token string, max int) (IDPage, error) {
		return f.api.SearchVideos(ctx, SearchParams{ChannelID: channelID, PageToken: token, MaxResults: max})
	})
}

func (f *Fetcher) walkPlaylist(ctx context.Context, playlistID string, n int) ([]string, error) {
	return f.collect(ctx, n, func(ctx context.Context, token string, max int) (IDPage, error) {
		return f.api.PlaylistItems(ctx, playlistID, token, max)
	})
}

// collect requests pages until n distinct ids are gathered or the cursor ends.
// The context is checked before each page.
func (f *Fetcher) collect(ctx context.Context, n int, page func(ctx context.Context, token string, max int) (IDPage, error)) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	token := ""

	for len(ids) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := page(ctx, token, min(MaxPageSize, n-len(ids)))
		if err != nil {
			return nil, err
		}
		for _, id := range p.IDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			if len(ids) == n {
				break
			}
		}
		if p.NextPageToken == "" || p.NextPageToken == token {
			break
		}
		token = p.NextPageToken
	}
	return ids, nil
}

func uploadsPlaylist(ch *ytapi.Channel) string {
	if ch.ContentDetails == nil || ch.ContentDetails.RelatedPlaylists == nil {
		return ""
	}
	return ch.ContentDetails.RelatedPlaylists.Uploads
}

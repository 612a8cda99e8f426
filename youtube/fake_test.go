package youtube

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	ytapi "google.golang.org/api/youtube/v3"
)

// fakeAPI is an in-memory API. Pages are served from id lists using the offset
// as the page token.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	handles       map[string]*ytapi.Channel
	channelSearch map[string][]string
	channels      map[string]*ytapi.Channel
	playlists     map[string][]string
	search        map[string][]string
	channelVideos map[string][]string
	videos        map[string]*ytapi.Video
	popular       []*ytapi.Video

	// pageCap limits page size below what the caller asks for.
	pageCap int
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		handles:       map[string]*ytapi.Channel{},
		channelSearch: map[string][]string{},
		channels:      map[string]*ytapi.Channel{},
		playlists:     map[string][]string{},
		search:        map[string][]string{},
		channelVideos: map[string][]string{},
		videos:        map[string]*ytapi.Video{},
	}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAPI) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) page(ids []string, token string, max int) IDPage {
	if f.pageCap > 0 && max > f.pageCap {
		max = f.pageCap
	}
	start, _ := strconv.Atoi(token)
	if start >= len(ids) {
		return IDPage{}
	}
	end := min(start+max, len(ids))
	p := IDPage{IDs: ids[start:end]}
	if end < len(ids) {
		p.NextPageToken = strconv.Itoa(end)
	}
	return p
}

func (f *fakeAPI) SearchVideos(ctx context.Context, p SearchParams) (IDPage, error) {
	if err := f.record("search"); err != nil {
		return IDPage{}, err
	}
	if p.ChannelID != "" {
		return f.page(f.channelVideos[p.ChannelID], p.PageToken, p.MaxResults), nil
	}
	return f.page(f.search[p.Query], p.PageToken, p.MaxResults), nil
}

func (f *fakeAPI) SearchChannels(ctx context.Context, term string, max int) ([]string, error) {
	if err := f.record("searchChannels"); err != nil {
		return nil, err
	}
	return f.channelSearch[term], nil
}

func (f *fakeAPI) PlaylistItems(ctx context.Context, playlistID, pageToken string, max int) (IDPage, error) {
	if err := f.record("playlistItems"); err != nil {
		return IDPage{}, err
	}
	return f.page(f.playlists[playlistID], pageToken, max), nil
}

func (f *fakeAPI) Videos(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	if err := f.record("videos"); err != nil {
		return nil, err
	}
	if len(ids) > MaxPageSize {
		return nil, fmt.Errorf("batch of %d ids exceeds %d", len(ids), MaxPageSize)
	}
	var out []*ytapi.Video
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeAPI) Channels(ctx context.Context, ids []string) ([]*ytapi.Channel, error) {
	if err := f.record("channels"); err != nil {
		return nil, err
	}
	var out []*ytapi.Channel
	for _, id := range ids {
		if ch, ok := f.channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeAPI) ChannelByHandle(ctx context.Context, handle string) (*ytapi.Channel, error) {
	if err := f.record("channelByHandle"); err != nil {
		return nil, err
	}
	return f.handles[handle], nil
}

func (f *fakeAPI) MostPopular(ctx context.Context, region, category, pageToken string, max int) (VideoPage, error) {
	if err := f.record("mostPopular"); err != nil {
		return VideoPage{}, err
	}
	ids := make([]string, len(f.popular))
	byID := map[string]*ytapi.Video{}
	for i, v := range f.popular {
		ids[i] = v.Id
		byID[v.Id] = v
	}
	p := f.page(ids, pageToken, max)
	out := VideoPage{NextPageToken: p.NextPageToken}
	for _, id := range p.IDs {
		out.Items = append(out.Items, byID[id])
	}
	return out, nil
}

// addVideos registers n videos with ids prefix0..prefixN-1 and returns the ids.
func (f *fakeAPI) addVideos(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		id := fmt.Sprintf("%s%d", prefix, i)
		ids[i] = id
		f.videos[id] = &ytapi.Video{Id: id, Snippet: &ytapi.VideoSnippet{Title: "video " + id}}
	}
	return ids
}

func channelWithUploads(id, title, uploads string) *ytapi.Channel {
	return &ytapi.Channel{
		Id:      id,
		Snippet: &ytapi.ChannelSnippet{Title: title},
		ContentDetails: &ytapi.ChannelContentDetails{
			RelatedPlaylists: &ytapi.ChannelContentDetailsRelatedPlaylists{Uploads: uploads},
		},
	}
}

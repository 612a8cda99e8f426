package youtube

import (
	"context"

	ytapi "google.golang.org/api/youtube/v3"

	"ytinsight/ledger"
)

// Costs is the quota price of each endpoint, in units per call.
type Costs struct {
	Search        int
	PlaylistItems int
	Videos        int
	Channels      int
	MostPopular   int
}

// DefaultCosts returns the Data API's published prices. A videos.list call
// costs the same for one id or fifty.
func DefaultCosts() Costs {
	return Costs{
		Search:        100,
		PlaylistItems: 1,
		Videos:        1,
		Channels:      1,
		MostPopular:   1,
	}
}

// Charger records quota consumption. *ledger.Ledger implements it.
type Charger interface {
	Charge(ctx context.Context, cost int) ledger.Usage
}

// MeteredAPI charges the quota ledger before delegating each call.
type MeteredAPI struct {
	next    API
	charger Charger
	costs   Costs
}

// Metered wraps api so every call is charged to charger at the given costs.
func Metered(api API, charger Charger, costs Costs) *MeteredAPI {
	return &MeteredAPI{next: api, charger: charger, costs: costs}
}

func (m *MeteredAPI) charge(ctx context.Context, cost int) {
	m.charger.Charge(ctx, cost)
}

func (m *MeteredAPI) SearchVideos(ctx context.Context, p SearchParams) (IDPage, error) {
	m.charge(ctx, m.costs.Search)
	return m.next.SearchVideos(ctx, p)
}

func (m *MeteredAPI) SearchChannels(ctx context.Context, term string, max int) ([]string, error) {
	m.charge(ctx, m.costs.Search)
	return m.next.SearchChannels(ctx, term, max)
}

func (m *MeteredAPI) PlaylistItems(ctx context.Context, playlistID, pageToken string, max int) (IDPage, error) {
	m.charge(ctx, m.costs.PlaylistItems)
	return m.next.PlaylistItems(ctx, playlistID, pageToken, max)
}

func (m *MeteredAPI) Videos(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	m.charge(ctx, m.costs.Videos)
	return m.next.Videos(ctx, ids)
}

func (m *MeteredAPI) Channels(ctx context.Context, ids []string) ([]*ytapi.Channel, error) {
	m.charge(ctx, m.costs.Channels)
	return m.next.Channels(ctx, ids)
}

func (m *MeteredAPI) ChannelByHandle(ctx context.Context, handle string) (*ytapi.Channel, error) {
	m.charge(ctx, m.costs.Channels)
	return m.next.ChannelByHandle(ctx, handle)
}

func (m *MeteredAPI) MostPopular(ctx context.Context, region, category, pageToken string, max int) (VideoPage, error) {
	m.charge(ctx, m.costs.MostPopular)
	return m.next.MostPopular(ctx, region, category, pageToken, max)
}

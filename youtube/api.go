// Package youtube talks to the YouTube Data API v3: it resolves free-form
// queries to channels, playlists or searches and walks paginated results under
// quota control.
//
// Raw items are the Data API's own *youtube.Video and *youtube.Channel types;
// the videos package turns them into records.
package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// MaxPageSize is the largest page or id batch the Data API accepts.
const MaxPageSize = 50

// IDPage is one page of ids and the cursor for the next one.
type IDPage struct {
	IDs           []string
	NextPageToken string
}

// VideoPage is one page of full video items.
type VideoPage struct {
	Items         []*ytapi.Video
	NextPageToken string
}

// SearchParams narrows a video search.
type SearchParams struct {
	// Query is the search term. May be empty when ChannelID is set.
	Query string
	// ChannelID restricts results to one channel, newest first.
	ChannelID  string
	PageToken  string
	MaxResults int
}

// API is the subset of the Data API the pipeline uses. Every method is one
// upstream call.
type API interface {
	SearchVideos(ctx context.Context, p SearchParams) (IDPage, error)
	SearchChannels(ctx context.Context, term string, max int) ([]string, error)
	PlaylistItems(ctx context.Context, playlistID, pageToken string, max int) (IDPage, error)
	Videos(ctx context.Context, ids []string) ([]*ytapi.Video, error)
	Channels(ctx context.Context, ids []string) ([]*ytapi.Channel, error)
	// ChannelByHandle returns nil, nil when the handle is unknown.
	ChannelByHandle(ctx context.Context, handle string) (*ytapi.Channel, error)
	MostPopular(ctx context.Context, region, category, pageToken string, max int) (VideoPage, error)
}

var (
	videoParts   = []string{"snippet", "contentDetails", "statistics"}
	channelParts = []string{"snippet", "statistics", "contentDetails", "brandingSettings"}
)

// DataAPI implements API on the generated Data API v3 client.
type DataAPI struct {
	service *ytapi.Service
}

// NewDataAPI creates the Data API client. Pass option.WithHTTPClient with the
// key-injecting client from the http package, and option.WithEndpoint in tests.
func NewDataAPI(ctx context.Context, opts ...option.ClientOption) (*DataAPI, error) {
	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataAPI{service: service}, nil
}

func (a *DataAPI) SearchVideos(ctx context.Context, p SearchParams) (IDPage, error) {
	call := a.service.Search.List([]string{"id"}).
		Type("video").
		MaxResults(int64(clampPage(p.MaxResults))).
		Context(ctx)
	if p.Query != "" {
		call = call.Q(p.Query)
	}
	if p.ChannelID != "" {
		call = call.ChannelId(p.ChannelID).Order("date")
	}
	if p.PageToken != "" {
		call = call.PageToken(p.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return IDPage{}, err
	}

	page := IDPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			page.IDs = append(page.IDs, item.Id.VideoId)
		}
	}
	return page, nil
}

func (a *DataAPI) SearchChannels(ctx context.Context, term string, max int) ([]string, error) {
	resp, err := a.service.Search.List([]string{"id"}).
		Q(term).
		Type("channel").
		MaxResults(int64(clampPage(max))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			ids = append(ids, item.Id.ChannelId)
		}
	}
	return ids, nil
}

func (a *DataAPI) PlaylistItems(ctx context.Context, playlistID, pageToken string, max int) (IDPage, error) {
	call := a.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(int64(clampPage(max))).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return IDPage{}, err
	}

	page := IDPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			page.IDs = append(page.IDs, item.ContentDetails.VideoId)
		}
	}
	return page, nil
}

func (a *DataAPI) Videos(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	resp, err := a.service.Videos.List(videoParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *DataAPI) Channels(ctx context.Context, ids []string) ([]*ytapi.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	resp, err := a.service.Channels.List(channelParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *DataAPI) ChannelByHandle(ctx context.Context, handle string) (*ytapi.Channel, error) {
	resp, err := a.service.Channels.List(channelParts).ForHandle(handle).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items[0], nil
}

func (a *DataAPI) MostPopular(ctx context.Context, region, category, pageToken string, max int) (VideoPage, error) {
	call := a.service.Videos.List(videoParts).
		Chart("mostPopular").
		MaxResults(int64(clampPage(max))).
		Context(ctx)
	if region != "" {
		call = call.RegionCode(region)
	}
	if category != "" {
		call = call.VideoCategoryId(category)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return VideoPage{}, err
	}
	return VideoPage{Items: resp.Items, NextPageToken: resp.NextPageToken}, nil
}

func clampPage(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

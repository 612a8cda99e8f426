// Package videos turns raw Data API items into canonical records.
//
// Every function here is pure: no network, no quota, no logging. Missing or
// malformed upstream fields degrade to zero values instead of failing.
package videos

import "time"

// Record is the normalized representation of one video plus derived fields.
// IsShort and IsOutlier are computed once by Normalize and never changed.
type Record struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`

	Views             int64  `json:"views"`
	ViewsFormatted    string `json:"views_formatted"`
	Likes             int64  `json:"likes"`
	LikesFormatted    string `json:"likes_formatted"`
	Comments          int64  `json:"comments"`
	CommentsFormatted string `json:"comments_formatted"`

	// EngagementRate is (likes+comments)/views*100, two decimals, 0 without views.
	EngagementRate float64 `json:"engagement_rate"`

	// Tags keep upstream order; duplicates are allowed.
	Tags []string `json:"tags"`

	// PublishedAt is zero when upstream sent no parsable timestamp.
	PublishedAt   time.Time `json:"published_at"`
	PublishedDate string    `json:"published_date"`
	TimeAgo       string    `json:"time_ago"`

	DurationSeconds   int    `json:"duration_seconds"`
	DurationFormatted string `json:"duration_formatted"`

	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`

	IsShort   bool `json:"is_short"`
	IsOutlier bool `json:"is_outlier"`
}

// HasPublishTime reports whether the publish timestamp was parsable.
func (r Record) HasPublishTime() bool { return !r.PublishedAt.IsZero() }

// ChannelStats describes the channel a query resolved to.
type ChannelStats struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Subscribers is 0 when the channel hides its count.
	Subscribers          int64  `json:"subscribers"`
	SubscribersFormatted string `json:"subscribers_formatted"`
	SubscribersHidden    bool   `json:"subscribers_hidden"`
	Views                int64  `json:"views"`
	ViewsFormatted       string `json:"views_formatted"`
	VideoCount           int64  `json:"video_count"`
	VideoCountFormatted  string `json:"video_count_formatted"`

	CustomURL   string `json:"custom_url"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
	BannerURL   string `json:"banner_url"`
}

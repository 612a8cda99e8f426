package videos

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	ytapi "google.golang.org/api/youtube/v3"
)

// Options controls the derived fields.
type Options struct {
	// Subscribers is the channel's subscriber count, 0 when unknown.
	Subscribers int64
	// OutlierViewRatio flags a video whose views exceed this multiple of
	// Subscribers, when Subscribers is known.
	OutlierViewRatio float64
	// OutlierEngagement flags a video whose engagement rate exceeds this,
	// when Subscribers is unknown.
	OutlierEngagement float64
	// ShortMaxSeconds is the longest duration still counted as a short.
	ShortMaxSeconds int
	// Now anchors TimeAgo.
	Now func() time.Time
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		OutlierViewRatio:  1.5,
		OutlierEngagement: 12,
		ShortMaxSeconds:   60,
		Now:               time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.OutlierViewRatio <= 0 {
		o.OutlierViewRatio = d.OutlierViewRatio
	}
	if o.OutlierEngagement <= 0 {
		o.OutlierEngagement = d.OutlierEngagement
	}
	if o.ShortMaxSeconds <= 0 {
		o.ShortMaxSeconds = d.ShortMaxSeconds
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Normalize maps one raw item to a Record. Zero-valued options fall back to
// DefaultOptions.
func Normalize(v *ytapi.Video, opts Options) Record {
	opts = opts.withDefaults()
	r := Record{ID: v.Id}

	if s := v.Snippet; s != nil {
		r.Title = s.Title
		r.Description = s.Description
		r.ThumbnailURL = BestThumbnail(s.Thumbnails)
		r.ChannelID = s.ChannelId
		r.ChannelTitle = s.ChannelTitle
		r.Tags = append([]string(nil), s.Tags...)
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			r.PublishedAt = t
			r.PublishedDate = t.Format("Jan 2, 2006")
			r.TimeAgo = humanize.RelTime(t, opts.Now(), "ago", "from now")
		}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}

	if st := v.Statistics; st != nil {
		r.Views = toInt64(st.ViewCount)
		r.Likes = toInt64(st.LikeCount)
		r.Comments = toInt64(st.CommentCount)
	}
	r.ViewsFormatted = FormatCount(r.Views)
	r.LikesFormatted = FormatCount(r.Likes)
	r.CommentsFormatted = FormatCount(r.Comments)
	r.EngagementRate = EngagementRate(r.Views, r.Likes, r.Comments)

	if cd := v.ContentDetails; cd != nil {
		r.DurationSeconds = ParseDuration(cd.Duration)
	}
	r.DurationFormatted = FormatDuration(r.DurationSeconds)

	r.IsShort = r.DurationSeconds <= opts.ShortMaxSeconds
	r.IsOutlier = IsOutlier(r.Views, r.EngagementRate, opts)
	return r
}

// NormalizeAll maps items in order, skipping nil entries.
func NormalizeAll(items []*ytapi.Video, opts Options) []Record {
	out := make([]Record, 0, len(items))
	for _, v := range items {
		if v != nil {
			out = append(out, Normalize(v, opts))
		}
	}
	return out
}

// NormalizeChannel maps a raw channel. It returns nil for a nil channel.
func NormalizeChannel(ch *ytapi.Channel) *ChannelStats {
	if ch == nil {
		return nil
	}

	cs := &ChannelStats{ID: ch.Id}
	if s := ch.Snippet; s != nil {
		cs.Title = s.Title
		cs.CustomURL = s.CustomUrl
		cs.Description = s.Description
		cs.AvatarURL = BestThumbnail(s.Thumbnails)
	}
	if st := ch.Statistics; st != nil {
		cs.SubscribersHidden = st.HiddenSubscriberCount
		if !st.HiddenSubscriberCount {
			cs.Subscribers = toInt64(st.SubscriberCount)
		}
		cs.Views = toInt64(st.ViewCount)
		cs.VideoCount = toInt64(st.VideoCount)
	}
	if b := ch.BrandingSettings; b != nil && b.Image != nil {
		cs.BannerURL = b.Image.BannerExternalUrl
	}

	cs.SubscribersFormatted = FormatCount(cs.Subscribers)
	cs.ViewsFormatted = FormatCount(cs.Views)
	cs.VideoCountFormatted = FormatCount(cs.VideoCount)
	return cs
}

// IsOutlier applies the view-ratio rule when the subscriber count is known and
// the engagement rule otherwise.
func IsOutlier(views int64, engagementRate float64, opts Options) bool {
	opts = opts.withDefaults()
	if opts.Subscribers > 0 {
		return float64(views) > opts.OutlierViewRatio*float64(opts.Subscribers)
	}
	return engagementRate > opts.OutlierEngagement
}

// EngagementRate returns (likes+comments)/views*100 rounded to two decimals,
// or 0 when views is 0.
func EngagementRate(views, likes, comments int64) float64 {
	if views <= 0 {
		return 0
	}
	rate := float64(likes+comments) / float64(views) * 100
	return math.Round(rate*100) / 100
}

var durationRegex = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration parses an ISO-8601 duration such as "PT1H2M3S". Every
// component is optional; input that does not match yields 0.
func ParseDuration(s string) int {
	m := durationRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	units := [4]int{86400, 3600, 60, 1}
	total := 0
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatCount renders a count compactly: 999, 1.5K, 2M, 3.1B.
func FormatCount(n int64) string {
	s := humanize.SIWithDigits(float64(n), 1, "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.Replace(s, "k", "K", 1)
	s = strings.Replace(s, "G", "B", 1)
	return s
}

// thumbnailOrder lists quality variants from best to worst.
var thumbnailOrder = []func(*ytapi.ThumbnailDetails) *ytapi.Thumbnail{
	func(t *ytapi.ThumbnailDetails) *ytapi.Thumbnail { return t.Maxres },
	func(t *ytapi.ThumbnailDetails) *ytapi.Thumbnail { return t.Standard },
	func(t *ytapi.ThumbnailDetails) *ytapi.Thumbnail { return t.High },
	func(t *ytapi.ThumbnailDetails) *ytapi.Thumbnail { return t.Medium },
	func(t *ytapi.ThumbnailDetails) *ytapi.Thumbnail { return t.Default },
}

// BestThumbnail returns the URL of the highest-resolution variant present.
func BestThumbnail(td *ytapi.ThumbnailDetails) string {
	if td == nil {
		return ""
	}
	for _, pick := range thumbnailOrder {
		if th := pick(td); th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func toInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// Package gap compares the topics of a channel's videos with those of a
// trending set and recommends trending topics the channel does not cover.
package gap

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"ytinsight/videos"
)

const (
	ChannelTopN        = 30
	TrendingTopN       = 50
	MaxMissing         = 15
	MaxRecommendations = 5
)

// Topic is a tag or title bigram and how often it occurred.
type Topic struct {
	Topic     string `json:"topic"`
	Frequency int    `json:"frequency"`
}

// MissingTopic is a trending topic absent from the channel's top topics.
type MissingTopic struct {
	Topic          string  `json:"topic"`
	Frequency      int     `json:"frequency"`
	TrendScore     int     `json:"trend_score"`
	PotentialViews float64 `json:"potential_views"`
}

// Recommendation is a missing topic worth covering.
type Recommendation struct {
	Topic          string `json:"topic"`
	Reason         string `json:"reason"`
	PotentialViews string `json:"potential_views"`
}

// Result is computed per (channel set, trending set) pair.
type Result struct {
	MissingTopics     []MissingTopic   `json:"missing_topics"`
	ChannelTopics     []Topic          `json:"channel_topics"`
	TrendingTopics    []Topic          `json:"trending_topics"`
	OverlapPercentage int              `json:"overlap_percentage"`
	Recommendations   []Recommendation `json:"recommendations"`
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// ExtractTopics counts every tag and title bigram in records, most frequent
// first. Ties are ordered alphabetically.
//
// Tags are lower-cased and trimmed, and kept when longer than two characters.
// Title words are lower-cased with punctuation removed; words of four or more
// characters are kept and each adjacent pair of kept words is one bigram.
func ExtractTopics(records []videos.Record) []Topic {
	counts := make(map[string]int)
	for _, r := range records {
		for _, tag := range r.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if utf8.RuneCountInString(tag) > 2 {
				counts[tag]++
			}
		}
		words := titleWords(r.Title)
		for i := 0; i+1 < len(words); i++ {
			counts[words[i]+" "+words[i+1]]++
		}
	}

	topics := make([]Topic, 0, len(counts))
	for t, n := range counts {
		topics = append(topics, Topic{Topic: t, Frequency: n})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Frequency != topics[j].Frequency {
			return topics[i].Frequency > topics[j].Frequency
		}
		return topics[i].Topic < topics[j].Topic
	})
	return topics
}

func titleWords(title string) []string {
	clean := punctuation.ReplaceAllString(strings.ToLower(title), "")
	var words []string
	for _, w := range strings.Fields(clean) {
		if utf8.RuneCountInString(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

// Analyze computes the gap between channel and trending.
func Analyze(channel, trending []videos.Record) Result {
	res := Result{
		ChannelTopics:   top(ExtractTopics(channel), ChannelTopN),
		TrendingTopics:  top(ExtractTopics(trending), TrendingTopN),
		MissingTopics:   []MissingTopic{},
		Recommendations: []Recommendation{},
	}

	covered := make(map[string]bool, len(res.ChannelTopics))
	for _, t := range res.ChannelTopics {
		covered[t.Topic] = true
	}

	overlap := 0
	for _, t := range res.TrendingTopics {
		if covered[t.Topic] {
			overlap++
			continue
		}
		potential := potentialViews(t.Topic, trending)
		res.MissingTopics = append(res.MissingTopics, MissingTopic{
			Topic:          t.Topic,
			Frequency:      t.Frequency,
			PotentialViews: potential,
			TrendScore:     int(math.Round(float64(t.Frequency)*10 + potential/10000)),
		})
	}
	// An empty trending set is trivially covered.
	res.OverlapPercentage = 100
	if len(res.TrendingTopics) > 0 {
		res.OverlapPercentage = int(math.Round(100 * float64(overlap) / float64(len(res.TrendingTopics))))
	}

	sort.SliceStable(res.MissingTopics, func(i, j int) bool {
		return res.MissingTopics[i].TrendScore > res.MissingTopics[j].TrendScore
	})
	if len(res.MissingTopics) > MaxMissing {
		res.MissingTopics = res.MissingTopics[:MaxMissing]
	}

	for _, m := range res.MissingTopics[:min(len(res.MissingTopics), MaxRecommendations)] {
		res.Recommendations = append(res.Recommendations, Recommendation{
			Topic:          m.Topic,
			Reason:         fmt.Sprintf("Appears %d times in trending content", m.Frequency),
			PotentialViews: ViewBucket(m.PotentialViews),
		})
	}
	return res
}

// potentialViews is the mean view count of the trending videos whose title or
// tags contain topic, case-insensitively, or 0 when none do.
func potentialViews(topic string, trending []videos.Record) float64 {
	var sum float64
	n := 0
	for _, r := range trending {
		if mentions(r, topic) {
			sum += float64(r.Views)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func mentions(r videos.Record, topic string) bool {
	if strings.Contains(strings.ToLower(r.Title), topic) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), topic) {
			return true
		}
	}
	return false
}

// ViewBucket labels a potential view count.
func ViewBucket(views float64) string {
	switch {
	case views >= 1000000:
		return "1M+ views"
	case views >= 100000:
		return "100K+ views"
	case views >= 10000:
		return "10K+ views"
	default:
		return "Under 10K views"
	}
}

func top(topics []Topic, n int) []Topic {
	if len(topics) > n {
		return topics[:n]
	}
	return topics
}

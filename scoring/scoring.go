// Package scoring computes percentile-relative performance scores for video
// titles and thumbnails.
//
// A score only means something against the Population it was computed with.
// Every scoring call therefore takes the population explicitly; build it once
// from the full set of records being compared and pass the same value to every
// call, never a filtered subset.
package scoring

import (
	"math"
	"sort"
	"time"

	"ytinsight/titletext"
	"ytinsight/videos"
)

// TitleWeights weights the components of a title score. They should sum to 1.
type TitleWeights struct {
	Views      float64 `json:"views" yaml:"views"`
	Likes      float64 `json:"likes" yaml:"likes"`
	Engagement float64 `json:"engagement" yaml:"engagement"`
	Text       float64 `json:"text" yaml:"text"`
}

// ThumbnailWeights weights the components of a thumbnail score.
type ThumbnailWeights struct {
	Views      float64 `json:"views" yaml:"views"`
	Engagement float64 `json:"engagement" yaml:"engagement"`
	Recency    float64 `json:"recency" yaml:"recency"`
}

// Grades holds the minimum totals for each letter on the 0-100 scale.
type Grades struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
	C int `json:"c" yaml:"c"`
	D int `json:"d" yaml:"d"`
}

// Grade maps a total to a letter.
func (g Grades) Grade(total int) string {
	switch {
	case total >= g.A:
		return "A"
	case total >= g.B:
		return "B"
	case total >= g.C:
		return "C"
	case total >= g.D:
		return "D"
	default:
		return "F"
	}
}

// RecencyBand awards Bonus to videos earning at least MinViewsPerDay.
type RecencyBand struct {
	MinViewsPerDay float64 `json:"min_views_per_day" yaml:"min_views_per_day"`
	Bonus          int     `json:"bonus" yaml:"bonus"`
}

// Config holds every product constant of the engine.
type Config struct {
	Title     TitleWeights     `json:"title" yaml:"title"`
	Thumbnail ThumbnailWeights `json:"thumbnail" yaml:"thumbnail"`
	Grades    Grades           `json:"grades" yaml:"grades"`
	// Recency is ordered by MinViewsPerDay, highest first.
	Recency []RecencyBand `json:"recency" yaml:"recency"`
	// RecencyFloor applies below the last band and to videos without a
	// publish time.
	RecencyFloor int `json:"recency_floor" yaml:"recency_floor"`
}

// DefaultConfig returns the standard weights, grades and recency bands.
func DefaultConfig() Config {
	return Config{
		Title:     TitleWeights{Views: 0.35, Likes: 0.25, Engagement: 0.20, Text: 0.20},
		Thumbnail: ThumbnailWeights{Views: 0.40, Engagement: 0.30, Recency: 0.30},
		Grades:    Grades{A: 80, B: 60, C: 40, D: 20},
		Recency: []RecencyBand{
			{MinViewsPerDay: 100000, Bonus: 100},
			{MinViewsPerDay: 50000, Bonus: 90},
			{MinViewsPerDay: 10000, Bonus: 80},
			{MinViewsPerDay: 5000, Bonus: 70},
			{MinViewsPerDay: 1000, Bonus: 60},
			{MinViewsPerDay: 500, Bonus: 50},
			{MinViewsPerDay: 100, Bonus: 40},
		},
		RecencyFloor: 30,
	}
}

// Percentile returns the share of sorted, in percent, that lies strictly
// before the first element >= value. Ties therefore share the rank of their
// first occurrence. A value above every element yields 100 and an empty set
// yields 0. sorted must be ascending.
func Percentile(value float64, sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	idx := sort.SearchFloat64s(sorted, value)
	return int(math.Round(float64(idx) / float64(len(sorted)) * 100))
}

// Population is the comparison set scores are relative to.
type Population struct {
	views      []float64
	likes      []float64
	engagement []float64
}

// NewPopulation captures the metrics of records. The records are not retained.
func NewPopulation(records []videos.Record) *Population {
	p := &Population{
		views:      make([]float64, len(records)),
		likes:      make([]float64, len(records)),
		engagement: make([]float64, len(records)),
	}
	for i, r := range records {
		p.views[i] = float64(r.Views)
		p.likes[i] = float64(r.Likes)
		p.engagement[i] = r.EngagementRate
	}
	sort.Float64s(p.views)
	sort.Float64s(p.likes)
	sort.Float64s(p.engagement)
	return p
}

// Component is one labeled contribution to a Score.
type Component struct {
	Label  string  `json:"label"`
	Value  int     `json:"value"`
	Weight float64 `json:"weight"`
}

// Score is a performance score on the 0-100 scale.
type Score struct {
	Total                int    `json:"total"`
	Grade                string `json:"grade"`
	ViewsPercentile      int    `json:"views_percentile"`
	LikesPercentile      int    `json:"likes_percentile"`
	EngagementPercentile int    `json:"engagement_percentile"`
	// TextScore is set on title scores: the text heuristic scaled to 0-100.
	TextScore *int `json:"text_score,omitempty"`
	// RecencyBonus is set on thumbnail scores.
	RecencyBonus *int        `json:"recency_bonus,omitempty"`
	Breakdown    []Component `json:"breakdown"`
}

// VideoScores pairs both performance scores of one video with its text-only
// title result.
type VideoScores struct {
	VideoID   string           `json:"video_id"`
	Title     Score            `json:"title"`
	Thumbnail Score            `json:"thumbnail"`
	Text      titletext.Result `json:"text"`
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg  Config
	text *titletext.Analyzer
	now  func() time.Time
}

// NewEngine creates an engine. A nil analyzer uses titletext.Default and a nil
// clock uses time.Now.
func NewEngine(cfg Config, text *titletext.Analyzer, now func() time.Time) *Engine {
	if text == nil {
		text = titletext.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, text: text, now: now}
}

// ScoreTitle scores r's title against pop.
func (e *Engine) ScoreTitle(r videos.Record, pop *Population) Score {
	return e.scoreTitle(r, pop, e.text.Analyze(r.Title))
}

func (e *Engine) scoreTitle(r videos.Record, pop *Population, text titletext.Result) Score {
	w := e.cfg.Title
	s := e.percentiles(r, pop)
	// The weighted sum uses the exact text share; only the reported value is rounded.
	textNorm := float64(text.Total) * 100 / titletext.MaxScore
	textScore := int(math.Round(textNorm))
	s.TextScore = &textScore
	s.Breakdown = []Component{
		{Label: "Views percentile", Value: s.ViewsPercentile, Weight: w.Views},
		{Label: "Likes percentile", Value: s.LikesPercentile, Weight: w.Likes},
		{Label: "Engagement percentile", Value: s.EngagementPercentile, Weight: w.Engagement},
		{Label: "Title text", Value: textScore, Weight: w.Text},
	}
	sum := w.Views*float64(s.ViewsPercentile) + w.Likes*float64(s.LikesPercentile) +
		w.Engagement*float64(s.EngagementPercentile) + w.Text*textNorm
	e.finish(&s, sum)
	return s
}

// ScoreThumbnail scores r's thumbnail against pop.
func (e *Engine) ScoreThumbnail(r videos.Record, pop *Population) Score {
	w := e.cfg.Thumbnail
	s := e.percentiles(r, pop)
	bonus := e.RecencyBonus(r)
	s.RecencyBonus = &bonus
	s.Breakdown = []Component{
		{Label: "Views percentile", Value: s.ViewsPercentile, Weight: w.Views},
		{Label: "Engagement percentile", Value: s.EngagementPercentile, Weight: w.Engagement},
		{Label: "Recency", Value: bonus, Weight: w.Recency},
	}
	e.finish(&s, weighted(s.Breakdown))
	return s
}

// ScoreAll scores every record against a population built from all of them.
func (e *Engine) ScoreAll(records []videos.Record) []VideoScores {
	pop := NewPopulation(records)
	out := make([]VideoScores, len(records))
	for i, r := range records {
		text := e.text.Analyze(r.Title)
		out[i] = VideoScores{
			VideoID:   r.ID,
			Title:     e.scoreTitle(r, pop, text),
			Thumbnail: e.ScoreThumbnail(r, pop),
			Text:      text,
		}
	}
	return out
}

// RecencyBonus maps r's views per day since publish onto the recency bands.
// Videos younger than a day count as one day old.
func (e *Engine) RecencyBonus(r videos.Record) int {
	if !r.HasPublishTime() {
		return e.cfg.RecencyFloor
	}
	days := math.Max(e.now().Sub(r.PublishedAt).Hours()/24, 1)
	perDay := float64(r.Views) / days
	for _, band := range e.cfg.Recency {
		if perDay >= band.MinViewsPerDay {
			return band.Bonus
		}
	}
	return e.cfg.RecencyFloor
}

func (e *Engine) percentiles(r videos.Record, pop *Population) Score {
	return Score{
		ViewsPercentile:      Percentile(float64(r.Views), pop.views),
		LikesPercentile:      Percentile(float64(r.Likes), pop.likes),
		EngagementPercentile: Percentile(r.EngagementRate, pop.engagement),
	}
}

func weighted(components []Component) float64 {
	var sum float64
	for _, c := range components {
		sum += c.Weight * float64(c.Value)
	}
	return sum
}

func (e *Engine) finish(s *Score, sum float64) {
	s.Total = min(max(int(math.Round(sum)), 0), 100)
	s.Grade = e.cfg.Grades.Grade(s.Total)
}

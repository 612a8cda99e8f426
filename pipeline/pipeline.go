// Package pipeline runs one analysis from a free-form query to report:
// resolve, fetch, normalize, then score, analyze and aggregate.
//
// A Pipeline holds no results. A Session wraps one and keeps the last
// successful report of each kind; a failed run leaves them untouched.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	ytapi "google.golang.org/api/youtube/v3"

	"ytinsight/gap"
	"ytinsight/ledger"
	"ytinsight/schedule"
	"ytinsight/scoring"
	"ytinsight/titletext"
	"ytinsight/videos"
	"ytinsight/youtube"
)

// Resolver maps input to a query. *youtube.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, input string) (youtube.Query, error)
}

// Fetcher retrieves raw videos. *youtube.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q youtube.Query, n int) (*youtube.Result, error)
	Trending(ctx context.Context, region, category string, n int) ([]*ytapi.Video, error)
}

// QuotaReader reports the quota counter. *ledger.Ledger implements it.
type QuotaReader interface {
	CurrentUsage(ctx context.Context) ledger.Usage
}

// Options configures a Pipeline.
type Options struct {
	// MaxVideos is used when a run asks for n <= 0.
	MaxVideos int
	// Region and Category select the trending reference set.
	Region   string
	Category string
	// TrendingVideos is the size of the trending reference set (default 50).
	TrendingVideos int
	// Heatmap is the location publish times are bucketed in (default UTC).
	Heatmap *time.Location
	Scoring *scoring.Engine
	Text    *titletext.Analyzer
	// Normalize supplies the normalizer thresholds; Subscribers is filled per
	// run from the resolved channel.
	Normalize videos.Options
	Now       func() time.Time
}

// Report is the result of an Analyze run.
type Report struct {
	RunID       string                `json:"run_id"`
	Input       string                `json:"input"`
	Query       youtube.Query         `json:"query"`
	GeneratedAt time.Time             `json:"generated_at"`
	Channel     *videos.ChannelStats  `json:"channel,omitempty"`
	Records     []videos.Record       `json:"records"`
	Scores      []scoring.VideoScores `json:"scores"`
	Heatmap     *schedule.Heatmap     `json:"heatmap"`
	BestSlots   []schedule.Cell       `json:"best_slots"`
	WorstSlots  []schedule.Cell       `json:"worst_slots"`
	// Exhausted is true when upstream had fewer videos than requested.
	Exhausted bool         `json:"exhausted"`
	Usage     ledger.Usage `json:"usage"`
}

// GapReport is the result of a Gap run.
type GapReport struct {
	RunID          string               `json:"run_id"`
	Input          string               `json:"input"`
	Query          youtube.Query        `json:"query"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Channel        *videos.ChannelStats `json:"channel,omitempty"`
	ChannelVideos  int                  `json:"channel_videos"`
	TrendingVideos int                  `json:"trending_videos"`
	Gap            gap.Result           `json:"gap"`
	Usage          ledger.Usage         `json:"usage"`
}

// Pipeline is safe for concurrent use when its collaborators are.
type Pipeline struct {
	resolver Resolver
	fetcher  Fetcher
	quota    QuotaReader
	opts     Options
}

// New creates a Pipeline. quota may be nil.
func New(resolver Resolver, fetcher Fetcher, quota QuotaReader, opts Options) *Pipeline {
	if opts.MaxVideos <= 0 {
		opts.MaxVideos = 50
	}
	if opts.TrendingVideos <= 0 {
		opts.TrendingVideos = 50
	}
	if opts.Region == "" {
		opts.Region = "US"
	}
	if opts.Heatmap == nil {
		opts.Heatmap = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Normalize.Now == nil {
		opts.Normalize.Now = opts.Now
	}
	if opts.Text == nil {
		opts.Text = titletext.Default()
	}
	if opts.Scoring == nil {
		opts.Scoring = scoring.NewEngine(scoring.DefaultConfig(), opts.Text, opts.Now)
	}
	return &Pipeline{resolver: resolver, fetcher: fetcher, quota: quota, opts: opts}
}

// Analyze fetches up to n videos for input and builds the full report.
func (p *Pipeline) Analyze(ctx context.Context, input string, n int) (*Report, error) {
	runID := uuid.NewString()
	logger := log.With().Str("component", "pipeline").Str("run_id", runID).Logger()
	logger.Info().Str("input", input).Msg("analyze started")

	q, res, channel, records, err := p.collect(ctx, input, n)
	if err != nil {
		logger.Warn().Err(err).Msg("analyze failed")
		return nil, err
	}

	heatmap := schedule.Build(records, p.opts.Heatmap)
	rep := &Report{
		RunID:       runID,
		Input:       input,
		Query:       q,
		GeneratedAt: p.opts.Now(),
		Channel:     channel,
		Records:     records,
		Scores:      p.opts.Scoring.ScoreAll(records),
		Heatmap:     heatmap,
		BestSlots:   heatmap.BestSlots(),
		WorstSlots:  heatmap.WorstSlots(),
		Exhausted:   res.Exhausted,
		Usage:       p.usage(ctx),
	}
	logger.Info().Int("videos", len(records)).Bool("exhausted", rep.Exhausted).
		Int("quota_used", rep.Usage.UnitsUsed).Msg("analyze finished")
	return rep, nil
}

// Gap compares up to n videos for input with the trending reference set.
func (p *Pipeline) Gap(ctx context.Context, input string, n int) (*GapReport, error) {
	runID := uuid.NewString()
	logger := log.With().Str("component", "pipeline").Str("run_id", runID).Logger()
	logger.Info().Str("input", input).Str("region", p.opts.Region).Msg("gap started")

	q, _, channel, records, err := p.collect(ctx, input, n)
	if err != nil {
		logger.Warn().Err(err).Msg("gap failed")
		return nil, err
	}

	raw, err := p.fetcher.Trending(ctx, p.opts.Region, p.opts.Category, p.opts.TrendingVideos)
	if err != nil {
		logger.Warn().Err(err).Msg("gap failed")
		return nil, err
	}
	// Trending outliers are judged without a subscriber count.
	trending := videos.NormalizeAll(raw, p.opts.Normalize)

	rep := &GapReport{
		RunID:          runID,
		Input:          input,
		Query:          q,
		GeneratedAt:    p.opts.Now(),
		Channel:        channel,
		ChannelVideos:  len(records),
		TrendingVideos: len(trending),
		Gap:            gap.Analyze(records, trending),
		Usage:          p.usage(ctx),
	}
	logger.Info().Int("missing_topics", len(rep.Gap.MissingTopics)).
		Int("overlap", rep.Gap.OverlapPercentage).Msg("gap finished")
	return rep, nil
}

// Title scores title text alone. It never touches the network.
func (p *Pipeline) Title(title string) titletext.Result {
	return p.opts.Text.Analyze(title)
}

func (p *Pipeline) collect(ctx context.Context, input string, n int) (youtube.Query, *youtube.Result, *videos.ChannelStats, []videos.Record, error) {
	if n <= 0 {
		n = p.opts.MaxVideos
	}
	q, err := p.resolver.Resolve(ctx, input)
	if err != nil {
		return q, nil, nil, nil, err
	}
	res, err := p.fetcher.Fetch(ctx, q, n)
	if err != nil {
		return q, nil, nil, nil, err
	}
	if res.Query.Kind == youtube.KindChannel {
		q = res.Query
	}

	channel := videos.NormalizeChannel(res.Channel)
	opts := p.opts.Normalize
	if channel != nil {
		opts.Subscribers = channel.Subscribers
	}
	return q, res, channel, videos.NormalizeAll(res.Videos, opts), nil
}

func (p *Pipeline) usage(ctx context.Context) ledger.Usage {
	if p.quota == nil {
		return ledger.Usage{}
	}
	return p.quota.CurrentUsage(ctx)
}

// Session keeps the last successful reports of a Pipeline.
type Session struct {
	pipeline *Pipeline

	mu      sync.RWMutex
	last    *Report
	lastGap *GapReport
}

// NewSession creates an empty session.
func NewSession(p *Pipeline) *Session {
	return &Session{pipeline: p}
}

// Analyze runs Pipeline.Analyze and keeps the report when it succeeds.
func (s *Session) Analyze(ctx context.Context, input string, n int) (*Report, error) {
	rep, err := s.pipeline.Analyze(ctx, input, n)
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", input, err)
	}
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
	return rep, nil
}

// Gap runs Pipeline.Gap and keeps the report when it succeeds.
func (s *Session) Gap(ctx context.Context, input string, n int) (*GapReport, error) {
	rep, err := s.pipeline.Gap(ctx, input, n)
	if err != nil {
		return nil, fmt.Errorf("gap %q: %w", input, err)
	}
	s.mu.Lock()
	s.lastGap = rep
	s.mu.Unlock()
	return rep, nil
}

// Last returns the most recent successful Analyze report, or nil.
func (s *Session) Last() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// LastGap returns the most recent successful Gap report, or nil.
func (s *Session) LastGap() *GapReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastGap
}

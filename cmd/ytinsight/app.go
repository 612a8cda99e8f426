package main

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"ytinsight/config"
	yhttp "ytinsight/http"
	"ytinsight/ledger"
	"ytinsight/pipeline"
	"ytinsight/scoring"
	"ytinsight/storage"
	"ytinsight/telemetry"
	"ytinsight/titletext"
	"ytinsight/videos"
	"ytinsight/youtube"
)

var errNoAPIKey = errors.New("ytinsight: api key required (set api_key or YTINSIGHT_API_KEY)")

// app holds the collaborators of one command invocation.
type app struct {
	store   storage.Store
	ledger  *ledger.Ledger
	cache   *ledger.Cache
	metrics *telemetry.Collector
	client  *yhttp.Client
	session *pipeline.Session

	stopMetrics context.CancelFunc
	metricsDone chan struct{}
}

type appOption func(*pipeline.Options)

func withCategory(category string) appOption {
	return func(o *pipeline.Options) { o.Category = category }
}

// newApp opens the store and builds the ledger. With withAPI it also builds
// the upstream client and the pipeline, which requires an API key.
func newApp(ctx context.Context, cfg *config.Config, withAPI bool, extra ...appOption) (*app, error) {
	if withAPI && cfg.APIKey == "" {
		return nil, errNoAPIKey
	}

	store, err := storage.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}

	quotaLoc, err := cfg.QuotaLocation()
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{store: store, metrics: telemetry.NewCollector()}
	a.ledger = ledger.New(store, ledger.Options{DailyLimit: cfg.DailyQuota, Location: quotaLoc})
	a.ledger.Subscribe(a.metrics.ObserveQuota)
	a.cache = ledger.NewCache(store, ledger.CacheOptions{
		TTL:           time.Duration(cfg.CacheTTL),
		MemoryEntries: cfg.CacheMemoryEntries,
		Stats:         a.metrics,
	})

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}

	if !withAPI {
		return a, nil
	}

	httpCfg := yhttp.DefaultConfig()
	httpCfg.Timeout = time.Duration(cfg.RequestTimeout)
	httpCfg.APIKey = cfg.APIKey
	httpCfg.RateLimiter.RPS = cfg.RequestsPerSecond
	maps.Copy(httpCfg.RateLimiter.CustomRates, cfg.HostRates)
	httpCfg.Observer = a.metrics
	a.client = yhttp.New(httpCfg)

	clientOpts := []option.ClientOption{option.WithHTTPClient(a.client.HTTPClient())}
	if cfg.APIEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.APIEndpoint))
	}
	data, err := youtube.NewDataAPI(ctx, clientOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	api := youtube.Metered(data, a.ledger, youtube.DefaultCosts())

	heatmapLoc, err := cfg.HeatmapLocation()
	if err != nil {
		a.Close()
		return nil, err
	}
	text := textAnalyzer(cfg)
	popts := pipeline.Options{
		MaxVideos: cfg.MaxVideos,
		Region:    cfg.Region,
		Heatmap:   heatmapLoc,
		Text:      text,
		Scoring:   scoring.NewEngine(cfg.Scoring, text, nil),
		Normalize: videos.DefaultOptions(),
	}
	for _, fn := range extra {
		fn(&popts)
	}

	p := pipeline.New(youtube.NewResolver(api), youtube.NewFetcher(api, a.cache), a.ledger, popts)
	a.session = pipeline.NewSession(p)
	return a, nil
}

func textAnalyzer(cfg *config.Config) *titletext.Analyzer {
	var words []string
	if len(cfg.PowerWords) > 0 {
		words = cfg.PowerWords
	}
	return titletext.New(words, cfg.TitleGrades)
}

func (a *app) serveMetrics(addr string) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopMetrics = cancel
	a.metricsDone = make(chan struct{})
	go func() {
		defer close(a.metricsDone)
		if err := a.metrics.Serve(ctx, addr); err != nil {
			log.Error().Str("component", "telemetry").Err(err).Msg("metrics server failed")
		}
	}()
}

// Close releases the store, the HTTP client and the metrics server.
func (a *app) Close() error {
	if a.stopMetrics != nil {
		a.stopMetrics()
		<-a.metricsDone
	}
	if a.client != nil {
		a.client.Close()
	}
	return a.store.Close()
}

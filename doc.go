// Package ytinsight provides analytics over YouTube channels, playlists and
// searches.
//
// It fetches video metadata through the YouTube Data API v3 under a daily quota
// budget, normalizes it into flat records, and derives scores, title
// heuristics, content gaps and upload-time heatmaps from it.
//
// Overview
//
// The work is split into sub-packages that are wired together by pipeline:
//
//   - youtube: resolve free-form input to a query, page through it, hydrate
//     video details and pull the trending chart
//   - ledger: the daily quota ledger and the TTL response cache
//   - videos: normalize API items into Record and ChannelStats values
//   - scoring: percentile based title and thumbnail scores
//   - titletext: heuristic title text scoring out of 80
//   - gap: topics trending upstream that a channel has not covered
//   - schedule: the weekday by hour upload performance heatmap
//   - storage: durable key/value backends (memory, file, sqlite, redis)
//   - telemetry: Prometheus metrics for quota, cache and upstream calls
//
// Quick Start
//
//	ctx := context.Background()
//	store := storage.NewMemoryStore()
//	l := ledger.New(store, ledger.Options{})
//	cache := ledger.NewCache(store, ledger.CacheOptions{})
//
//	data, err := youtube.NewDataAPI(ctx, option.WithAPIKey(key))
//	if err != nil {
//		log.Fatal(err)
//	}
//	api := youtube.Metered(data, l, youtube.DefaultCosts())
//
//	p := pipeline.New(youtube.NewResolver(api), youtube.NewFetcher(api, cache), l, pipeline.Options{})
//	rep, err := p.Analyze(ctx, "@GoogleDevelopers", 50)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for i, r := range rep.Records {
//		fmt.Println(r.Title, rep.Scores[i].Title.Grade)
//	}
//
// Scoring a title needs no API access:
//
//	res := titletext.Default().Analyze("Top 5 Go Tricks You Need")
//	fmt.Println(res.Total, res.Grade)
//
// Configuration
//
// The ytinsight command loads settings from multiple sources:
//
//  1. Environment variables (highest priority)
//  2. Config file (ytinsight.json, ytinsight.yaml or ~/.config/ytinsight/ytinsight.yaml)
//  3. Default values (lowest priority)
//
// Environment variables include:
//
//   - YTINSIGHT_API_KEY: Data API key
//   - YTINSIGHT_STORE: memory, file, sqlite or redis
//   - YTINSIGHT_STORE_PATH: file or sqlite database path
//   - YTINSIGHT_REDIS_URL: redis connection URL
//   - YTINSIGHT_DAILY_QUOTA: daily quota budget in units
//   - YTINSIGHT_CACHE_TTL: response cache lifetime, e.g. "1h"
//   - YTINSIGHT_METRICS_ADDR: serve Prometheus metrics on this address
//
// Error Handling
//
// Checking for sentinel errors:
//
//	if errors.Is(err, ytinsight.ErrChannelNotFound) {
//		fmt.Println("Channel not found")
//	}
//
// Quota exhaustion is advisory: the ledger records overspend and warns but
// never blocks a call.
package ytinsight

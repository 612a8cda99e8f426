// Package config manages application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ytinsight/scoring"
	"ytinsight/storage"
	"ytinsight/titletext"
)

// Duration is a time.Duration that reads as "90s" or "1h" from JSON and YAML.
// Plain JSON numbers are taken as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or nanoseconds: %s", b)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds all application configuration.
type Config struct {
	// APIKey is the upstream credential. Only commands that call the API need it.
	APIKey string `json:"api_key" yaml:"api_key"`
	// APIEndpoint overrides the Data API base URL.
	APIEndpoint string `json:"api_endpoint" yaml:"api_endpoint"`

	// Store selects the durable backend: memory, file, sqlite or redis.
	Store     storage.Kind `json:"store" yaml:"store"`
	StorePath string       `json:"store_path" yaml:"store_path"`
	RedisURL  string       `json:"redis_url" yaml:"redis_url"`

	CacheTTL Duration `json:"cache_ttl" yaml:"cache_ttl"`
	// CacheMemoryEntries sizes the in-process cache tier; negative disables it.
	CacheMemoryEntries int `json:"cache_memory_entries" yaml:"cache_memory_entries"`

	DailyQuota int `json:"daily_quota" yaml:"daily_quota"`
	// QuotaTimezone decides when the quota day rolls over. Empty means local time.
	QuotaTimezone string `json:"quota_timezone" yaml:"quota_timezone"`

	MaxVideos int    `json:"max_videos" yaml:"max_videos"`
	Region    string `json:"region" yaml:"region"`

	RequestsPerSecond float64  `json:"requests_per_second" yaml:"requests_per_second"`
	RequestTimeout    Duration `json:"request_timeout" yaml:"request_timeout"`

	// HostRates overrides requests_per_second for individual hosts. Zero disables limiting.
	HostRates map[string]float64 `json:"host_rates" yaml:"host_rates"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`

	Scoring     scoring.Config   `json:"scoring" yaml:"scoring"`
	TitleGrades titletext.Grades `json:"title_grades" yaml:"title_grades"`
	// PowerWords replaces the default title power-word list when non-empty.
	PowerWords []string `json:"power_words" yaml:"power_words"`

	// HeatmapTimezone is the location publish times are bucketed in.
	HeatmapTimezone string `json:"heatmap_timezone" yaml:"heatmap_timezone"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		Store:              storage.KindFile,
		StorePath:          defaultStorePath(),
		CacheTTL:           Duration(time.Hour),
		CacheMemoryEntries: 256,
		DailyQuota:         10000,
		MaxVideos:          50,
		Region:             "US",
		RequestsPerSecond:  5,
		RequestTimeout:     Duration(30 * time.Second),
		LogLevel:           "info",
		LogFormat:          "text",
		Scoring:            scoring.DefaultConfig(),
		TitleGrades:        titletext.DefaultGrades(),
		HeatmapTimezone:    "UTC",
	}
}

func defaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".ytinsight", "store.json")
	}
	return filepath.Join(dir, "ytinsight", "store.json")
}

// Load builds the configuration from defaults, then a config file, then
// environment variables, and validates the result.
//
// When path is empty the file is optional and searched for as ytinsight.json,
// ytinsight.yaml or ytinsight.yml in the working directory and then in
// ~/.config/ytinsight/. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else if err := cfg.loadFromFile(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// searchPaths lists candidate config files in priority order.
func searchPaths() []string {
	names := []string{"ytinsight.json", "ytinsight.yaml", "ytinsight.yml"}
	paths := append([]string(nil), names...)
	if home, err := os.UserHomeDir(); err == nil {
		for _, n := range names {
			paths = append(paths, filepath.Join(home, ".config", "ytinsight", n))
		}
	}
	return paths
}

func (c *Config) loadFromFile() error {
	for _, path := range searchPaths() {
		err := c.loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return err
	}
	return os.ErrNotExist
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overrides config with YTINSIGHT_* environment variables.
func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"YTINSIGHT_API_KEY":          &c.APIKey,
		"YTINSIGHT_API_ENDPOINT":     &c.APIEndpoint,
		"YTINSIGHT_STORE_PATH":       &c.StorePath,
		"YTINSIGHT_REDIS_URL":        &c.RedisURL,
		"YTINSIGHT_QUOTA_TIMEZONE":   &c.QuotaTimezone,
		"YTINSIGHT_REGION":           &c.Region,
		"YTINSIGHT_LOG_LEVEL":        &c.LogLevel,
		"YTINSIGHT_LOG_FORMAT":       &c.LogFormat,
		"YTINSIGHT_METRICS_ADDR":     &c.MetricsAddr,
		"YTINSIGHT_HEATMAP_TIMEZONE": &c.HeatmapTimezone,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("YTINSIGHT_STORE"); v != "" {
		c.Store = storage.Kind(v)
	}

	ints := map[string]*int{
		"YTINSIGHT_DAILY_QUOTA":          &c.DailyQuota,
		"YTINSIGHT_MAX_VIDEOS":           &c.MaxVideos,
		"YTINSIGHT_CACHE_MEMORY_ENTRIES": &c.CacheMemoryEntries,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*Duration{
		"YTINSIGHT_CACHE_TTL":       &c.CacheTTL,
		"YTINSIGHT_REQUEST_TIMEOUT": &c.RequestTimeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = Duration(d)
		}
	}

	if v := os.Getenv("YTINSIGHT_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("YTINSIGHT_REQUESTS_PER_SECOND: %w", err)
		}
		c.RequestsPerSecond = f
	}
	return nil
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.DailyQuota <= 0 {
		return fmt.Errorf("daily_quota must be positive")
	}
	if c.MaxVideos <= 0 {
		return fmt.Errorf("max_videos must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	for host, rps := range c.HostRates {
		if rps < 0 {
			return fmt.Errorf("host_rates: %s must not be negative", host)
		}
	}

	switch c.Store {
	case storage.KindMemory:
	case storage.KindFile, storage.KindSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("store_path is required for the %s store", c.Store)
		}
	case storage.KindRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if _, err := c.QuotaLocation(); err != nil {
		return fmt.Errorf("quota_timezone: %w", err)
	}
	if _, err := c.HeatmapLocation(); err != nil {
		return fmt.Errorf("heatmap_timezone: %w", err)
	}
	return nil
}

// QuotaLocation returns the location the quota day is counted in.
func (c *Config) QuotaLocation() (*time.Location, error) {
	if c.QuotaTimezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.QuotaTimezone)
}

// HeatmapLocation returns the location publish times are bucketed in.
func (c *Config) HeatmapLocation() (*time.Location, error) {
	if c.HeatmapTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.HeatmapTimezone)
}

// StoreOptions returns the storage.Open options for the configured backend.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{Kind: c.Store, Path: c.StorePath, RedisURL: c.RedisURL}
}

// Package config assembles runtime settings for the Beacon client from
// defaults, an optional JSON file and command-line flags, in that order of
// precedence.
package config

import "time"

// Config holds runtime settings for the Beacon client core.
//
// Fields:
//   - APIBaseURL: base URL of the remote content API.
//   - DatabasePath: path of the local SQLite database file.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - AnalyticsFlushInterval: cadence of the periodic analytics flush.
//   - AnalyticsBatchSize: events per analytics POST.
//   - CacheMaxEntryAge: housekeeping ceiling for cache entries without TTL.
//   - CacheMaxBytes: total cache size above which housekeeping evicts
//     oldest-written entries first.
type Config struct {
	APIBaseURL             string
	DatabasePath           string
	OnlineCheckInterval    time.Duration
	AnalyticsFlushInterval time.Duration
	AnalyticsBatchSize     int
	CacheMaxEntryAge       time.Duration
	CacheMaxBytes          int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "beacon.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.AnalyticsFlushInterval = 5 * time.Minute
	c.AnalyticsBatchSize = 50
	c.CacheMaxEntryAge = 7 * 24 * time.Hour
	c.CacheMaxBytes = 10 << 20
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/beaconchurch/beacon/internal/flagx"
	"github.com/beaconchurch/beacon/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL             string         `json:"api_base_url"`
	DatabasePath           string         `json:"database_path"`
	OnlineCheckInterval    timex.Duration `json:"online_check_interval"`
	AnalyticsFlushInterval timex.Duration `json:"analytics_flush_interval"`
	AnalyticsBatchSize     int            `json:"analytics_batch_size"`
	CacheMaxEntryAge       timex.Duration `json:"cache_max_entry_age"`
	CacheMaxBytes          int64          `json:"cache_max_bytes"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Missing flag means no JSON stage; only fields actually
// present in the file override the current values. Panics on read or
// unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.AnalyticsFlushInterval.Duration > 0 {
		cfg.AnalyticsFlushInterval = time.Duration(jc.AnalyticsFlushInterval.Duration)
	}
	if jc.AnalyticsBatchSize > 0 {
		cfg.AnalyticsBatchSize = jc.AnalyticsBatchSize
	}
	if jc.CacheMaxEntryAge.Duration > 0 {
		cfg.CacheMaxEntryAge = time.Duration(jc.CacheMaxEntryAge.Duration)
	}
	if jc.CacheMaxBytes > 0 {
		cfg.CacheMaxBytes = jc.CacheMaxBytes
	}
}

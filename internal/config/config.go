// Package config defines the service configuration and how it is loaded.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// RefreshInterval is how often the population is re-collected. Zero disables the schedule.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`

	// RefreshOnStart triggers a collection as soon as the service starts.
	RefreshOnStart bool `koanf:"refresh_on_start"`

	// WorkerCount sets the number of aggregation workers.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`

	// QueueSize bounds the partition job queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// PartitionSize is the number of records per aggregation job.
	PartitionSize int `koanf:"partition_size" validate:"gte=1"`

	// MaxLeaderboardLimit caps GET /api/v1/players?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gte=1"`

	// RateLimitPerMinute is the per-IP request budget. Zero disables limiting.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"gte=0"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// APIBaseURL is the root of the TETR.IO channel API.
	APIBaseURL string `koanf:"api_base_url" validate:"required,url"`

	// APIUserAgent is sent with every remote request.
	APIUserAgent string `koanf:"api_user_agent" validate:"required"`

	// APIPageSize is the leaderboard page size requested upstream.
	APIPageSize int `koanf:"api_page_size" validate:"gte=1,lte=100"`

	// APIMaxPlayers caps one collection.
	APIMaxPlayers int `koanf:"api_max_players" validate:"gte=1"`

	// APITimeout bounds a single remote request.
	APITimeout time.Duration `koanf:"api_timeout" validate:"gt=0"`

	// APIRequestsPerSecond throttles outbound requests.
	APIRequestsPerSecond float64 `koanf:"api_requests_per_second" validate:"gt=0"`

	// DedupeSize bounds the per-collection seen-set.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=1"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		RefreshInterval:      10 * time.Minute,
		RefreshOnStart:       true,
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            1024,
		PartitionSize:        4096,
		MaxLeaderboardLimit:  1000,
		RateLimitPerMinute:   600,
		CORSAllowedOrigins:   []string{"*"},
		APIBaseURL:           "https://ch.tetr.io/api/",
		APIUserAgent:         "osker (+https://github.com/okian/osker)",
		APIPageSize:          100,
		APIMaxPlayers:        50_000,
		APITimeout:           10 * time.Second,
		APIRequestsPerSecond: 1,
		DedupeSize:           100_000,
	}
}

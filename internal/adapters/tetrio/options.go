package tetrio

import (
	"net/http"
	"time"

	"github.com/okian/osker/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the API root. It must end with a slash.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPageSize sets the leaderboard page size (1..100).
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= maxPageSize {
			c.pageSize = n
		}
	}
}

// WithMaxPlayers caps how many players Collect returns.
func WithMaxPlayers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPlayers = n
		}
	}
}

// WithRequestsPerSecond sets the outbound rate limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.rps = rps
		}
	}
}

// WithDedupeSize bounds the per-collection seen-set.
func WithDedupeSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.dedupeSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open before probing again.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.tripAfter = failures
		}
		if cooldown > 0 {
			c.cooldown = cooldown
		}
	}
}

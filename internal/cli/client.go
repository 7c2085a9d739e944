// Package cli implements the osker command line: local metric tables and a
// client for a running service.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/osker/internal/domain/types"
)

// Leaderboard mirrors GET /api/v1/players.
type Leaderboard struct {
	Generation  uint64        `json:"generation"`
	RefreshedAt time.Time     `json:"refreshedAt"`
	Entries     []types.Entry `json:"entries"`
}

// Averages mirrors GET /api/v1/averages.
type Averages struct {
	Generation  uint64             `json:"generation"`
	RefreshedAt time.Time          `json:"refreshedAt"`
	Dominant    string             `json:"dominantRank"`
	Averages    []types.PlayerView `json:"averages"`
}

// Refresh mirrors POST /api/v1/refresh.
type Refresh struct {
	Generation uint64 `json:"generation"`
	Players    int    `json:"players"`
	Averages   int    `json:"averages"`
	Dominant   string `json:"dominantRank"`
}

// Client talks to a running osker service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Player fetches one player or "$avg<RANK>" record.
func (c *Client) Player(ctx context.Context, name string) (types.PlayerView, error) {
	var out types.PlayerView
	err := c.do(ctx, http.MethodGet, "/api/v1/players/"+url.PathEscape(name), nil, &out)
	return out, err
}

// Leaderboard fetches the top limit players.
func (c *Client) Leaderboard(ctx context.Context, limit int) (Leaderboard, error) {
	var out Leaderboard
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	err := c.do(ctx, http.MethodGet, "/api/v1/players", q, &out)
	return out, err
}

// Averages fetches every rank average.
func (c *Client) Averages(ctx context.Context) (Averages, error) {
	var out Averages
	err := c.do(ctx, http.MethodGet, "/api/v1/averages", nil, &out)
	return out, err
}

// Refresh asks the service to collect and publish a new snapshot.
func (c *Client) Refresh(ctx context.Context) (Refresh, error) {
	var out Refresh
	err := c.do(ctx, http.MethodPost, "/api/v1/refresh", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Package tetrio fetches Tetra League records from the public TETR.IO API.
package tetrio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/osker/internal/domain/dedupe"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/pkg/logger"
	"github.com/okian/osker/pkg/metrics"
)

const (
	DefaultBaseURL   = "https://ch.tetr.io/api/"
	DefaultUserAgent = "osker (+https://github.com/okian/osker)"

	maxPageSize       = 100
	defaultMaxPlayers = 50_000
	defaultRPS        = 1.0
	defaultTimeout    = 10 * time.Second
	defaultDedupeSize = 100_000
	defaultTripAfter  = 5
	defaultCooldown   = 30 * time.Second

	sessionHeader = "X-Session-ID"
	maxBodyBytes  = 32 << 20
)

type sessionKey struct{}

// WithSessionID attaches an X-Session-ID to every request made with ctx.
// Requests sharing a session see one consistent upstream cache generation.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Client talks to the TETR.IO channel API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	pageSize   int
	maxPlayers int
	rps        float64
	dedupeSize int
	tripAfter  uint32
	cooldown   time.Duration

	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     logger.Logger
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		timeout:    defaultTimeout,
		pageSize:   maxPageSize,
		maxPlayers: defaultMaxPlayers,
		rps:        defaultRPS,
		dedupeSize: defaultDedupeSize,
		tripAfter:  defaultTripAfter,
		cooldown:   defaultCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.Named("tetrio")
	}
	c.limiter = rate.NewLimiter(rate.Limit(c.rps), 1)
	c.breaker = c.newBreaker()
	return c
}

// Collect pages through the league leaderboard until a short page, a page
// that adds no new players, or the player cap. Players seen on an earlier
// page are dropped.
func (c *Client) Collect(ctx context.Context) ([]model.Player, error) {
	session := uuid.NewString()
	ctx = WithSessionID(ctx, session)
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(c.dedupeSize))
	start := time.Now()

	players := make([]model.Player, 0, min(c.maxPlayers, c.pageSize*16))
	var after string
	var pages, dups int
	for len(players) < c.maxPlayers {
		page, err := c.LeaguePage(ctx, after, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("tetrio: collect after %d players: %w", len(players), err)
		}
		pages++
		added := 0
		for _, p := range page.Players {
			if p.ID != "" && seen.SeenAndRecord(ctx, p.ID) {
				dups++
				continue
			}
			players = append(players, p)
			added++
			if len(players) == c.maxPlayers {
				break
			}
		}
		if page.Next == "" {
			break
		}
		// a full page with nothing new means the cursor is not advancing
		if added == 0 {
			c.log.Warn(ctx, "league page added no players, stopping",
				logger.String("after", after),
				logger.Int("entries", page.Entries))
			break
		}
		after = page.Next
	}

	metrics.RecordFetchDuplicates(dups)
	c.log.Info(ctx, "collected league players",
		logger.String("session", session),
		logger.Int("players", len(players)),
		logger.Int("pages", pages),
		logger.Int("duplicates", dups),
		logger.Int64("tracked", seen.Size()),
		logger.Duration("took", time.Since(start)))
	return players, nil
}

// LeaguePage fetches one page of the league leaderboard starting after the
// given pri:sec:ter cursor (empty for the top).
func (c *Client) LeaguePage(ctx context.Context, after string, limit int) (Page, error) {
	if limit < 1 || limit > maxPageSize {
		limit = c.pageSize
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if after != "" {
		q.Set("after", after)
	}

	start := time.Now()
	var raw leaguePage
	if err := c.get(ctx, "users/by/league", q, &raw); err != nil {
		return Page{}, fmt.Errorf("league page: %w", err)
	}
	metrics.RecordFetchPage(float64(time.Since(start).Microseconds()) / 1000)

	page := Page{Entries: len(raw.Entries), Players: make([]model.Player, 0, len(raw.Entries))}
	for _, e := range raw.Entries {
		if !e.League.hasStats() {
			continue
		}
		page.Players = append(page.Players, toPlayer(e.ID, e.Username, "", e.League))
	}
	if len(raw.Entries) == limit {
		if last := raw.Entries[len(raw.Entries)-1]; last.P != nil {
			page.Next = last.P.String()
		}
	}
	return page, nil
}

// User fetches a single player's profile and league summary.
func (c *Client) User(ctx context.Context, name string) (model.Player, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return model.Player{}, fmt.Errorf("%w: empty name", ErrUserNotFound)
	}
	path := "users/" + url.PathEscape(key)
	start := time.Now()

	var u userData
	if err := c.get(ctx, path, nil, &u); err != nil {
		return model.Player{}, fmt.Errorf("user %s: %w", key, err)
	}
	var l leagueSummary
	if err := c.get(ctx, path+"/summaries/league", nil, &l); err != nil {
		return model.Player{}, fmt.Errorf("user %s league: %w", key, err)
	}
	metrics.RecordFetchLatency(float64(time.Since(start).Microseconds()) / 1000)

	if !l.hasStats() {
		return model.Player{}, fmt.Errorf("%w: %s", ErrNoLeagueStats, u.Username)
	}
	return toPlayer(u.ID, u.Username, u.avatarURL(), l), nil
}

// get waits for the limiter, performs the request through the breaker and
// decodes the envelope's data into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordFetchError("breaker")
			return fmt.Errorf("%w: %w", ErrBreakerOpen, err)
		}
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.RecordFetchError("decode")
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !env.Success {
		return envelopeError(env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		metrics.RecordFetchError("decode")
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if id := sessionID(ctx); id != "" {
		req.Header.Set(sessionHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordFetchError("transport")
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordFetchError("transport")
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordFetchError("not_found")
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.RecordFetchError("status")
		return nil, fmt.Errorf("%w: %d on %s", ErrStatus, resp.StatusCode, path)
	}
	return body, nil
}

func envelopeError(env envelope) error {
	msg := "unknown error"
	if env.Error != nil && env.Error.Msg != "" {
		msg = env.Error.Msg
	}
	if strings.Contains(strings.ToLower(msg), "no such user") {
		metrics.RecordFetchError("not_found")
		return fmt.Errorf("%w: %s", ErrUserNotFound, msg)
	}
	metrics.RecordFetchError("api")
	return fmt.Errorf("%w: %s", ErrAPI, msg)
}

// Package service wires aggregation, the snapshot store and the remote source
// into the operations served by the HTTP API and the scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/osker/internal/adapters/mq/queue"
	"github.com/okian/osker/internal/adapters/mq/worker"
	"github.com/okian/osker/internal/adapters/repository"
	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
	"github.com/okian/osker/pkg/logger"
	"github.com/okian/osker/pkg/metrics"
)

// MaxCompare is the most players a single comparison accepts.
const MaxCompare = 6

// Source supplies raw player records.
type Source interface {
	// Collect fetches the whole ranked population.
	Collect(ctx context.Context) ([]model.Player, error)
	// User fetches one player by name.
	User(ctx context.Context, name string) (model.Player, error)
}

// Stats describes the service for monitoring.
type Stats struct {
	Started         bool      `json:"started"`
	Refreshing      bool      `json:"refreshing"`
	Workers         int       `json:"workers"`
	QueueCapacity   int       `json:"queueCapacity"`
	QueueLength     int       `json:"queueLength"`
	PartitionSize   int       `json:"partitionSize"`
	Players         int       `json:"players"`
	Averages        int       `json:"averages"`
	Dominant        string    `json:"dominantRank"`
	Generation      uint64    `json:"generation"`
	RefreshedAt     time.Time `json:"refreshedAt"`
	Refreshes       int64     `json:"refreshes"`
	RefreshFailures int64     `json:"refreshFailures"`
	LastRefreshMs   float64   `json:"lastRefreshMs"`
	LastError       string    `json:"lastError,omitempty"`
	Processed       int64     `json:"partitionsProcessed"`
	Inline          int64     `json:"partitionsInline"`
}

// Service owns the snapshot store and runs aggregation passes on the worker pool.
type Service struct {
	mu sync.RWMutex
	// refreshMu keeps aggregation passes from overlapping.
	refreshMu  sync.Mutex
	fetching   atomic.Bool
	refreshes  atomic.Int64
	failures   atomic.Int64
	lastMicros atomic.Int64
	lastErr    atomic.Pointer[string]

	store      *repository.SnapshotStore
	aggregator *aggregate.Aggregator
	queue      *queue.InMemoryQueue[worker.Job]
	pool       *worker.Pool
	source     Source

	workerCount   int
	queueSize     int
	partitionSize int
	maxLimit      int
	now           func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. The store is usable immediately; Start adds the worker pool.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		partitionSize: 4096,
		maxLimit:      1000,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.store = repository.NewSnapshotStore(
		repository.WithClock(s.now),
		repository.WithMaxLimit(s.maxLimit),
	)
	s.aggregator = aggregate.New(
		aggregate.WithMapper(aggregate.MapperFunc(s.mapPartitions)),
		aggregate.WithPartitionSize(s.partitionSize),
	)
	return s
}

// Start creates the job queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue[worker.Job](queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue,
		worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "stats service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("partitionSize", s.partitionSize),
		logger.Bool("source", s.source != nil),
	)
	return nil
}

// Stop shuts the worker pool down. Lookups keep serving the last snapshot.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	err := s.pool.Shutdown(ctx)
	s.logger.Info(ctx, "stats service stopped")
	return err
}

// mapPartitions uses the pool while it runs and accumulates inline otherwise.
func (s *Service) mapPartitions(ctx context.Context, parts []aggregate.Partition) ([]aggregate.Partial, error) {
	s.mu.RLock()
	pool := s.pool
	started := s.started
	s.mu.RUnlock()

	if started && pool != nil && pool.Running() {
		return pool.Map(ctx, parts)
	}
	return aggregate.Sequential().Map(ctx, parts)
}

// Refresh aggregates players and publishes the result as the new snapshot.
// On failure the previous snapshot stays current.
func (s *Service) Refresh(ctx context.Context, players []model.Player) (aggregate.Result, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	res, err := s.aggregator.Aggregate(ctx, players)
	if err != nil {
		s.recordFailure(ctx, err)
		return aggregate.Result{}, fmt.Errorf("refresh: %w", err)
	}
	snap := s.store.Publish(ctx, res)

	took := time.Since(start)
	s.refreshes.Add(1)
	s.lastMicros.Store(took.Microseconds())
	s.lastErr.Store(nil)
	metrics.RecordRefresh(float64(took.Microseconds()) / 1000)

	s.logger.Info(ctx, "snapshot published",
		logger.Uint64("generation", snap.Generation),
		logger.Int("players", len(res.Players)),
		logger.Int("averages", len(res.Averages)),
		logger.String("dominant", res.Dominant.String()),
		logger.Duration("took", took),
	)
	return res, nil
}

// RefreshFromSource collects the population from the source and refreshes.
// It returns ErrRefreshInProgress instead of queueing behind a running one.
func (s *Service) RefreshFromSource(ctx context.Context) (aggregate.Result, error) {
	if s.source == nil {
		return aggregate.Result{}, ErrNoSource
	}
	if !s.fetching.CompareAndSwap(false, true) {
		return aggregate.Result{}, ErrRefreshInProgress
	}
	defer s.fetching.Store(false)

	players, err := s.source.Collect(ctx)
	if err != nil {
		s.recordFailure(ctx, err)
		return aggregate.Result{}, fmt.Errorf("refresh from source: %w", err)
	}
	return s.Refresh(ctx, players)
}

func (s *Service) recordFailure(ctx context.Context, err error) {
	s.failures.Add(1)
	msg := err.Error()
	s.lastErr.Store(&msg)
	metrics.RecordRefreshError()
	s.logger.Error(ctx, "refresh failed", logger.Error(err))
}

// ComputeMetric evaluates one derived metric for p.
func (s *Service) ComputeMetric(p model.Player, kind calc.Kind) float64 {
	return calc.Compute(p, kind)
}

// Player finds a player in the current snapshot. Real names missing from it
// are fetched live from the source; "$avg" names never are.
func (s *Service) Player(ctx context.Context, name string) (model.Player, error) {
	p, err := s.store.Player(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) || s.source == nil || isAverageName(name) {
		return model.Player{}, err
	}

	live, lerr := s.source.User(ctx, name)
	if lerr != nil {
		s.logger.Debug(ctx, "live lookup failed", logger.String("name", name), logger.Error(lerr))
		return model.Player{}, lerr
	}
	return live, nil
}

func isAverageName(name string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(name)), strings.ToLower(rank.AvgPrefix))
}

// Average returns the synthetic average of bucket r.
func (s *Service) Average(ctx context.Context, r rank.Rank) (model.Player, error) {
	return s.store.Average(ctx, r)
}

// Averages returns every synthetic average of the current snapshot.
func (s *Service) Averages(ctx context.Context) []model.Player {
	return s.store.Averages(ctx)
}

// Leaderboard returns the n highest-rated players.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Count returns the number of players in the current snapshot.
func (s *Service) Count(ctx context.Context) int {
	return s.store.Count(ctx)
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot(ctx context.Context) *repository.Snapshot {
	return s.store.Current(ctx)
}

// Compare resolves up to MaxCompare distinct names, in order.
func (s *Service) Compare(ctx context.Context, names []string) ([]model.Player, error) {
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, strings.TrimSpace(n))
	}
	if len(unique) == 0 || len(unique) > MaxCompare {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrComparePlayers, len(unique), MaxCompare)
	}

	players := make([]model.Player, 0, len(unique))
	for _, n := range unique {
		p, err := s.Player(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", n, err)
		}
		players = append(players, p)
	}
	return players, nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.store.Current(ctx)
	st := Stats{
		Started:         s.started,
		Refreshing:      s.fetching.Load(),
		Workers:         s.workerCount,
		QueueCapacity:   s.queueSize,
		PartitionSize:   s.partitionSize,
		Players:         len(snap.Players),
		Averages:        len(snap.Averages),
		Dominant:        snap.Dominant.String(),
		Generation:      snap.Generation,
		RefreshedAt:     snap.RefreshedAt,
		Refreshes:       s.refreshes.Load(),
		RefreshFailures: s.failures.Load(),
		LastRefreshMs:   float64(s.lastMicros.Load()) / 1000,
	}
	if msg := s.lastErr.Load(); msg != nil {
		st.LastError = *msg
	}
	if s.pool != nil {
		st.QueueCapacity = s.queue.Capacity()
		st.QueueLength = s.queue.Len()
		st.Processed = s.pool.Processed()
		st.Inline = s.pool.Inline()
		metrics.UpdateQueueSize(st.QueueLength)
	}
	return st
}

package repository

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
	"github.com/okian/osker/pkg/metrics"
)

const defaultMaxLimit = 1000

// SnapshotStore implements Store with an atomically swapped *Snapshot.
// Publish is expected to have a single caller at a time; reads never block.
type SnapshotStore struct {
	snapshot   atomic.Pointer[Snapshot]
	generation atomic.Uint64
	now        func() time.Time
	maxLimit   int
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store holding an empty snapshot.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{now: time.Now, maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(emptySnapshot())
	return s
}

// Publish indexes res and swaps it in.
func (s *SnapshotStore) Publish(_ context.Context, res aggregate.Result) *Snapshot {
	start := time.Now()
	gen := s.generation.Add(1)
	snap := buildSnapshot(res, gen, s.now())
	s.snapshot.Store(snap)

	buildMs := float64(time.Since(start).Microseconds()) / 1000
	metrics.UpdateSnapshot(gen, len(snap.Players), len(snap.Averages), snap.RefreshedAt.Unix(), buildMs)
	for _, r := range rank.Display() {
		metrics.UpdateBucketPopulation(r.String(), snap.Counts[r])
	}
	return snap
}

func (s *SnapshotStore) Current(_ context.Context) *Snapshot {
	return s.snapshot.Load()
}

func (s *SnapshotStore) Player(_ context.Context, name string) (model.Player, error) {
	p, ok := s.snapshot.Load().player(name)
	if !ok {
		return model.Player{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

func (s *SnapshotStore) Average(_ context.Context, r rank.Rank) (model.Player, error) {
	p, ok := s.snapshot.Load().average(r)
	if !ok {
		return model.Player{}, fmt.Errorf("%w: %s", ErrNotFound, r.AvgName())
	}
	return p, nil
}

func (s *SnapshotStore) Averages(_ context.Context) []model.Player {
	return slices.Clone(s.snapshot.Load().Averages)
}

func (s *SnapshotStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 || n > s.maxLimit {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	board := s.snapshot.Load().leaderboard
	if n > len(board) {
		n = len(board)
	}
	out := make([]Entry, n)
	copy(out, board[:n])
	return out, nil
}

func (s *SnapshotStore) Count(_ context.Context) int {
	return len(s.snapshot.Load().Players)
}

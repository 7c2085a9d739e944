// Package aggregate groups a player population by rank and produces the
// per-bucket and whole-population synthetic average records.
//
// A pass is a partitioned map-reduce: the input is cut into fixed-size
// partitions, each partition is accumulated independently (possibly on a
// worker pool), and the partials are merged in partition order. Partition
// boundaries do not depend on the worker count, so the float sums and the
// "most populous bucket" tie-break are identical on every run.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
)

const defaultPartitionSize = 4096

// ErrMapperResult is returned when a Mapper answers with the wrong number of partials.
var ErrMapperResult = errors.New("mapper returned mismatched partials")

// Mapper accumulates partitions. Result i must belong to parts[i].
type Mapper interface {
	Map(ctx context.Context, parts []Partition) ([]Partial, error)
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(ctx context.Context, parts []Partition) ([]Partial, error)

func (f MapperFunc) Map(ctx context.Context, parts []Partition) ([]Partial, error) {
	return f(ctx, parts)
}

// Sequential accumulates every partition on the calling goroutine.
func Sequential() Mapper {
	return MapperFunc(func(ctx context.Context, parts []Partition) ([]Partial, error) {
		out := make([]Partial, len(parts))
		for i, part := range parts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = Accumulate(part)
		}
		return out, nil
	})
}

// Result is the output of one pass.
type Result struct {
	// Players is the input population, unmodified.
	Players []model.Player
	// Averages has one record per populated bucket in display order,
	// then the population record, or nothing for empty input.
	Averages []model.Player
	// Dominant is the most populous bucket. Z for empty input.
	Dominant rank.Rank
	// Counts is the population of every bucket.
	Counts [rank.Count]int
}

// Aggregator runs aggregation passes.
type Aggregator struct {
	mapper        Mapper
	partitionSize int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMapper sets the partition mapper. The default is Sequential.
func WithMapper(m Mapper) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.mapper = m
		}
	}
}

// WithPartitionSize sets the number of records per partition.
func WithPartitionSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.partitionSize = n
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{mapper: Sequential(), partitionSize: defaultPartitionSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate runs one pass over players. Empty input yields empty collections.
func (a *Aggregator) Aggregate(ctx context.Context, players []model.Player) (Result, error) {
	res := Result{
		Players:  make([]model.Player, len(players)),
		Averages: []model.Player{},
		Dominant: rank.Z,
	}
	copy(res.Players, players)
	if len(players) == 0 {
		return res, nil
	}

	parts := a.partition(res.Players)
	partials, err := a.mapper.Map(ctx, parts)
	if err != nil {
		return Result{}, fmt.Errorf("aggregate: map partitions: %w", err)
	}
	if len(partials) != len(parts) {
		return Result{}, fmt.Errorf("%w: want %d, got %d", ErrMapperResult, len(parts), len(partials))
	}

	var total Partial
	for i := range partials {
		total.Merge(&partials[i])
	}

	res.Averages, res.Dominant = summarize(&total)
	for i := range total {
		res.Counts[i] = total[i].Count
	}
	return res, nil
}

func (a *Aggregator) partition(players []model.Player) []Partition {
	size := a.partitionSize
	parts := make([]Partition, 0, (len(players)+size-1)/size)
	for off := 0; off < len(players); off += size {
		end := off + size
		if end > len(players) {
			end = len(players)
		}
		parts = append(parts, Partition{Index: len(parts), Offset: off, Players: players[off:end]})
	}
	return parts
}

// summarize emits the bucket means and the population record, which is the
// unweighted mean of the bucket means.
func summarize(total *Partial) ([]model.Player, rank.Rank) {
	averages := make([]model.Player, 0, rank.Count)
	var all Accumulator
	dominant := rank.Z
	best := -1

	for _, r := range rank.Display() {
		acc := total[r]
		if acc.Count == 0 {
			continue
		}
		mean := acc.Mean(r)
		averages = append(averages, mean)
		all.Add(mean, acc.FirstSeen)

		if acc.Count > best || (acc.Count == best && acc.FirstSeen < total[dominant].FirstSeen) {
			best = acc.Count
			dominant = r
		}
	}

	population := all.Mean(rank.All)
	population.Rank = dominant
	averages = append(averages, population)
	return averages, dominant
}

// Package worker runs partition accumulation on a pool of goroutines fed by a queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/pkg/logger"
	"github.com/okian/osker/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// ErrStopped is returned by Map once the pool has shut down.
var ErrStopped = errors.New("worker pool stopped")

// Job asks a worker to accumulate one partition and send the Outcome on Reply.
type Job struct {
	Index     int
	Partition aggregate.Partition
	Reply     chan<- Outcome
}

// Outcome is the Partial of job Index.
type Outcome struct {
	Index   int
	Partial aggregate.Partial
}

// AccumulateFunc turns a partition into its Partial.
type AccumulateFunc func(aggregate.Partition) aggregate.Partial

// Queue is how jobs reach workers.
type Queue interface {
	Enqueue(ctx context.Context, j Job) bool
	Dequeue() <-chan Job
	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryWorker accumulates jobs until the queue is closed or ctx ends.
type InMemoryWorker struct {
	queue      Queue
	accumulate AccumulateFunc
	name       string
	done       chan struct{}
	logger     logger.Logger
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		accumulate: aggregate.Accumulate,
		name:       "worker",
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until the queue channel closes or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, job)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	start := time.Now()
	finish := metrics.WorkerBusy()
	partial := w.accumulate(job.Partition)
	finish()
	metrics.RecordPartitionLatency(float64(time.Since(start).Microseconds()) / 1000)

	w.logger.Debug(ctx, "partition accumulated",
		logger.Int("index", job.Index),
		logger.Int("records", len(job.Partition.Players)),
	)
	// Reply is buffered for every job of a Map call.
	job.Reply <- Outcome{Index: job.Index, Partial: partial}
}

// Pool fans partitions out to workers. It implements aggregate.Mapper.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	accumulate AccumulateFunc

	started   atomic.Bool
	stopOnce  sync.Once
	done      chan struct{}
	processed atomic.Int64
	inline    atomic.Int64

	logger logger.Logger
}

var _ aggregate.Mapper = (*Pool)(nil)

// NewPool creates a pool of workerCount workers; values < 1 use runtime.NumCPU.
func NewPool(workerCount int, q Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      q,
		accumulate: aggregate.Accumulate,
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, wopts...)
	}
	if len(p.workers) > 0 {
		p.accumulate = p.workers[0].accumulate
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *InMemoryWorker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()
	go p.startMetricsUpdater(ctx)

	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			metrics.UpdateQueueSize(p.queue.Len())
		}
	}
}

// Map accumulates parts on the workers. A job the queue rejects is
// accumulated on the calling goroutine, so Map never drops a partition.
func (p *Pool) Map(ctx context.Context, parts []aggregate.Partition) ([]aggregate.Partial, error) {
	if !p.Running() {
		return nil, ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("map partitions: %w", err)
	}

	replies := make(chan Outcome, len(parts))
	for i, part := range parts {
		if p.queue.Enqueue(ctx, Job{Index: i, Partition: part, Reply: replies}) {
			continue
		}
		p.inline.Add(1)
		replies <- Outcome{Index: i, Partial: p.accumulate(part)}
	}

	out := make([]aggregate.Partial, len(parts))
	for received := 0; received < len(parts); received++ {
		select {
		case o := <-replies:
			out[o.Index] = o.Partial
		case <-ctx.Done():
			return nil, fmt.Errorf("map partitions: %w", ctx.Err())
		case <-p.done:
			return nil, ErrStopped
		}
	}
	p.processed.Add(int64(len(parts)))
	return out, nil
}

// Running reports whether the pool has been started and its queue still
// accepts jobs.
func (p *Pool) Running() bool {
	if !p.started.Load() || p.queue.IsClosed() {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed is the number of partitions returned by Map.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Inline is the number of partitions accumulated by callers because the queue was full.
func (p *Pool) Inline() int64 { return p.inline.Load() }

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		if cerr := p.queue.Close(); cerr != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
		}
		if !p.started.Load() {
			return
		}

		waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
		select {
		case <-p.done:
			p.logger.Info(ctx, "worker pool stopped")
		case <-waitCtx.Done():
			err = fmt.Errorf("worker pool shutdown: %w", waitCtx.Err())
			p.logger.Warn(ctx, "worker pool shutdown timed out")
		}
	})
	return err
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/pkg/logger"
)

// Refresher is what the scheduler drives.
type Refresher interface {
	RefreshFromSource(ctx context.Context) (aggregate.Result, error)
}

// RefreshService refreshes on start and then on every interval tick.
// It implements suture.Service.
type RefreshService struct {
	refresher Refresher
	interval  time.Duration
	onStart   bool
	logger    logger.Logger
}

// NewRefreshService creates a scheduler. An interval <= 0 disables ticking.
func NewRefreshService(r Refresher, interval time.Duration, onStart bool) *RefreshService {
	return &RefreshService{
		refresher: r,
		interval:  interval,
		onStart:   onStart,
		logger:    logger.Get().Named("scheduler"),
	}
}

// Serve blocks until ctx is done. Refresh failures are logged and retried on
// the next tick; they never end Serve.
func (r *RefreshService) Serve(ctx context.Context) error {
	if r.onStart {
		r.run(ctx)
	}
	if r.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

func (r *RefreshService) run(ctx context.Context) {
	res, err := r.refresher.RefreshFromSource(ctx)
	switch {
	case err == nil:
		r.logger.Debug(ctx, "scheduled refresh done", logger.Int("players", len(res.Players)))
	case errors.Is(err, ErrRefreshInProgress):
		r.logger.Debug(ctx, "refresh already running, tick skipped")
	case ctx.Err() != nil:
		// shutting down
	default:
		r.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
	}
}

func (r *RefreshService) String() string { return "refresh-scheduler" }

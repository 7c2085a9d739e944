package tetrio

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/osker/pkg/logger"
	"github.com/okian/osker/pkg/metrics"
)

const breakerName = "tetrio-api"

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]byte] {
	metrics.UpdateBreakerState(stateValue(gobreaker.StateClosed))
	tripAfter := c.tripAfter
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    c.cooldown * 2,
		Timeout:     c.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		// unknown users and caller cancellation say nothing about remote health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrUserNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateBreakerState(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerState reports the breaker state as "closed", "half-open" or "open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

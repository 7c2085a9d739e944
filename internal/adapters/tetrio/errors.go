package tetrio

import "errors"

var (
	// ErrAPI is returned when the remote answers with success=false.
	ErrAPI = errors.New("tetrio api error")
	// ErrUserNotFound is returned for names the remote does not know.
	ErrUserNotFound = errors.New("tetrio user not found")
	// ErrNoLeagueStats is returned for users without Tetra League stats.
	ErrNoLeagueStats = errors.New("tetrio user has no league stats")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("unexpected tetrio status")
	// ErrBreakerOpen is returned while the circuit breaker rejects calls.
	ErrBreakerOpen = errors.New("tetrio circuit breaker open")
)

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/osker/internal/adapters/repository"
	"github.com/okian/osker/internal/adapters/tetrio"
	service "github.com/okian/osker/internal/app"
	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/rank"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrRender     = errors.New("render failed")
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, tetrio.ErrUserNotFound),
		errors.Is(err, tetrio.ErrNoLeagueStats):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, calc.ErrUnknownKind),
		errors.Is(err, rank.ErrUnknownRank),
		errors.Is(err, service.ErrComparePlayers):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrRefreshInProgress):
		return http.StatusConflict, "refresh_in_progress"
	case errors.Is(err, service.ErrNoSource),
		errors.Is(err, tetrio.ErrBreakerOpen):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, tetrio.ErrAPI),
		errors.Is(err, tetrio.ErrStatus):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

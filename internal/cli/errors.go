package cli

import (
	"errors"
	"fmt"
)

// Error constants.
var (
	ErrArgs   = errors.New("invalid arguments")
	ErrServer = errors.New("server error")
	ErrVerify = errors.New("verification failed")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrServer }

package translation

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotConfigured = errors.New("translation provider is not configured")
	ErrRateLimited   = errors.New("translation provider rate limit exceeded")
	ErrThrottled     = errors.New("translation is throttled after a rate limit")
	ErrEmptyResult   = errors.New("translation response was empty")
	ErrQueueClosed   = errors.New("translation queue is closed")
)

// StatusError is a non-success answer from a provider. A 429 matches ErrRateLimited.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("translation endpoint status %d", e.StatusCode)
	}
	return fmt.Sprintf("translation endpoint status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// Error carries the operation and provider of a failed gateway call. The
// gateway logs it and falls back to the original text.
type Error struct {
	Op       string
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s via %s: %v", e.Op, e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

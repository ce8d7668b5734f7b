// Package errors defines the sentinel errors and error types shared across
// the application, plus the mapping from errors to HTTP status codes used by
// the API server.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmojiNotFound      = errors.New("emoji not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrNoCollectionsFile  = errors.New("no collections file configured")
	ErrAliasNotFound      = errors.New("alias not found")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// CollectionError reports a collection file that could not be read or
// parsed. It is never cached: the next lookup retries the file from scratch.
type CollectionError struct {
	Path string
	Err  error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection file %s: %v", e.Path, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// AppError pairs an underlying sentinel with a user-facing message and the
// HTTP status the API server should respond with.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the API server responds
// with. Unrecognized errors map to 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var collErr *CollectionError
	if errors.As(err, &collErr) {
		return http.StatusFailedDependency
	}

	switch {
	case errors.Is(err, ErrEmojiNotFound),
		errors.Is(err, ErrCategoryNotFound),
		errors.Is(err, ErrCollectionNotFound),
		errors.Is(err, ErrAliasNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrNoCollectionsFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDatasetUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned when the rate limiter blocks a request.
	ErrRateLimited = errors.New("request blocked: hubspot rate limit exhausted")
)

// HubSpotError is a classified HubSpot failure. For status failures the
// fields of HubSpot's JSON error body are carried along when present.
type HubSpotError struct {
	StatusCode    int
	ErrorClass    ErrorClass
	Message       string
	Category      string
	CorrelationID string

	// RetryAfter is the wait HubSpot asked for in a Retry-After header.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *HubSpotError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HubSpot %s error (status %d)", e.ErrorClass, e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.CorrelationID != "" {
		fmt.Fprintf(&b, " [correlation %s]", e.CorrelationID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HubSpotError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of the first *HubSpotError in err's chain, or ""
// when there is none.
func ClassOf(err error) ErrorClass {
	var hsErr *HubSpotError
	if errors.As(err, &hsErr) {
		return hsErr.ErrorClass
	}
	return ""
}

// errorBody is the error document HubSpot sends with non-2xx responses.
type errorBody struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlationId"`
}

// newStatusError builds the error for a failed response from its headers
// and body, falling back to the status text when the body is not HubSpot's
// format.
func newStatusError(status int, class ErrorClass, header http.Header, body []byte) *HubSpotError {
	e := &HubSpotError{
		StatusCode: status,
		ErrorClass: class,
		Message:    http.StatusText(status),
		RetryAfter: parseRetryAfter(header.Get("Retry-After")),
	}

	var doc errorBody
	if len(body) > 0 && json.Unmarshal(body, &doc) == nil {
		if doc.Message != "" {
			e.Message = doc.Message
		}
		e.Category = doc.Category
		e.CorrelationID = doc.CorrelationID
	}
	return e
}

// parseRetryAfter accepts delay-seconds or an HTTP date. Anything else, or a
// date in the past, yields 0.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// retryAfterOf returns the Retry-After carried by err, if any.
func retryAfterOf(err error) time.Duration {
	var hsErr *HubSpotError
	if errors.As(err, &hsErr) {
		return hsErr.RetryAfter
	}
	return 0
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx other than 429 fail the same way again
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

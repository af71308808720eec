package lists

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the lists client.
var (
	// ErrUnsupportedAction is returned when an Action has no path template.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrInvalidRouteBase is returned when an entity has an empty route base path.
	ErrInvalidRouteBase = errors.New("route base path is required")

	// ErrInvalidListID is returned for list ids that are not positive.
	ErrInvalidListID = errors.New("list id must be positive")

	// ErrNilPayload is returned when a batch mutation is called without a payload.
	ErrNilPayload = errors.New("batch payload is required")
)

// TransportError is returned when the HTTP exchange itself failed
// (connectivity, timeout, unreadable response).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("hubspot transport error (%s %s): %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeserializationError is returned when a response body does not decode
// into the requested result type.
type DeserializationError struct {
	Type string
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decode hubspot response into %s: %v", e.Type, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// SerializationError is returned when a batch payload cannot be encoded.
type SerializationError struct {
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("encode hubspot request body: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// APIError is a well-formed, unsuccessful HubSpot response to a fetch.
// Batch mutations report the same condition as a false result instead.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot api request failed with status %d: %s", e.StatusCode, e.Body)
}

func isErrorStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}

// IsNotFound reports whether err is a 404 from HubSpot, e.g. an unknown list id.
func IsNotFound(err error) bool {
	return isErrorStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from HubSpot.
func IsUnauthorized(err error) bool {
	return isErrorStatus(err, http.StatusUnauthorized)
}

// IsTransportError reports whether err was caused by the HTTP exchange itself.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestHubSpotError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HubSpotError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &HubSpotError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "HubSpot network error (status 0): request failed: connection refused",
		},
		{
			name: "status only",
			err: &HubSpotError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "Too Many Requests",
			},
			expected: "HubSpot rate_limit error (status 429): Too Many Requests",
		},
		{
			name: "with correlation id",
			err: &HubSpotError{
				StatusCode:    502,
				ErrorClass:    ErrorClassServer,
				Message:       "internal error",
				CorrelationID: "4f2c-91",
			},
			expected: "HubSpot server error (status 502): internal error [correlation 4f2c-91]",
		},
		{
			name:     "no message",
			err:      &HubSpotError{StatusCode: 500, ErrorClass: ErrorClassServer},
			expected: "HubSpot server error (status 500)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHubSpotError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: timeout")
	err := error(&HubSpotError{ErrorClass: ErrorClassNetwork, Err: inner})

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var hsErr *HubSpotError
	if !errors.As(err, &hsErr) {
		t.Fatal("errors.As should match *HubSpotError")
	}
	if hsErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want %q", hsErr.ErrorClass, ErrorClassNetwork)
	}

	if (&HubSpotError{}).Unwrap() != nil {
		t.Error("Unwrap() without inner error should be nil")
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		wantMessage     string
		wantCategory    string
		wantCorrelation string
	}{
		{
			name:            "hubspot error document",
			status:          429,
			body:            `{"status":"error","message":"You have reached your secondly limit.","category":"RATE_LIMITS","correlationId":"abc-123"}`,
			wantMessage:     "You have reached your secondly limit.",
			wantCategory:    "RATE_LIMITS",
			wantCorrelation: "abc-123",
		},
		{
			name:        "html body",
			status:      502,
			body:        "<html>Bad Gateway</html>",
			wantMessage: "Bad Gateway",
		},
		{
			name:        "empty body",
			status:      503,
			wantMessage: "Service Unavailable",
		},
		{
			name:        "document without message",
			status:      500,
			body:        `{"status":"error"}`,
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newStatusError(tt.status, ErrorClassServer, http.Header{}, []byte(tt.body))
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
			if err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMessage)
			}
			if err.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCategory)
			}
			if err.CorrelationID != tt.wantCorrelation {
				t.Errorf("CorrelationID = %q, want %q", err.CorrelationID, tt.wantCorrelation)
			}
		})
	}
}

func TestClassOf(t *testing.T) {
	wrapped := fmt.Errorf("%w after 3 attempts: %w", ErrRetryExhausted,
		&HubSpotError{ErrorClass: ErrorClassNetwork, Err: errors.New("reset")})

	if got := ClassOf(wrapped); got != ErrorClassNetwork {
		t.Errorf("ClassOf(wrapped) = %q, want %q", got, ErrorClassNetwork)
	}
	if got := ClassOf(errors.New("plain")); got != "" {
		t.Errorf("ClassOf(plain) = %q, want empty", got)
	}
	if got := ClassOf(nil); got != "" {
		t.Errorf("ClassOf(nil) = %q, want empty", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"empty", "", 0, 0},
		{"seconds", "3", 3 * time.Second, 3 * time.Second},
		{"negative", "-1", 0, 0},
		{"garbage", "soon", 0, 0},
		{"future date", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat), 58 * time.Second, time.Minute},
		{"past date", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRetryAfter(tt.value)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("parseRetryAfter(%q) = %v, want between %v and %v", tt.value, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestNewStatusError_RetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "2")

	err := newStatusError(http.StatusTooManyRequests, ErrorClassRateLimit, header, nil)
	if err.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", err.RetryAfter)
	}
	if got := retryAfterOf(fmt.Errorf("wrapped: %w", err)); got != 2*time.Second {
		t.Errorf("retryAfterOf() = %v, want 2s", got)
	}
}

// Package ratelimit tracks HubSpot API rate limits and gates requests.
// It reads the X-HubSpot-RateLimit-* response headers and shares the
// resulting state across client instances through Redis.
package ratelimit

import (
	"time"
)

// HubSpot rate limit response headers.
const (
	HeaderRemaining      = "X-HubSpot-RateLimit-Remaining"
	HeaderMax            = "X-HubSpot-RateLimit-Max"
	HeaderIntervalMillis = "X-HubSpot-RateLimit-Interval-Milliseconds"
	HeaderDailyRemaining = "X-HubSpot-RateLimit-Daily-Remaining"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "hubspot:rate_limit:remaining"
	RedisKeyDailyRemaining = "hubspot:rate_limit:daily_remaining"
	RedisKeyResetTimestamp = "hubspot:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "hubspot:rate_limit:last_update"
)

// Thresholds for rate limit decisions, in requests left in the current window.
const (
	// ThresholdCritical blocks requests until the window resets.
	ThresholdCritical = 2

	// ThresholdWarning slows requests down.
	ThresholdWarning = 10

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 25
)

// DailyRetryInterval bounds how long a reported exhausted daily budget blocks
// requests. HubSpot does not announce when the daily budget resets, so once
// the interval has passed one request is let through to learn the new value.
const DailyRetryInterval = 15 * time.Minute

// unknownRemaining marks a daily budget HubSpot did not report.
const unknownRemaining = -1

// RateLimitState represents the current HubSpot rate limit state.
type RateLimitState struct {
	// Remaining is the number of requests left in the current burst window.
	Remaining int `json:"remaining"`

	// DailyRemaining is the number of requests left today, or -1 when unknown.
	DailyRemaining int `json:"daily_remaining"`

	// ResetAt is when the burst window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy and the daily
	// budget is not exhausted.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// WindowExpired returns true once the burst window has reset, at which point
// the recorded Remaining no longer applies.
func (s *RateLimitState) WindowExpired() bool {
	return !time.Now().Before(s.ResetAt)
}

// DailyExhausted returns true when HubSpot reported no daily budget left
// within the last DailyRetryInterval.
func (s *RateLimitState) DailyExhausted() bool {
	return s.DailyRemaining == 0 && !s.IsStale(DailyRetryInterval)
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	if s.DailyExhausted() {
		return true
	}
	return !s.WindowExpired() && s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return !s.WindowExpired() && s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the burst window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy && !s.DailyExhausted()
}

package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	hubspotRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	hubspotRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	hubspotRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass returns the appropriate retry configuration for an error class.
func RetryConfigForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassServer:
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassRateLimit:
		// HubSpot burst windows are 10 seconds
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassNetwork:
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultRetryConfig()
	}
}

// applyOverride replaces the non-zero fields of override in c.
func (c RetryConfig) applyOverride(override RetryConfig) RetryConfig {
	if override.MaxAttempts > 0 {
		c.MaxAttempts = override.MaxAttempts
	}
	if override.InitialBackoff > 0 {
		c.InitialBackoff = override.InitialBackoff
		if c.MaxBackoff < c.InitialBackoff {
			c.MaxBackoff = c.InitialBackoff
		}
	}
	if override.MaxBackoff > 0 {
		c.MaxBackoff = override.MaxBackoff
	}
	if override.BackoffMultiplier > 0 {
		c.BackoffMultiplier = override.BackoffMultiplier
	}
	return c
}

// retryWithBackoff executes fn with jittered exponential backoff. The policy
// is chosen from the class of the latest failure, with override applied on
// top. A Retry-After longer than the computed wait is honoured up to
// MaxBackoff.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, override RetryConfig, fn func(attempt int) error, classify func(error) ErrorClass) error {
	var (
		lastErr    error
		errorClass ErrorClass
		backoff    time.Duration
		config     RetryConfig
	)

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = classify(err)
		if !shouldRetry(errorClass) {
			return lastErr
		}

		config = RetryConfigForErrorClass(errorClass).applyOverride(override)
		if attempt >= config.MaxAttempts {
			break
		}

		if backoff == 0 {
			backoff = config.InitialBackoff
		}

		hubspotRetriesTotal.WithLabelValues(string(errorClass)).Inc()

		// ±20% jitter
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		if ra := retryAfterOf(err); ra > wait {
			wait = min(ra, config.MaxBackoff)
		}
		hubspotRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		logger.Warn().
			Err(err).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	hubspotRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}

package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	hubspotRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubspot_rate_limit_remaining",
		Help: "Requests remaining in the current HubSpot burst window",
	})

	hubspotDailyRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubspot_rate_limit_daily_remaining",
		Help: "Requests remaining in the current HubSpot daily budget",
	})

	hubspotRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubspot_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to an exhausted rate limit",
	})

	hubspotRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubspot_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low rate limit",
	})
)

// DefaultInterval is the burst window assumed when HubSpot omits the interval header.
const DefaultInterval = 10 * time.Second

// MaxThrottle caps the delay applied to a throttled request.
const MaxThrottle = 1 * time.Second

// Tracker monitors HubSpot rate limits and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		sleep:  sleepContext,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	values, err := t.redis.MGet(ctx,
		RedisKeyRemaining,
		RedisKeyDailyRemaining,
		RedisKeyResetTimestamp,
		RedisKeyLastUpdate,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if values[0] == nil || values[3] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		now := time.Now()
		return &RateLimitState{
			Remaining:      ThresholdHealthy * 4,
			DailyRemaining: unknownRemaining,
			ResetAt:        now,
			LastUpdate:     now,
			IsHealthy:      true,
		}, nil
	}

	remaining, err := parseInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}

	daily := unknownRemaining
	if values[1] != nil {
		if daily, err = parseInt(values[1]); err != nil {
			return nil, fmt.Errorf("parse daily remaining: %w", err)
		}
	}

	resetUnixMilli := int64(0)
	if values[2] != nil {
		v, err := parseInt(values[2])
		if err != nil {
			return nil, fmt.Errorf("parse reset timestamp: %w", err)
		}
		resetUnixMilli = int64(v)
	}

	var lastUpdate time.Time
	if s, ok := values[3].(string); ok {
		if err := json.Unmarshal([]byte(s), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Remaining:      remaining,
		DailyRemaining: daily,
		ResetAt:        time.UnixMilli(resetUnixMilli),
		LastUpdate:     lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses HubSpot rate limit headers and updates Redis state.
// Responses without rate limit headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	interval := DefaultInterval
	if intervalStr := headers.Get(HeaderIntervalMillis); intervalStr != "" {
		ms, err := strconv.Atoi(intervalStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderIntervalMillis, err)
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	daily := unknownRemaining
	if dailyStr := headers.Get(HeaderDailyRemaining); dailyStr != "" {
		if daily, err = strconv.Atoi(dailyStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderDailyRemaining, err)
		}
	}

	now := time.Now()
	state := &RateLimitState{
		Remaining:      remain,
		DailyRemaining: daily,
		ResetAt:        now.Add(interval),
		LastUpdate:     now,
	}
	state.UpdateHealth()

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, remain, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.UnixMilli(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
	if daily == unknownRemaining {
		pipe.Del(ctx, RedisKeyDailyRemaining)
	} else {
		pipe.Set(ctx, RedisKeyDailyRemaining, daily, DailyRetryInterval)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	hubspotRequestsRemaining.Set(float64(remain))
	if daily != unknownRemaining {
		hubspotDailyRemaining.Set(float64(daily))
	}

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("requests_remaining", remain).
			Int("daily_remaining", daily).
			Time("reset_at", state.ResetAt).
			Msg("HubSpot rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("requests_remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("HubSpot rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("requests_remaining", remain).
			Int("daily_remaining", daily).
			Bool("is_healthy", state.IsHealthy).
			Msg("HubSpot rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current rate limit state.
// Returns false if the request should be blocked. A throttled request is
// delayed (at most MaxThrottle or until the window resets) and then allowed.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("requests_remaining", state.Remaining).
			Int("daily_remaining", state.DailyRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("HubSpot rate limit critical - blocking request")

		hubspotRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		delay := state.TimeUntilReset()
		if delay > MaxThrottle {
			delay = MaxThrottle
		}

		t.logger.Warn().
			Int("requests_remaining", state.Remaining).
			Dur("delay", delay).
			Msg("HubSpot rate limit warning - throttling request")

		hubspotRateLimitThrottlesTotal.Inc()
		if err := t.sleep(ctx, delay); err != nil {
			return false, err
		}
	}

	return true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseInt(v interface{}) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected redis value type")
	}
	return strconv.Atoi(s)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrMiss is returned when no page is stored under a key.
	ErrMiss = errors.New("cache miss")

	// ErrCorrupt is returned when a stored page cannot be decoded.
	ErrCorrupt = errors.New("corrupt cache entry")
)

const invalidateBatch = 100

// Store keeps list pages in Redis. Expiry is left to Redis key TTLs.
type Store struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewStore creates a page store on rdb.
func NewStore(rdb *redis.Client, logger zerolog.Logger) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	return &Store{
		rdb:    rdb,
		logger: logger.With().Str("component", "page-store").Logger(),
	}, nil
}

// Lookup returns the page stored under key, or ErrMiss.
func (s *Store) Lookup(ctx context.Context, key Key) (*Entry, error) {
	data, err := s.rdb.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheMisses.Inc()
			return nil, ErrMiss
		}
		cacheErrors.WithLabelValues("lookup").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("lookup").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	cacheHits.Inc()
	return &entry, nil
}

// Save stores entry under key until entry.RetainUntil. Entries that are
// already due are skipped.
func (s *Store) Save(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return errors.New("cache entry is nil")
	}

	ttl := entry.Remaining()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.rdb.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	cacheStoredBytes.Add(float64(len(data)))
	return nil
}

// Extend keeps the page under key until the given time. It returns ErrMiss
// when the page is gone.
func (s *Store) Extend(ctx context.Context, key Key, until time.Time) error {
	ok, err := s.rdb.ExpireAt(ctx, key.String(), until).Result()
	if err != nil {
		cacheErrors.WithLabelValues("extend").Inc()
		return fmt.Errorf("redis expireat: %w", err)
	}
	if !ok {
		return ErrMiss
	}
	return nil
}

// InvalidateUnder drops every page of scope stored below dir, e.g. all
// pages of "/contacts/v1/lists/42". It returns the number of keys removed.
func (s *Store) InvalidateUnder(ctx context.Context, scope, dir string) (int, error) {
	pattern := UnderPattern(scope, dir)
	iter := s.rdb.Scan(ctx, 0, pattern, invalidateBatch).Iterator()

	removed := 0
	batch := make([]string, 0, invalidateBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == invalidateBatch {
			if err := flush(); err != nil {
				cacheErrors.WithLabelValues("invalidate").Inc()
				return removed, fmt.Errorf("redis del: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		cacheErrors.WithLabelValues("invalidate").Inc()
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	if err := flush(); err != nil {
		cacheErrors.WithLabelValues("invalidate").Inc()
		return removed, fmt.Errorf("redis del: %w", err)
	}

	cacheInvalidated.Add(float64(removed))
	s.logger.Debug().Str("dir", dir).Int("removed", removed).Msg("Invalidated stored pages")
	return removed, nil
}

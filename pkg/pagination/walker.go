package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/hubspot-lists-client/pkg/lists"
)

var (
	// ErrMaxPagesExceeded is returned when a list has more pages than Config.MaxPages.
	ErrMaxPagesExceeded = errors.New("maximum page count exceeded")

	// ErrStalledCursor is returned when HubSpot reports more pages without
	// advancing the vid-offset.
	ErrStalledCursor = errors.New("pagination cursor did not advance")
)

// Config holds pagination configuration.
type Config struct {
	// MaxConcurrency is the maximum number of lists fetched in parallel.
	MaxConcurrency int

	// Timeout bounds the walk of a single list.
	Timeout time.Duration

	// PageSize is sent as count on every page request (HubSpot caps it at 100).
	PageSize int

	// MaxPages stops a walk that exceeds this many pages (0 for no limit).
	MaxPages int
}

// DefaultConfig returns safe default configuration for HubSpot.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        2 * time.Minute,
		PageSize:       100,
		MaxPages:       1000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
	return c
}

// PageFetcher fetches a single page of list membership. *lists.Client implements it.
type PageFetcher interface {
	GetContacts(ctx context.Context, listID int64, opts *lists.RequestOptions) (*lists.ContactListPage, error)
}

// Walker follows the vid-offset cursor of a single list.
type Walker struct {
	fetcher PageFetcher
	config  Config
}

// NewWalker creates a new walker.
func NewWalker(fetcher PageFetcher, config Config) *Walker {
	return &Walker{
		fetcher: fetcher,
		config:  config.withDefaults(),
	}
}

// Walk calls fn for every page of listID, starting at the beginning, and
// returns the number of pages read. It stops at the first error from the
// fetcher or from fn.
func (w *Walker) Walk(ctx context.Context, listID int64, fn func(page *lists.ContactListPage) error) (int, error) {
	opts := &lists.RequestOptions{PageSize: w.config.PageSize}
	pages := 0

	for opts != nil {
		if w.config.MaxPages > 0 && pages >= w.config.MaxPages {
			return pages, fmt.Errorf("list %d: %w (%d)", listID, ErrMaxPagesExceeded, w.config.MaxPages)
		}

		page, err := w.fetcher.GetContacts(ctx, listID, opts)
		if err != nil {
			return pages, fmt.Errorf("list %d page %d: %w", listID, pages+1, err)
		}
		pages++

		if err := fn(page); err != nil {
			return pages, err
		}

		next := page.NextOptions(w.config.PageSize)
		if next != nil && opts.Offset != nil && *next.Offset == *opts.Offset {
			return pages, fmt.Errorf("list %d: %w at vid-offset %d", listID, ErrStalledCursor, *opts.Offset)
		}
		opts = next
	}

	log.Debug().
		Int64("list_id", listID).
		Int("pages", pages).
		Msg("List walk complete")

	return pages, nil
}

// All returns every contact of listID.
func (w *Walker) All(ctx context.Context, listID int64) ([]lists.Contact, error) {
	var contacts []lists.Contact
	_, err := w.Walk(ctx, listID, func(page *lists.ContactListPage) error {
		contacts = append(contacts, page.Contacts...)
		return nil
	})
	if err != nil {
		return contacts, err
	}
	return contacts, nil
}

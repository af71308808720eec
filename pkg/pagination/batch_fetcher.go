package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/hubspot-lists-client/pkg/lists"
)

// ListResult represents the result of fetching one list.
type ListResult struct {
	ListID   int64
	Contacts []lists.Contact
	Pages    int
	Error    error
}

// BatchFetcher fetches the membership of many lists in parallel.
type BatchFetcher struct {
	walker *Walker
	config Config
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	config = config.withDefaults()
	return &BatchFetcher{
		walker: NewWalker(fetcher, config),
		config: config,
	}
}

// FetchLists fetches every list in listIDs using a worker pool.
// Returns map of listID -> contacts for the lists that completed; the
// error joins the failures of the others (partial results).
func (bf *BatchFetcher) FetchLists(ctx context.Context, listIDs []int64) (map[int64][]lists.Contact, error) {
	start := time.Now()

	ids := dedupe(listIDs)
	results := make(map[int64][]lists.Contact, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	workers := min(bf.config.MaxConcurrency, len(ids))

	log.Info().
		Int("lists", len(ids)).
		Int("workers", workers).
		Msg("Starting parallel list fetch")

	listQueue := make(chan int64, len(ids))
	for _, id := range ids {
		listQueue <- id
	}
	close(listQueue)

	listResults := make(chan ListResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, listQueue, listResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(listResults)
	}()

	var errs []error
	contacts := 0
	for result := range listResults {
		if result.Error != nil {
			log.Warn().
				Err(result.Error).
				Int64("list_id", result.ListID).
				Msg("List fetch failed")
			errs = append(errs, result.Error)
			continue
		}
		results[result.ListID] = result.Contacts
		contacts += len(result.Contacts)
	}

	// Lists never picked up because the context ended
	if missing := len(ids) - len(results) - len(errs); missing > 0 {
		errs = append(errs, fmt.Errorf("%d lists not fetched: %w", missing, ctx.Err()))
	}

	if len(errs) > 0 {
		log.Warn().
			Int("fetched_lists", len(results)).
			Int("total_lists", len(ids)).
			Msg("Returning partial results")
		return results, fmt.Errorf("partial data (%d/%d lists): %w", len(results), len(ids), errors.Join(errs...))
	}

	log.Info().
		Int("lists", len(results)).
		Int("contacts", contacts).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes lists from the queue.
func (bf *BatchFetcher) worker(ctx context.Context, listQueue <-chan int64, results chan<- ListResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	listsProcessed := 0

	for listID := range listQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("lists_processed", listsProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		listCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		contacts, pages, err := bf.fetchList(listCtx, listID)
		cancel()

		results <- ListResult{
			ListID:   listID,
			Contacts: contacts,
			Pages:    pages,
			Error:    err,
		}
		listsProcessed++
	}

	if listsProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("lists_processed", listsProcessed).
			Msg("Worker completed")
	}
}

func (bf *BatchFetcher) fetchList(ctx context.Context, listID int64) ([]lists.Contact, int, error) {
	var contacts []lists.Contact
	pages, err := bf.walker.Walk(ctx, listID, func(page *lists.ContactListPage) error {
		contacts = append(contacts, page.Contacts...)
		return nil
	})
	return contacts, pages, err
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

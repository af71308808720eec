// Package pagination walks HubSpot contact lists page by page.
//
// HubSpot returns list membership in pages linked by a vid-offset cursor:
// every page reports has-more and the offset to pass as vidOffset for the
// next request. Walker follows that cursor for one list; BatchFetcher reads
// many lists in parallel using a bounded worker pool.
//
// # Basic Usage
//
//	c, _ := lists.NewDefault(apiKey)
//	w := pagination.NewWalker(c, pagination.DefaultConfig())
//	contacts, err := w.All(ctx, 42)
//
//	bf := pagination.NewBatchFetcher(c, pagination.DefaultConfig())
//	members, err := bf.FetchLists(ctx, []int64{42, 43, 44})
//	// members holds every list that completed, err joins the failures
//
// # Concurrency
//
// HubSpot allows 100 requests per 10 seconds for private apps. The default
// of 4 workers keeps a full crawl well below that while the transport's
// rate limiter handles the remainder.
package pagination

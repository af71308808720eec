// Package cache keeps HubSpot list pages in Redis so repeated fetches can be
// revalidated with a conditional request instead of being transferred again.
//
// A stored page is never served on its own. The transport always asks
// HubSpot, sending If-None-Match or If-Modified-Since from the stored
// validators, and only replays the stored body when HubSpot answers
// 304 Not Modified. After a successful add or remove the pages of the
// affected list are dropped with InvalidateUnder.
//
// # Key layout
//
//	hubspot:page:{scope}:{path}[?{sorted query}]
//
// The scope is derived from the credential with ScopeFor, so portals sharing
// one Redis never see each other's pages.
//
// # Usage
//
//	store, err := cache.NewStore(rdb, logger)
//
//	key := cache.Key{
//		Path:  "/contacts/v1/lists/42/contacts/all",
//		Query: url.Values{"count": []string{"100"}},
//		Scope: cache.ScopeFor(apiKey),
//	}
//
//	entry, err := store.Lookup(ctx, key)
//	if err == nil {
//		entry.ApplyValidators(req)
//	}
//
// # Metrics
//
//   - hubspot_cache_hits_total
//   - hubspot_cache_misses_total
//   - hubspot_cache_stored_bytes_total
//   - hubspot_cache_invalidated_total
//   - hubspot_304_responses_total
//   - hubspot_conditional_requests_total
//   - hubspot_cache_errors_total{operation}
package cache

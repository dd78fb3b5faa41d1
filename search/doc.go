// Package search composes the provider registry, the cache and the scoring
// engine into the scored search pipeline.
//
// A request is canonicalized, looked up in the scored-result cache and, on a
// miss, fetched from the default provider, scored, sorted and written back.
// Concurrent misses for the same key share one computation unless
// coalescing is disabled.
package search

// Package cache stores upstream and scored search results behind content
// addressed keys.
//
// Keys are derived from a canonical JSON rendering of the request payload
// (StableStringify) hashed with SHA-256 and namespaced by a Prefix. The Store
// wraps a Backend (Redis in production, memory in tests) and never surfaces
// backend failures to its callers: a failed read is a miss and a failed write
// is dropped.
package cache

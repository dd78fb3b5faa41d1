// Package github implements vcs.Provider over the GitHub REST search API.
//
// Structured parameters become a GitHub search query, are validated and
// clamped to the API's paging limits, and the canonical request payload
// keys a raw-result cache entry. Misses call GET /search/repositories and
// map the reply into vcs.Repository values.
package github

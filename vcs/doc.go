// Package vcs defines the provider abstraction over upstream repository
// search APIs: the canonical repository model, the Provider interface, an
// explicit Registry, and the error taxonomy every provider reports through.
//
// Errors are classified once, by the provider, into four kinds:
//
//   - *BadRequestError: the query was rejected before any network call.
//   - *RateLimitedError: the upstream reported an exhausted quota.
//   - *UpstreamAPIError: any other upstream error status.
//   - *ServiceUnavailableError: the upstream could not be reached.
//
// Each kind matches a sentinel with errors.Is and exposes a machine-readable
// ErrorCode and HTTPStatus.
package vcs

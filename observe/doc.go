// Package observe provides the logging, metrics and tracing capability that
// every reposcore component receives by composition.
//
// It is a pure instrumentation library: no search logic, no transport, no I/O
// beyond exporter setup. The composition root builds an Observer once,
// derives a Telemetry bundle from it and hands that bundle to the cache
// store, the HTTP client, the providers and the search service.
package observe

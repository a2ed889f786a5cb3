// Package index fetches pages of documents from a remote document index.
//
// A Fetcher wraps an index Dialer with a fixed-delay retry policy. Each
// attempt opens a fresh connection, so a connection left broken by a failed
// attempt never leaks into the next one. Transient failures are retried up
// to the configured trial budget, or indefinitely when the budget is
// unbounded; errors marked Permanent fail immediately.
//
// Implementations of Dialer live in subpackages: solr talks to a Solr
// select handler over HTTP, mock serves an in-memory corpus for tests.
package index

// Package httputil provides retry helpers for HTTP clients.
//
// Transient failures (connection errors, 5xx responses) should be wrapped
// in [RetryableError] so that a [Policy] re-attempts them with exponential
// backoff; all other errors fail fast.
package httputil

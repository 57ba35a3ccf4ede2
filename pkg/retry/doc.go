// Package retry provides backoff schedules and a retry loop for transient
// failures such as 403/429 answers from the image CDN.
//
// Features:
//   - Exponential and constant backoff strategies
//   - Optional jitter (off for the deterministic factor * 2^i schedule)
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Injectable sleep so tests can observe waits without blocking
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return fetch(url)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.FactorBackoff(1.0),
//		Context:     ctx,
//		Logger:      log,
//	})
//
// Do waits NextDelay(n) after the n-th failed attempt and never waits after
// the last one. Errors not accepted by RetryIf are returned immediately.
package retry

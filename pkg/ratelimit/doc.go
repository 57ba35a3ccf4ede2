// Package ratelimit paces image downloads.
//
// NewPerMinute returns a token bucket backed by golang.org/x/time/rate, or
// Unlimited when no rate is configured. Both implement Limiter, whose Wait
// blocks until a request may proceed or the context is done.
package ratelimit

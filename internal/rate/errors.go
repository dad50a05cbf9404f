package rate

import "errors"

var (
	// ErrRateLimited reports that the caller spent the window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure while reading or writing a counter.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

package runner

import "sync/atomic"

// CancelToken signals cooperative cancellation into a running loop. It is
// safe to call Cancel from a signal handler goroutine while the loop polls
// Cancelled between iterations.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the token. Idempotent.
func (t *CancelToken) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	return t.flag.Load()
}

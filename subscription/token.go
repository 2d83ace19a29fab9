package subscription

import (
	"context"
	"sync"
)

// Token represents the outbound cluster-gossip publish that follows a
// local subscribe/unsubscribe/clear. The local mutation (remote store
// write, inner-cache mirror) has already completed and is reflected in the
// error Subscribe/Unsubscribe/ClearClient return directly — a Token only
// lets a caller observe when the best-effort broadcast to peers finishes,
// without blocking on it.
//
// A Token's Error is always nil or a cluster bus failure; per the
// error-handling design a bus failure is never surfaced as an operation
// failure; it exists on Token purely so tests and diagnostics can observe
// it without a sleep.
//
// Example (fire-and-forget, the common case):
//
//	_, err := svc.Subscribe(ctx, r)
//
// Example (observe gossip completion, e.g. in a test):
//
//	tok, err := svc.Subscribe(ctx, r)
//	if err := tok.Wait(ctx); err != nil {
//	    log.Printf("gossip publish failed: %v", err)
//	}
type Token interface {
	// Wait blocks until the gossip publish completes or ctx is cancelled.
	Wait(ctx context.Context) error

	// Done returns a channel that closes when the publish completes.
	Done() <-chan struct{}

	// Error returns the publish error, if any, once Done is closed.
	Error() error
}

type token struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newToken() *token {
	return &token{done: make(chan struct{})}
}

func (t *token) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *token) Done() <-chan struct{} {
	return t.done
}

func (t *token) Error() error {
	return t.err
}

func (t *token) complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// completedToken returns a Token that is already done, for the case where
// there is no gossip to wait on (e.g. clustering disabled).
func completedToken(err error) Token {
	t := newToken()
	t.complete(err)
	return t
}

// Package store abstracts the authoritative remote key-value store behind
// the persistent subscription lane: a set-like and hash-like collection
// API, bound here to Redis.
//
// All methods take a context and return a completion/result pair; there is
// no transactional guarantee across keys — callers that need several
// writes to "complete together" (subscription.PersistentIndex.Add) fan them
// out themselves and tolerate partial failure as idempotent-retryable.
package store

import (
	"context"
	"errors"
)

// ErrNotFound names a missing key. It is not part of the RemoteStore
// contract: a read of a missing key yields an empty, nil-error result (see
// SetMembers and HashEntries), and Redis never returns ErrNotFound.
var ErrNotFound = errors.New("store: key not found")

// RemoteStore is the authoritative persistent-lane backing store. A
// deployment binds it to whatever shared key-value system the cluster
// already runs (here: Redis).
type RemoteStore interface {
	// SetAdd adds member to the set at key.
	SetAdd(ctx context.Context, key, member string) error
	// SetRemove removes member from the set at key. Removing a
	// non-existent member is not an error.
	SetRemove(ctx context.Context, key, member string) error
	// SetMembers returns every member of the set at key. A missing key
	// yields an empty, nil-error result.
	SetMembers(ctx context.Context, key string) ([]string, error)
	// SetDelete deletes the entire set at key.
	SetDelete(ctx context.Context, key string) error

	// HashPut sets field to value within the hash at key.
	HashPut(ctx context.Context, key, field, value string) error
	// HashRemove removes field from the hash at key.
	HashRemove(ctx context.Context, key, field string) error
	// HashEntries returns every field/value pair in the hash at key. A
	// missing key yields an empty, nil-error result.
	HashEntries(ctx context.Context, key string) (map[string]string, error)
}

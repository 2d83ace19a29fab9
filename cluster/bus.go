package cluster

import "context"

// MessageHandler is invoked for every message received on a subscribed
// channel. Implementations must not block for long; Agent dispatches
// decode/apply work synchronously from within the handler.
type MessageHandler func(payload []byte)

// Bus is the abstract inter-node publish/subscribe transport. Channel
// names are opaque strings; payloads are opaque bytes produced by a Codec.
// Delivery is best-effort and at-most-once from the caller's point of
// view — there is no acknowledgement.
type Bus interface {
	// Publish sends payload on channel. It is fire-and-forget: a nil
	// return means the bus accepted the publish locally, not that any
	// peer received it.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe registers handler to be called for every message
	// published on channel from this point on. Subscribe is expected to
	// be called once per channel for the lifetime of the process.
	Subscribe(ctx context.Context, channel string, handler MessageHandler) error
}

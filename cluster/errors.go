package cluster

import (
	"errors"
	"fmt"
)

// Sentinel errors for inbound gossip handling. Both are logged and dropped
// by Agent.onMessage, never returned — there is no caller on the inbound
// path to return them to — but exist as concrete, Is-comparable types so
// the drop reason can be asserted in tests instead of string-matched out of
// a log line.
var (
	ErrDecode   = errors.New("cluster: malformed event payload")
	ErrProtocol = errors.New("cluster: unknown event type")
)

// DecodeError wraps a codec failure decoding an inbound envelope.
type DecodeError struct {
	Parent error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("cluster: decode event: %v", e.Parent) }

func (e *DecodeError) Unwrap() error { return e.Parent }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ProtocolError reports an inbound event whose Type Agent does not
// recognize, e.g. a peer running a newer protocol version.
type ProtocolError struct {
	Type int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cluster: unknown event type %d", e.Type)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

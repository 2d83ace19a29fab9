package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Handler applies inbound, already-validated cluster events to local
// state. subscription.Service implements Handler and hands itself to
// Agent's constructor; Agent itself has no knowledge of the subscription
// package's index types, which keeps the two packages free of an import
// cycle (Service also calls Agent.Publish on the outbound path).
type Handler interface {
	ApplySub(ev Event)
	ApplyUnsub(ev Event)
	ApplyDelTopic(ev Event)
}

// DropCounter records inbound gossip events dropped before dispatch, by
// reason (e.g. "decode", "unknown_type"). Satisfied by *metrics.Metrics
// without Agent importing the metrics package.
type DropCounter interface {
	ObserveGossipDropped(reason string)
}

// Agent is the gossip endpoint: it encodes/decodes subscription events,
// publishes them on the bus, and dispatches inbound events to Handler. A
// node never applies an event whose OriginBrokerID equals its own — it
// already applied the mutation locally before emitting the event.
type Agent struct {
	brokerID int
	channel  string
	bus      Bus
	codec    Codec
	handler  Handler
	limiter  *rate.Limiter
	drops    DropCounter
	logger   zerolog.Logger
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithRateLimit throttles outbound Publish calls to at most r events per
// second with the given burst, so a bulk replay (e.g. resubscribing every
// topic after a cache rebuild) cannot flood the bus.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(a *Agent) {
		a.limiter = rate.NewLimiter(r, burst)
	}
}

// WithCodec overrides the default JSONCodec.
func WithCodec(c Codec) Option {
	return func(a *Agent) { a.codec = c }
}

// WithDropCounter records why inbound gossip events are dropped before
// dispatch.
func WithDropCounter(d DropCounter) Option {
	return func(a *Agent) { a.drops = d }
}

// NewAgent constructs an Agent bound to channel on bus, dispatching inbound
// events to handler. It immediately subscribes to channel.
func NewAgent(ctx context.Context, brokerID int, channel string, bus Bus, handler Handler, logger zerolog.Logger, opts ...Option) (*Agent, error) {
	a := &Agent{
		brokerID: brokerID,
		channel:  channel,
		bus:      bus,
		codec:    JSONCodec{},
		handler:  handler,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := bus.Subscribe(ctx, channel, a.onMessage); err != nil {
		return nil, fmt.Errorf("cluster: subscribe subscription channel: %w", err)
	}
	return a, nil
}

// Publish emits ev on the subscription channel. Emission is fire-and-forget
// best-effort: a BusError is logged by the caller and never surfaced,
// because local state is already correct regardless of whether peers
// receive the event.
func (a *Agent) Publish(ctx context.Context, ev Event) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("cluster: rate limit wait: %w", err)
		}
	}

	ev.OriginBrokerID = a.brokerID
	if ev.TimestampMs == 0 {
		ev.TimestampMs = time.Now().UnixMilli()
	}

	env := Envelope{
		Data:      ev,
		Timestamp: ev.TimestampMs,
		BrokerID:  a.brokerID,
		MessageID: uuid.NewString(),
	}

	payload, err := a.codec.Encode(env)
	if err != nil {
		return fmt.Errorf("cluster: encode event: %w", err)
	}

	return a.bus.Publish(ctx, a.channel, payload)
}

// onMessage is the Bus subscriber callback: decode, filter self-originated
// events, dispatch by type. Decode and protocol errors are logged and
// dropped, never returned — there is no caller on this path to return them
// to.
func (a *Agent) onMessage(payload []byte) {
	env, err := a.codec.Decode(payload)
	if err != nil {
		de := &DecodeError{Parent: err}
		a.logger.Warn().Err(de).Msg("cluster: dropping malformed event")
		if a.drops != nil {
			a.drops.ObserveGossipDropped("decode")
		}
		return
	}

	if env.BrokerID == a.brokerID {
		// Loop suppression: we already applied this event locally before
		// publishing it. Correct whether or not the bus echoes to us.
		return
	}

	ev := env.Data
	switch ev.Type {
	case Sub:
		a.handler.ApplySub(ev)
	case Unsub:
		a.handler.ApplyUnsub(ev)
	case DelTopic:
		a.handler.ApplyDelTopic(ev)
	default:
		pe := &ProtocolError{Type: int(ev.Type)}
		a.logger.Warn().Err(pe).Msg("cluster: dropping event of unknown type")
		if a.drops != nil {
			a.drops.ObserveGossipDropped("unknown_type")
		}
	}
}

package cluster

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSBus implements Bus over a github.com/nats-io/nats.go connection. Core
// NATS pub/sub is exactly the delivery model the gossip protocol assumes:
// at-most-once, best-effort, FIFO per publisher.
type NATSBus struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSBus dials url and wires connection-lifecycle logging the way the
// broader pack's NATS clients do (connect/disconnect/reconnect/error
// handlers feeding a structured logger).
func NewNATSBus(url string, logger zerolog.Logger) (*NATSBus, error) {
	b := &NATSBus{logger: logger}

	conn, err := nats.Connect(url,
		nats.ConnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("cluster bus connected")
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("cluster bus disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("cluster bus reconnected")
		}),
		nats.ErrorHandler(func(c *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("cluster bus error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("cluster: connect to bus: %w", err)
	}
	b.conn = conn
	return b, nil
}

func (b *NATSBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("cluster: publish %s: %w", channel, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	_, err := b.conn.Subscribe(channel, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("cluster: subscribe %s: %w", channel, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (b *NATSBus) Close() {
	_ = b.conn.Drain()
}

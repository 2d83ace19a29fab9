// Package subindex is the root of a broker-side subscription index: the
// structure that maps topic filters to subscribing clients, matched on the
// publish hot path, shared across a cluster of broker nodes.
//
// # Packages
//
//   - topic: pure, stateless MQTT topic-filter matching ('+', '#', the
//     $SYS boundary).
//   - subscription: the index itself — Record, the ephemeral
//     (clean-session) and persistent (durable-session) lanes, the
//     system-topic sub-index, and the Service facade that composes them.
//   - store: the RemoteStore abstraction backing the persistent lane,
//     bound here to Redis.
//   - cluster: the gossip Agent, Bus abstraction (bound here to NATS),
//     and wire codec used to keep every node's subscription view
//     eventually consistent.
//   - config: twelve-factor process configuration.
//   - metrics: Prometheus instrumentation.
//   - health: ambient resource reporting.
//   - adminapi: a read-only HTTP introspection surface.
//   - cmd/brokerd: process wiring.
//
// # Scope
//
// This module owns subscription bookkeeping only: which clients are
// subscribed to which filters, and looking that up fast when a message is
// published. It does not parse the MQTT wire protocol, dispatch PUBLISH
// packets, manage QoS flow state, serve retained messages, or enforce
// topic ACLs — those are the concern of collaborating components outside
// this module.
//
// # Quick start
//
//	svc := subscription.NewService(ephemeral, persistent, sysTopics, logger)
//	tok, err := svc.Subscribe(ctx, subscription.Record{
//	    ClientID: "sensor-7", Topic: "devices/+/temperature", QoS: subscription.AtLeastOnce,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = tok.Wait(ctx) // optional: block until the cluster gossip publish finishes
//
//	matches, err := svc.SearchSubscribeClientList(ctx, "devices/7/temperature")
//	for r := range matches {
//	    dispatchTo(r.ClientID, r.QoS)
//	}
package subindex

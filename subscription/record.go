// Package subscription implements the broker's subscription index: the
// ephemeral (clean-session) and persistent (durable-session) lanes, the
// system-topic sub-index, and the facade that composes them.
package subscription

import (
	"fmt"

	"github.com/relaymq/subindex/topic"
)

// QoS is the requested quality-of-service level of a subscription.
type QoS uint8

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
)

// Record is a subscription: one client's interest in one topic filter.
//
// Identity is (ClientID, Topic) only — QoS is mutable metadata attached to
// that identity, not part of it. Two records with equal (ClientID, Topic)
// and different QoS represent the same subscription at different points in
// time; re-subscribing replaces the prior QoS rather than creating a second
// record. Key and Equal below encode this explicitly instead of relying on
// struct equality, which would incorrectly treat differing QoS as distinct
// subscriptions.
type Record struct {
	ClientID     string
	Topic        string
	QoS          QoS
	CleanSession bool
}

// Key identifies a Record for set/map membership, independent of QoS.
type Key struct {
	ClientID string
	Topic    string
}

// Key returns r's identity key.
func (r Record) Key() Key {
	return Key{ClientID: r.ClientID, Topic: r.Topic}
}

// Equal reports whether r and other share the same identity (ClientID,
// Topic). It deliberately ignores QoS and CleanSession.
func (r Record) Equal(other Record) bool {
	return r.ClientID == other.ClientID && r.Topic == other.Topic
}

// Validate checks that a record is well-formed: non-empty ClientID, a
// well-formed MQTT topic filter (see topic.ValidateFilter), and a QoS in
// {0,1,2}.
func (r Record) Validate() error {
	if r.ClientID == "" {
		return fmt.Errorf("subscription: clientId must not be empty")
	}
	if err := topic.ValidateFilter(r.Topic); err != nil {
		return fmt.Errorf("subscription: %w", err)
	}
	if r.QoS > ExactlyOnce {
		return fmt.Errorf("subscription: invalid qos %d", r.QoS)
	}
	return nil
}

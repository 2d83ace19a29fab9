package subscription

import (
	"iter"
	"sync"

	"github.com/relaymq/subindex/topic"
)

// EphemeralIndex holds clean-session subscriptions entirely in memory. It
// is wiped whenever the owning process restarts and never touches the
// remote store or the cluster bus itself (Service drives it on the local
// mutation path, and on inbound gossip that cluster.Agent hands to
// Service).
//
// EphemeralTopics is the key-set of topicsByName; each value's record
// set is EphemeralTopicClients[topic] and each clientTopics value is
// EphemeralClientTopics[clientId], kept in sync on every mutation.
type EphemeralIndex struct {
	topicsByName sync.Map // topic string -> *recordSet
	clientTopics sync.Map // clientID string -> *nameSet
}

// NewEphemeralIndex returns an empty ephemeral index.
func NewEphemeralIndex() *EphemeralIndex {
	return &EphemeralIndex{}
}

// Add inserts r, replacing any existing record with the same (ClientID,
// Topic) — re-subscribing with a new QoS updates the prior record in place.
// Add is infallible and idempotent under Record equality.
func (idx *EphemeralIndex) Add(r Record) {
	idx.topicEntry(r.Topic).put(r)
	idx.clientEntry(r.ClientID).add(r.Topic)
}

// Remove drops clientID's subscription (if any) on each of topics.
// EphemeralTopics is not pruned here — an emptied topic entry is allowed to
// linger with an empty record set; MatchTopics tolerates that.
func (idx *EphemeralIndex) Remove(clientID string, topics []string) {
	for _, t := range topics {
		if v, ok := idx.topicsByName.Load(t); ok {
			v.(*recordSet).delete(Key{ClientID: clientID, Topic: t})
		}
	}
	if v, ok := idx.clientTopics.Load(clientID); ok {
		ns := v.(*nameSet)
		for _, t := range topics {
			ns.remove(t)
		}
	}
}

// ClearClient reads clientID's current topic set, removes every
// subscription it names, and returns the topics that were cleared. The
// read and the removal are separate steps, not one atomic take: a topic
// that a concurrent Add records for clientID after the read is kept.
func (idx *EphemeralIndex) ClearClient(clientID string) []string {
	v, ok := idx.clientTopics.Load(clientID)
	if !ok {
		return nil
	}
	topics := v.(*nameSet).list()
	idx.Remove(clientID, topics)
	return topics
}

// ClientTopics returns clientID's current topic filters without modifying
// anything, for callers that need to read before deciding what to remove.
func (idx *EphemeralIndex) ClientTopics(clientID string) []string {
	v, ok := idx.clientTopics.Load(clientID)
	if !ok {
		return nil
	}
	return v.(*nameSet).list()
}

// MatchTopics returns, as a lazy one-shot sequence, every record whose
// topic filter matches concrete under topic.Match. Lookups are wait-free
// with respect to Add/Remove: each topic entry is observed under its own
// lock, but the overall view across entries may be slightly stale, which
// callers tolerate per the concurrency model.
func (idx *EphemeralIndex) MatchTopics(concrete string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		idx.topicsByName.Range(func(key, value any) bool {
			filter := key.(string)
			if !topic.Match(concrete, filter) {
				return true
			}
			for _, r := range value.(*recordSet).snapshot() {
				if !yield(r) {
					return false
				}
			}
			return true
		})
	}
}

// Topics returns the current set of topic filters with at least one
// ephemeral subscriber recorded.
func (idx *EphemeralIndex) Topics() []string {
	var out []string
	idx.topicsByName.Range(func(key, value any) bool {
		if value.(*recordSet).len() > 0 {
			out = append(out, key.(string))
		}
		return true
	})
	return out
}

// DeleteTopic removes topic entirely from EphemeralTopics and
// EphemeralTopicClients, and removes topic from every affected client's
// entry in EphemeralClientTopics. This backs inbound DEL_TOPIC gossip: it
// iterates the clients that actually hold the topic rather than trusting
// a single clientId carried on the event.
func (idx *EphemeralIndex) DeleteTopic(t string) {
	v, ok := idx.topicsByName.LoadAndDelete(t)
	if !ok {
		return
	}
	for _, r := range v.(*recordSet).snapshot() {
		if cv, ok := idx.clientTopics.Load(r.ClientID); ok {
			cv.(*nameSet).remove(t)
		}
	}
}

func (idx *EphemeralIndex) topicEntry(t string) *recordSet {
	v, _ := idx.topicsByName.LoadOrStore(t, newRecordSet())
	return v.(*recordSet)
}

func (idx *EphemeralIndex) clientEntry(clientID string) *nameSet {
	v, _ := idx.clientTopics.LoadOrStore(clientID, newNameSet())
	return v.(*nameSet)
}

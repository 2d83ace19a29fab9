package subscription

import (
	"sync"

	"github.com/relaymq/subindex/topic"
)

// SysTopicIndex holds subscriptions on the system-topic namespace (the
// $SYS-prefixed tree, or whatever prefix a deployment configures). It is
// local-only: never persisted to the remote store and never gossiped —
// every node's $SYS view describes only its own process, so there is
// nothing for a peer to usefully replicate.
type SysTopicIndex struct {
	mu           sync.RWMutex
	topicClients map[string]map[string]Record // topic filter -> clientID -> Record
	clientTopics map[string]map[string]struct{}
	sysPrefix    string
}

// NewSysTopicIndex returns an empty SysTopicIndex that records sysPrefix (the
// configured system-topic prefix, e.g. "$SYS/"). Add and MatchTopics do not
// check filters or topics against sysPrefix.
func NewSysTopicIndex(sysPrefix string) *SysTopicIndex {
	return &SysTopicIndex{
		topicClients: make(map[string]map[string]Record),
		clientTopics: make(map[string]map[string]struct{}),
		sysPrefix:    sysPrefix,
	}
}

// Add records clientID's subscription to a system-topic filter.
func (s *SysTopicIndex) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topicClients[r.Topic] == nil {
		s.topicClients[r.Topic] = make(map[string]Record)
	}
	s.topicClients[r.Topic][r.ClientID] = r
	if s.clientTopics[r.ClientID] == nil {
		s.clientTopics[r.ClientID] = make(map[string]struct{})
	}
	s.clientTopics[r.ClientID][r.Topic] = struct{}{}
}

// Remove drops clientID's subscription on each of topics.
func (s *SysTopicIndex) Remove(clientID string, topics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range topics {
		if m, ok := s.topicClients[t]; ok {
			delete(m, clientID)
			if len(m) == 0 {
				delete(s.topicClients, t)
			}
		}
	}
	if ct, ok := s.clientTopics[clientID]; ok {
		for _, t := range topics {
			delete(ct, t)
		}
		if len(ct) == 0 {
			delete(s.clientTopics, clientID)
		}
	}
}

// ClearClient removes every system-topic subscription belonging to
// clientID and returns the topics it held.
func (s *SysTopicIndex) ClearClient(clientID string) []string {
	s.mu.Lock()
	ct, ok := s.clientTopics[clientID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	topics := make([]string, 0, len(ct))
	for t := range ct {
		topics = append(topics, t)
	}
	s.mu.Unlock()

	s.Remove(clientID, topics)
	return topics
}

// MatchTopics returns every record whose filter matches concrete. concrete
// is expected to already lie within the system-topic namespace; callers
// are responsible for routing $SYS traffic here instead of to the
// ephemeral/persistent lanes (MQTT-4.7.2-1's leading-wildcard boundary is
// enforced by topic.Match itself, so a non-$SYS filter like "#" can never
// match a $SYS concrete topic even if mistakenly queried here).
func (s *SysTopicIndex) MatchTopics(concrete string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for filter, clients := range s.topicClients {
		if !topic.Match(concrete, filter) {
			continue
		}
		for _, r := range clients {
			out = append(out, r)
		}
	}
	return out
}

// MatchClient returns clientID's current system-topic filters without
// modifying anything.
func (s *SysTopicIndex) MatchClient(clientID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct, ok := s.clientTopics[clientID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ct))
	for t := range ct {
		out = append(out, t)
	}
	return out
}

// Topics returns the current set of system-topic filters with at least one
// subscriber.
func (s *SysTopicIndex) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topicClients))
	for t := range s.topicClients {
		out = append(out, t)
	}
	return out
}

package subscription

import (
	"context"
	"iter"
	"time"

	"github.com/relaymq/subindex/cluster"
	"github.com/relaymq/subindex/metrics"
	"github.com/rs/zerolog"
)

// Service is the subscription index facade: it composes the ephemeral
// lane, the persistent lane, and the system-topic sub-index, and
// implements cluster.Handler so a cluster.Agent can apply inbound gossip
// to it. It is the only type callers outside this package need.
type Service struct {
	ephemeral  *EphemeralIndex
	persistent *PersistentIndex
	sys        *SysTopicIndex
	agent      *cluster.Agent
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewService composes a Service over the given lanes. Call AttachAgent
// afterward to enable cluster gossip — Service must exist before an Agent
// can be constructed (Service implements cluster.Handler), so the two are
// wired together in two steps rather than one constructor.
func NewService(ephemeral *EphemeralIndex, persistent *PersistentIndex, sys *SysTopicIndex, logger zerolog.Logger) *Service {
	return &Service{ephemeral: ephemeral, persistent: persistent, sys: sys, logger: logger}
}

// AttachAgent enables cluster gossip. A Service with no attached agent
// still functions correctly as a single-node index; Subscribe/Unsubscribe
// return an already-completed Token in that case.
func (s *Service) AttachAgent(agent *cluster.Agent) {
	s.agent = agent
}

// AttachMetrics wires m in to record subscribe/unsubscribe/lookup and
// gossip counters. Optional; a Service with no metrics attached still
// functions identically.
func (s *Service) AttachMetrics(m *metrics.Metrics) {
	s.metrics = m
	s.persistent.AttachMetrics(m)
}

func (s *Service) lane(cleanSession bool) string {
	if cleanSession {
		return "ephemeral"
	}
	return "persistent"
}

// Subscribe records r in the appropriate lane (ephemeral if
// r.CleanSession, persistent otherwise), then best-effort broadcasts the
// change to the cluster. The returned error reflects only the local
// write; the returned Token can optionally be waited on to observe the
// outbound gossip publish, which per the error-handling design never
// surfaces as an operation failure.
func (s *Service) Subscribe(ctx context.Context, r Record) (Token, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if r.CleanSession {
		s.ephemeral.Add(r)
		s.observeEphemeralTopics()
	} else {
		if err := s.persistent.Add(ctx, r); err != nil {
			return nil, err
		}
		s.persistent.MirrorAdd(r)
	}
	if s.metrics != nil {
		s.metrics.ObserveSubscribe(s.lane(r.CleanSession))
	}

	return s.publish(cluster.Event{
		Type:         cluster.Sub,
		ClientID:     r.ClientID,
		Topic:        r.Topic,
		QoS:          uint8(r.QoS),
		CleanSession: r.CleanSession,
	}), nil
}

// Unsubscribe removes clientID's subscription on each of topics from the
// lane named by cleanSession.
func (s *Service) Unsubscribe(ctx context.Context, clientID string, topics []string, cleanSession bool) (Token, error) {
	if len(topics) == 0 {
		return completedToken(nil), nil
	}

	if cleanSession {
		s.ephemeral.Remove(clientID, topics)
		s.observeEphemeralTopics()
	} else {
		if err := s.persistent.Remove(ctx, clientID, topics); err != nil {
			return nil, err
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveUnsubscribe(s.lane(cleanSession))
	}

	return s.publish(cluster.Event{
		Type:         cluster.Unsub,
		ClientID:     clientID,
		Topics:       topics,
		CleanSession: cleanSession,
	}), nil
}

func (s *Service) observeEphemeralTopics() {
	if s.metrics != nil {
		s.metrics.SetEphemeralTopics(len(s.ephemeral.Topics()))
	}
}

// ClearClientSubscriptions removes every subscription clientID holds in
// both lanes — a disconnecting client's session teardown does not always
// know in advance which lane it belongs to, and clearing an empty lane is
// a no-op.
func (s *Service) ClearClientSubscriptions(ctx context.Context, clientID string) (Token, error) {
	ephTopics := s.ephemeral.ClearClient(clientID)
	persTopics, err := s.persistent.ClearClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	all := append(ephTopics, persTopics...)
	if len(all) == 0 {
		return completedToken(nil), nil
	}

	return s.publish(cluster.Event{
		Type:     cluster.Unsub,
		ClientID: clientID,
		Topics:   all,
	}), nil
}

// ClearUnAuthorizedClientSub removes every subscription clientID holds
// that is not named in authorizedTopics. It intersects against the
// client's actual recorded topics rather than unsubscribing everything
// unconditionally, which would silently drop subscriptions an upstream
// re-authorization call legitimately still permits.
func (s *Service) ClearUnAuthorizedClientSub(ctx context.Context, clientID string, authorizedTopics []string) (Token, error) {
	authorized := make(map[string]struct{}, len(authorizedTopics))
	for _, t := range authorizedTopics {
		authorized[t] = struct{}{}
	}

	var toRemove []string
	var ephRemove []string
	for _, t := range s.ephemeral.ClientTopics(clientID) {
		if _, ok := authorized[t]; !ok {
			ephRemove = append(ephRemove, t)
		}
	}
	if len(ephRemove) > 0 {
		s.ephemeral.Remove(clientID, ephRemove)
		toRemove = append(toRemove, ephRemove...)
	}

	persTopics, err := s.persistent.ClientTopics(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var persRemove []string
	for _, t := range persTopics {
		if _, ok := authorized[t]; !ok {
			persRemove = append(persRemove, t)
		}
	}
	if len(persRemove) > 0 {
		if err := s.persistent.Remove(ctx, clientID, persRemove); err != nil {
			return nil, err
		}
		toRemove = append(toRemove, persRemove...)
	}

	if len(toRemove) == 0 {
		return completedToken(nil), nil
	}
	return s.publish(cluster.Event{
		Type:     cluster.Unsub,
		ClientID: clientID,
		Topics:   toRemove,
	}), nil
}

// SearchSubscribeClientList returns every record across both lanes whose
// topic filter matches concrete, as a sequence. Both lanes are matched
// before it returns; the sequence iterates over that collected result.
func (s *Service) SearchSubscribeClientList(ctx context.Context, concrete string) (iter.Seq[Record], error) {
	start := time.Now()

	persistentMatches, err := s.persistent.MatchTopics(ctx, concrete)
	if err != nil {
		return nil, err
	}

	var merged []Record
	for r := range s.ephemeral.MatchTopics(concrete) {
		merged = append(merged, r)
	}
	merged = append(merged, persistentMatches...)

	if s.metrics != nil {
		s.metrics.ObserveLookup(time.Since(start))
	}

	return func(yield func(Record) bool) {
		for _, r := range merged {
			if !yield(r) {
				return
			}
		}
	}, nil
}

// SubscribeSys records a system-topic subscription. It is never persisted
// or gossiped.
func (s *Service) SubscribeSys(r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.sys.Add(r)
	return nil
}

// UnsubscribeSys removes clientID's system-topic subscriptions on topics.
func (s *Service) UnsubscribeSys(clientID string, topics []string) {
	s.sys.Remove(clientID, topics)
}

// ClearClientSysSub removes every system-topic subscription clientID
// holds.
func (s *Service) ClearClientSysSub(clientID string) []string {
	return s.sys.ClearClient(clientID)
}

// SearchSysTopicClients returns every system-topic record matching
// concrete.
func (s *Service) SearchSysTopicClients(concrete string) []Record {
	return s.sys.MatchTopics(concrete)
}

// EphemeralTopics returns the current set of ephemeral topic filters with
// at least one subscriber, for read-only introspection.
func (s *Service) EphemeralTopics() []string {
	return s.ephemeral.Topics()
}

// ClientEphemeralTopics returns clientID's current ephemeral topic
// filters, for read-only introspection.
func (s *Service) ClientEphemeralTopics(clientID string) []string {
	return s.ephemeral.ClientTopics(clientID)
}

// ClientSysTopics returns clientID's current system-topic filters, for
// read-only introspection.
func (s *Service) ClientSysTopics(clientID string) []string {
	topics := s.sys.MatchClient(clientID)
	return topics
}

// ApplySub implements cluster.Handler. It is only ever invoked with an
// event originated by a peer — Agent filters out self-originated events
// before dispatch — so it mirrors the change into the local view without
// re-writing the remote store (the origin node already did that).
func (s *Service) ApplySub(ev cluster.Event) {
	r := Record{ClientID: ev.ClientID, Topic: ev.Topic, QoS: QoS(ev.QoS), CleanSession: ev.CleanSession}
	if ev.CleanSession {
		s.ephemeral.Add(r)
		s.observeEphemeralTopics()
	} else {
		s.persistent.MirrorAdd(r)
	}
	if s.metrics != nil {
		s.metrics.ObserveGossipApplied("sub")
	}
}

// ApplyUnsub implements cluster.Handler.
func (s *Service) ApplyUnsub(ev cluster.Event) {
	if ev.CleanSession {
		s.ephemeral.Remove(ev.ClientID, ev.Topics)
		s.observeEphemeralTopics()
	} else {
		for _, t := range ev.Topics {
			s.persistent.MirrorRemove(ev.ClientID, t)
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveGossipApplied("unsub")
	}
}

// ApplyDelTopic implements cluster.Handler. It prunes topic from every
// local view, and best-effort removes it from the remote TopicSet so a
// stale entry doesn't linger across the cluster.
func (s *Service) ApplyDelTopic(ev cluster.Event) {
	s.ephemeral.DeleteTopic(ev.Topic)
	s.observeEphemeralTopics()
	s.persistent.MirrorDeleteTopic(ev.Topic)
	if err := s.persistent.DeleteTopicFromStore(context.Background(), ev.Topic); err != nil {
		s.logger.Warn().Err(err).Str("topic", ev.Topic).Msg("subscription: failed to prune topic from remote store")
	}
	if s.metrics != nil {
		s.metrics.ObserveGossipApplied("del_topic")
	}
}

// publish best-effort broadcasts ev to the cluster and returns a Token for
// the outbound publish. With no agent attached, the Token is already
// complete.
func (s *Service) publish(ev cluster.Event) Token {
	if s.agent == nil {
		return completedToken(nil)
	}

	t := newToken()
	go func() {
		err := s.agent.Publish(context.Background(), ev)
		if err != nil {
			busErr := &BusError{ClientID: ev.ClientID, Parent: err}
			s.logger.Warn().Err(busErr).Str("clientId", ev.ClientID).Msg("subscription: cluster publish failed")
			if s.metrics != nil {
				s.metrics.ObserveGossipBusError()
			}
			t.complete(busErr)
			return
		}
		if s.metrics != nil {
			s.metrics.ObserveGossipPublished()
		}
		t.complete(nil)
	}()
	return t
}

package subscription

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/relaymq/subindex/metrics"
	"github.com/relaymq/subindex/store"
	"github.com/relaymq/subindex/topic"
)

// PersistentConfig carries the remote-store key layout and the inner-cache
// toggle for the persistent lane.
type PersistentConfig struct {
	TopicSetKey        string
	TopicPrefix        string
	ClientTopicsPrefix string
	EnableInnerCache   bool
}

// PersistentIndex bridges durable-session subscriptions to the remote
// store and, when PersistentConfig.EnableInnerCache is set, maintains a
// coherent local read-only mirror of the remote state. Writes always reach
// the remote store first; the cache is never a write-back path — it is
// updated synchronously on every successful local Add and Remove, and from
// inbound gossip for mutations made on peer nodes (see subscription.Service
// and cluster.Agent).
type PersistentIndex struct {
	cfg     PersistentConfig
	remote  store.RemoteStore
	cache   *cacheMirror // nil unless EnableInnerCache
	metrics *metrics.Metrics
}

// NewPersistentIndex constructs a PersistentIndex over remote. If
// cfg.EnableInnerCache is set, callers must call WarmCache before serving
// lookups, or MatchTopics will answer from an empty cache.
func NewPersistentIndex(cfg PersistentConfig, remote store.RemoteStore) *PersistentIndex {
	p := &PersistentIndex{cfg: cfg, remote: remote}
	if cfg.EnableInnerCache {
		p.cache = newCacheMirror()
	}
	return p
}

// AttachMetrics wires m in to record cache hit/miss and store-error
// counters. Optional; a PersistentIndex with no metrics attached still
// functions identically.
func (p *PersistentIndex) AttachMetrics(m *metrics.Metrics) {
	p.metrics = m
}

func (p *PersistentIndex) storeError(op string, err error) {
	if p.metrics != nil && err != nil {
		p.metrics.ObserveStoreError(op)
	}
}

func (p *PersistentIndex) topicKey(t string) string {
	return p.cfg.TopicPrefix + t
}

func (p *PersistentIndex) clientTopicsKey(clientID string) string {
	return p.cfg.ClientTopicsPrefix + clientID
}

// WarmCache blocks until the full TopicSet and every TopicHash[t] have been
// read from the remote store and mirrored locally. Serving lookups from a
// half-populated cache would silently drop subscribers, so startup must
// wait for this before accepting traffic.
func (p *PersistentIndex) WarmCache(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}

	topics, err := p.remote.SetMembers(ctx, p.cfg.TopicSetKey)
	if err != nil {
		p.storeError("set-members", err)
		return &StoreError{Op: "set-members", Key: p.cfg.TopicSetKey, Parent: err}
	}

	fresh := newCacheMirror()
	for _, t := range topics {
		entries, err := p.remote.HashEntries(ctx, p.topicKey(t))
		if err != nil {
			p.storeError("hash-entries", err)
			return &StoreError{Op: "hash-entries", Key: p.topicKey(t), Parent: err}
		}
		for clientID, qosStr := range entries {
			q, perr := parseQoS(qosStr)
			if perr != nil {
				continue
			}
			fresh.put(Record{ClientID: clientID, Topic: t, QoS: q, CleanSession: false})
		}
	}

	p.cache.replaceWith(fresh)
	return nil
}

// Add concurrently issues the three writes composing a persistent
// subscribe and awaits all three before returning. They are not assumed
// atomic across the store, only that the record is fully visible to
// lookups once the call returns successfully. If some but not all
// sub-operations fail, a *PartialStoreError is returned; if all three
// fail, a *StoreError is returned. A retry is always safe because every
// sub-operation is idempotent.
func (p *PersistentIndex) Add(ctx context.Context, r Record) error {
	type result struct {
		name string
		err  error
	}
	results := make(chan result, 3)
	var wg sync.WaitGroup

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- result{name, fn()}
		}()
	}

	run("hash-put", func() error {
		return p.remote.HashPut(ctx, p.topicKey(r.Topic), r.ClientID, strconv.Itoa(int(r.QoS)))
	})
	run("set-add:topic-set", func() error {
		return p.remote.SetAdd(ctx, p.cfg.TopicSetKey, r.Topic)
	})
	run("set-add:client-topics", func() error {
		return p.remote.SetAdd(ctx, p.clientTopicsKey(r.ClientID), r.Topic)
	})

	wg.Wait()
	close(results)

	var succeeded []string
	failed := map[string]error{}
	for res := range results {
		if res.err != nil {
			failed[res.name] = res.err
		} else {
			succeeded = append(succeeded, res.name)
		}
	}
	if len(failed) > 0 {
		if p.metrics != nil {
			p.metrics.ObserveStoreError("subscribe")
		}
		if len(succeeded) == 0 {
			return &StoreError{Op: "subscribe", Key: p.topicKey(r.Topic), Parent: failed["hash-put"]}
		}
		return &PartialStoreError{Succeeded: succeeded, Failed: failed}
	}

	if p.cache != nil {
		p.cache.put(r)
	}
	return nil
}

// Remove deletes clientID's subscription on each of topics from TopicHash,
// then from ClientTopicSet[clientID]. It does not prune an emptied
// TopicHash[t] nor TopicSet — DEL_TOPIC is the designated pruner.
func (p *PersistentIndex) Remove(ctx context.Context, clientID string, topics []string) error {
	if len(topics) == 0 {
		return nil
	}

	var firstErr error
	var mu sync.Mutex
	var wg sync.WaitGroup
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, t := range topics {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			record(p.remote.HashRemove(ctx, p.topicKey(t), clientID))
		}(t)
	}
	wg.Wait()

	for _, t := range topics {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			record(p.remote.SetRemove(ctx, p.clientTopicsKey(clientID), t))
		}(t)
	}
	wg.Wait()

	if firstErr != nil {
		p.storeError("unsubscribe", firstErr)
		return &StoreError{Op: "unsubscribe", Key: clientID, Parent: firstErr}
	}

	if p.cache != nil {
		for _, t := range topics {
			p.cache.remove(Key{ClientID: clientID, Topic: t})
		}
	}
	return nil
}

// ClearClient reads ClientTopicSet[clientID], deletes that set, then
// removes clientID from every topic it named.
func (p *PersistentIndex) ClearClient(ctx context.Context, clientID string) ([]string, error) {
	topics, err := p.remote.SetMembers(ctx, p.clientTopicsKey(clientID))
	if err != nil {
		p.storeError("set-members", err)
		return nil, &StoreError{Op: "set-members", Key: p.clientTopicsKey(clientID), Parent: err}
	}
	if err := p.remote.SetDelete(ctx, p.clientTopicsKey(clientID)); err != nil {
		p.storeError("set-delete", err)
		return nil, &StoreError{Op: "set-delete", Key: p.clientTopicsKey(clientID), Parent: err}
	}
	if err := p.Remove(ctx, clientID, topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// ClientTopics returns the topics clientID currently subscribes to,
// authoritatively, from the remote store (not from the inner cache, which
// may lag it).
func (p *PersistentIndex) ClientTopics(ctx context.Context, clientID string) ([]string, error) {
	topics, err := p.remote.SetMembers(ctx, p.clientTopicsKey(clientID))
	if err != nil {
		p.storeError("set-members", err)
		return nil, &StoreError{Op: "set-members", Key: p.clientTopicsKey(clientID), Parent: err}
	}
	return topics, nil
}

// MatchTopics returns every record whose topic filter matches concrete. If
// the inner cache is enabled it is served entirely from the cache;
// otherwise TopicSet is enumerated from the store, filtered, and each
// surviving TopicHash[t] is fetched to materialize records.
func (p *PersistentIndex) MatchTopics(ctx context.Context, concrete string) ([]Record, error) {
	if p.cache != nil {
		if p.metrics != nil {
			p.metrics.ObserveCacheHit()
		}
		return p.cache.match(concrete), nil
	}
	if p.metrics != nil {
		p.metrics.ObserveCacheMiss()
	}

	topics, err := p.remote.SetMembers(ctx, p.cfg.TopicSetKey)
	if err != nil {
		p.storeError("set-members", err)
		return nil, &StoreError{Op: "set-members", Key: p.cfg.TopicSetKey, Parent: err}
	}

	var out []Record
	for _, t := range topics {
		if !topic.Match(concrete, t) {
			continue
		}
		entries, err := p.remote.HashEntries(ctx, p.topicKey(t))
		if err != nil {
			p.storeError("hash-entries", err)
			return nil, &StoreError{Op: "hash-entries", Key: p.topicKey(t), Parent: err}
		}
		for clientID, qosStr := range entries {
			q, perr := parseQoS(qosStr)
			if perr != nil {
				continue
			}
			out = append(out, Record{ClientID: clientID, Topic: t, QoS: q, CleanSession: false})
		}
	}
	return out, nil
}

// MirrorAdd updates only the inner cache, without touching the remote
// store. Used both to hide local-write latency (called right after a
// successful Add, before the cluster event is published) and to apply
// inbound gossip from peers. No-op if the cache is disabled.
func (p *PersistentIndex) MirrorAdd(r Record) {
	if p.cache != nil {
		p.cache.put(r)
	}
}

// MirrorRemove removes clientID's cache entry for topic, if the cache is
// enabled.
func (p *PersistentIndex) MirrorRemove(clientID, topic string) {
	if p.cache != nil {
		p.cache.remove(Key{ClientID: clientID, Topic: topic})
	}
}

// MirrorDeleteTopic removes every cache entry for topic, if the cache is
// enabled.
func (p *PersistentIndex) MirrorDeleteTopic(t string) {
	if p.cache != nil {
		p.cache.deleteTopic(t)
	}
}

// DeleteTopicFromStore best-effort removes topic from TopicSet in the
// remote store, in response to an inbound DEL_TOPIC event.
func (p *PersistentIndex) DeleteTopicFromStore(ctx context.Context, t string) error {
	return p.remote.SetRemove(ctx, p.cfg.TopicSetKey, t)
}

func parseQoS(s string) (QoS, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("subscription: invalid qos %q: %w", s, err)
	}
	return QoS(n), nil
}

// cacheMirror is the optional local read cache: CachedTopics (the key-set)
// and CachedTopicClients (each entry's record set).
type cacheMirror struct {
	topics sync.Map // topic string -> *recordSet
}

func newCacheMirror() *cacheMirror {
	return &cacheMirror{}
}

func (c *cacheMirror) put(r Record) {
	v, _ := c.topics.LoadOrStore(r.Topic, newRecordSet())
	v.(*recordSet).put(r)
}

func (c *cacheMirror) remove(k Key) {
	if v, ok := c.topics.Load(k.Topic); ok {
		v.(*recordSet).delete(k)
	}
}

func (c *cacheMirror) deleteTopic(t string) {
	c.topics.Delete(t)
}

func (c *cacheMirror) match(concrete string) []Record {
	var out []Record
	c.topics.Range(func(key, value any) bool {
		if topic.Match(concrete, key.(string)) {
			out = append(out, value.(*recordSet).snapshot()...)
		}
		return true
	})
	return out
}

func (c *cacheMirror) listTopics() []string {
	var out []string
	c.topics.Range(func(key, value any) bool {
		if value.(*recordSet).len() > 0 {
			out = append(out, key.(string))
		}
		return true
	})
	return out
}

func (c *cacheMirror) replaceWith(fresh *cacheMirror) {
	fresh.topics.Range(func(key, value any) bool {
		c.topics.Store(key, value)
		return true
	})
	c.topics.Range(func(key, value any) bool {
		if _, ok := fresh.topics.Load(key); !ok {
			c.topics.Delete(key)
		}
		return true
	})
}

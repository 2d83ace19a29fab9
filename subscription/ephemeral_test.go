package subscription

import "testing"

func collect(seq func(func(Record) bool)) []Record {
	var out []Record
	seq(func(r Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

func TestEphemeralIndex_AddMatchRemove(t *testing.T) {
	idx := NewEphemeralIndex()

	r := Record{ClientID: "c1", Topic: "a/+/c", QoS: AtLeastOnce, CleanSession: true}
	idx.Add(r)

	got := collect(idx.MatchTopics("a/b/c"))
	if len(got) != 1 || !got[0].Equal(r) || got[0].QoS != AtLeastOnce {
		t.Fatalf("expected exactly {c1,a/+/c,1}, got %v", got)
	}

	if got := collect(idx.MatchTopics("x/y/z")); len(got) != 0 {
		t.Fatalf("expected no match, got %v", got)
	}

	idx.Remove("c1", []string{"a/+/c"})
	if got := collect(idx.MatchTopics("a/b/c")); len(got) != 0 {
		t.Fatalf("expected no match after remove, got %v", got)
	}
}

func TestEphemeralIndex_ReSubscribeReplacesQoS(t *testing.T) {
	idx := NewEphemeralIndex()
	idx.Add(Record{ClientID: "c1", Topic: "t", QoS: 0, CleanSession: true})
	idx.Add(Record{ClientID: "c1", Topic: "t", QoS: 2, CleanSession: true})

	got := collect(idx.MatchTopics("t"))
	if len(got) != 1 {
		t.Fatalf("expected a single record after re-subscribe, got %d", len(got))
	}
	if got[0].QoS != 2 {
		t.Fatalf("expected qos 2 after re-subscribe, got %d", got[0].QoS)
	}
}

func TestEphemeralIndex_Idempotent(t *testing.T) {
	idx := NewEphemeralIndex()
	r := Record{ClientID: "c1", Topic: "t", QoS: 1, CleanSession: true}
	idx.Add(r)
	idx.Add(r)

	if got := collect(idx.MatchTopics("t")); len(got) != 1 {
		t.Fatalf("expected idempotent add, got %d records", len(got))
	}
}

func TestEphemeralIndex_SubscribeThenUnsubscribeRestoresState(t *testing.T) {
	idx := NewEphemeralIndex()
	r := Record{ClientID: "c1", Topic: "t", QoS: 1, CleanSession: true}

	before := collect(idx.MatchTopics("t"))
	idx.Add(r)
	idx.Remove(r.ClientID, []string{r.Topic})
	after := collect(idx.MatchTopics("t"))

	if len(before) != 0 || len(after) != 0 {
		t.Fatalf("expected pre- and post-state to both be empty, got before=%v after=%v", before, after)
	}
}

func TestEphemeralIndex_ClearClient(t *testing.T) {
	idx := NewEphemeralIndex()
	idx.Add(Record{ClientID: "c1", Topic: "a", QoS: 0, CleanSession: true})
	idx.Add(Record{ClientID: "c1", Topic: "b", QoS: 0, CleanSession: true})
	idx.Add(Record{ClientID: "c2", Topic: "a", QoS: 0, CleanSession: true})

	cleared := idx.ClearClient("c1")
	if len(cleared) != 2 {
		t.Fatalf("expected 2 cleared topics, got %v", cleared)
	}

	if got := collect(idx.MatchTopics("a")); len(got) != 1 || got[0].ClientID != "c2" {
		t.Fatalf("expected only c2 left on topic a, got %v", got)
	}
	if got := collect(idx.MatchTopics("b")); len(got) != 0 {
		t.Fatalf("expected topic b empty, got %v", got)
	}
}

func TestEphemeralIndex_DeleteTopic(t *testing.T) {
	idx := NewEphemeralIndex()
	idx.Add(Record{ClientID: "c1", Topic: "t", QoS: 0, CleanSession: true})
	idx.Add(Record{ClientID: "c2", Topic: "t", QoS: 0, CleanSession: true})

	idx.DeleteTopic("t")

	if got := collect(idx.MatchTopics("t")); len(got) != 0 {
		t.Fatalf("expected topic t gone, got %v", got)
	}
	for _, topics := range []string{"t"} {
		_ = topics
	}
	if cleared := idx.ClearClient("c1"); len(cleared) != 0 {
		t.Fatalf("expected c1's topic entry for t to be gone too, got %v", cleared)
	}
}

func TestEphemeralIndex_NoDuplicatesAcrossOverlappingFilters(t *testing.T) {
	idx := NewEphemeralIndex()
	idx.Add(Record{ClientID: "c1", Topic: "a/b", QoS: 0, CleanSession: true})
	idx.Add(Record{ClientID: "c1", Topic: "a/+", QoS: 0, CleanSession: true})

	got := collect(idx.MatchTopics("a/b"))
	if len(got) != 2 {
		t.Fatalf("expected two distinct (clientId,topic) records, got %v", got)
	}
	seen := map[Key]bool{}
	for _, r := range got {
		if seen[r.Key()] {
			t.Fatalf("duplicate record for key %v", r.Key())
		}
		seen[r.Key()] = true
	}
}

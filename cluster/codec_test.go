package cluster

import "testing"

func TestJSONCodec_RoundTrip(t *testing.T) {
	c := JSONCodec{}
	env := Envelope{
		Data: Event{
			Type:           Sub,
			ClientID:       "c1",
			Topic:          "a/b",
			QoS:            1,
			CleanSession:   true,
			OriginBrokerID: 3,
			TimestampMs:    1234,
		},
		Timestamp: 1234,
		BrokerID:  3,
		MessageID: "msg-1",
	}

	payload, err := c.Encode(env)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := c.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Timestamp != env.Timestamp || got.BrokerID != env.BrokerID || got.MessageID != env.MessageID {
		t.Fatalf("envelope mismatch: got %+v, want %+v", got, env)
	}
	if got.Data.Type != env.Data.Type || got.Data.ClientID != env.Data.ClientID ||
		got.Data.Topic != env.Data.Topic || got.Data.QoS != env.Data.QoS ||
		got.Data.CleanSession != env.Data.CleanSession ||
		got.Data.OriginBrokerID != env.Data.OriginBrokerID ||
		got.Data.TimestampMs != env.Data.TimestampMs {
		t.Fatalf("event mismatch: got %+v, want %+v", got.Data, env.Data)
	}
}

func TestJSONCodec_DecodeMalformed(t *testing.T) {
	c := JSONCodec{}
	if _, err := c.Decode([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding malformed payload")
	}
}

package subscription

import "testing"

func TestRecord_ValidateRejectsMalformedFilter(t *testing.T) {
	tests := []struct {
		name    string
		r       Record
		wantErr bool
	}{
		{"well-formed", Record{ClientID: "c1", Topic: "a/+/c", QoS: AtLeastOnce}, false},
		{"empty clientId", Record{ClientID: "", Topic: "a/b"}, true},
		{"empty topic", Record{ClientID: "c1", Topic: ""}, true},
		{"non-terminal hash", Record{ClientID: "c1", Topic: "a/#/b"}, true},
		{"plus sharing a level", Record{ClientID: "c1", Topic: "a/b+"}, true},
		{"qos out of range", Record{ClientID: "c1", Topic: "a/b", QoS: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Validate() = nil, want an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

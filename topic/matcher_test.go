package topic

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		topicName string
		filter    string
		want      bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/+/c", true},
		{"a/b/c", "a/#", true},
		{"a/b/c", "a/+", false},
		{"a", "#", true},
		{"$SYS/x", "#", false},
		{"$SYS/x", "$SYS/#", true},
		{"a//b", "a/+/b", true},

		{"test/topic", "test/topic", true},
		{"test/topic", "test/other", false},
		{"test/topic", "test/+", true},
		{"test/other", "test/+", true},
		{"test/topic/sub", "test/+", false},
		{"test/topic/sub", "test/+/sub", true},
		{"test/topic", "+/topic", true},
		{"test/topic", "+/+", true},
		{"test/topic", "test/#", true},
		{"test/topic/sub", "test/#", true},
		{"test/topic/sub/deep", "test/#", true},
		{"other/topic", "test/#", false},
		{"any/topic/here", "#", true},
		{"test/topic", "test/topic/#", true},
		{"test/topic/sub", "test/topic/#", true},
		{"test/topic/sub/deep", "+/+/#", true},
		{"test/topic/sub", "test/+/#", true},

		{"", "", true},
		{"test", "test", true},
		{"test/", "test/", true},

		{"$SYS/broker/version", "#", false},
		{"$SYS/monitor", "+/monitor", false},
		{"$SYS/broker", "+/+", false},
		{"$share/group/topic", "#", false},
		{"a/monitor", "+/monitor", true},
		{"a/$SYS/c", "a/+/c", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topicName, func(t *testing.T) {
			if got := Match(tt.topicName, tt.filter); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.topicName, tt.filter, got, tt.want)
			}
		})
	}
}

func TestIsSysTopic(t *testing.T) {
	if !IsSysTopic("$SYS/broker/uptime", "$SYS/") {
		t.Error("expected $SYS/broker/uptime to be a system topic")
	}
	if IsSysTopic("a/b", "$SYS/") {
		t.Error("did not expect a/b to be a system topic")
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		filter  string
		wantErr bool
	}{
		{"a/b/c", false},
		{"a/+/c", false},
		{"a/#", false},
		{"#", false},
		{"+", false},
		{"+/+", false},
		{"$SYS/#", false},

		{"", true},
		{"a/#/b", true},
		{"a/b#", true},
		{"#/b", true},
		{"a/b+", true},
		{"a/+b", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			err := ValidateFilter(tt.filter)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateFilter(%q) = nil, want an error", tt.filter)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateFilter(%q) = %v, want nil", tt.filter, err)
			}
		})
	}
}

func FuzzMatch(f *testing.F) {
	f.Add("sensors/+/temperature", "sensors/living-room/temperature")
	f.Add("sensors/#", "sensors/living-room/temperature/current")
	f.Add("#", "any/topic/here")
	f.Add("exact/match", "exact/match")
	f.Fuzz(func(t *testing.T, topicName, filter string) {
		_ = Match(topicName, filter)
	})
}

package mqtt

import "testing"

func TestStreamTopic(t *testing.T) {
	tests := []struct {
		control string
		want    string
	}{
		{"lights/glowwormluciferin", "lights/glowwormluciferin/stream"},
		{"lights/desk/", "lights/desk/stream"},
		{"ambient", "ambient/stream"},
	}

	for _, tt := range tests {
		if got := StreamTopic(tt.control); got != tt.want {
			t.Errorf("StreamTopic(%q) = %q, want %q", tt.control, got, tt.want)
		}
	}
}

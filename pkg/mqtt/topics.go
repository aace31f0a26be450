package mqtt

import "strings"

const (
	// DefaultControlTopic carries START/STOP commands in both directions
	DefaultControlTopic = "lights/glowwormluciferin"

	// StreamSuffix is appended to the control topic for the frame stream
	StreamSuffix = "/stream"

	// CommandStart and CommandStop are matched by substring in control payloads
	CommandStart = "START"
	CommandStop  = "STOP"
)

// StreamTopic returns the stream topic derived from a control topic
// Pattern: {control_topic}/stream
func StreamTopic(controlTopic string) string {
	return strings.TrimSuffix(controlTopic, "/") + StreamSuffix
}

package broker

import "time"

// State is the connection state of the manager
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// EventKind classifies manager events
type EventKind string

const (
	EventConnected       EventKind = "connected"
	EventConnectFailed   EventKind = "connect_failed"
	EventConnectionLost  EventKind = "connection_lost"
	EventReconnectFailed EventKind = "reconnect_failed"
	EventReconnected     EventKind = "reconnected"
	EventCommand         EventKind = "command"
	EventClosed          EventKind = "closed"
)

// Event describes something that happened to the broker connection
type Event struct {
	Kind EventKind
	// State is the connection state after the event
	State State
	// CommunicationError mirrors the manager flag after the event
	CommunicationError bool
	Detail             string
	At                 time.Time
}

// Observer receives manager events. Observers run on the goroutine that
// produced the event and should return quickly.
type Observer interface {
	HandleBrokerEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

func (f ObserverFunc) HandleBrokerEvent(e Event) {
	f(e)
}

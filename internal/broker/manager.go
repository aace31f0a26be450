// Package broker keeps a best-effort connection to the MQTT broker used for
// remote control and frame streaming.
//
// The manager owns a single client. A failed initial connect is final: the
// communication error flag is raised, the user is alerted once and nothing is
// retried. Once connected, a lost connection starts one reconnection poll that
// re-subscribes to the control topic at a fixed interval until it succeeds or
// the manager is closed.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saaga0h/lumen-platform/internal/settings"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
)

// Defaults applied by OptionsFromSettings
const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultMaxInFlight       = 1000
)

// QoS levels of the control subscription and the two publish channels
const (
	subscribeQoS = 1
	commandQoS   = 1
	streamQoS    = 0
)

// Options configures the manager
type Options struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
	MaxInFlight       int
}

// OptionsFromSettings builds manager options from the settings record
func OptionsFromSettings(s *settings.Settings, clientID string) Options {
	return Options{
		Broker:            s.BrokerURL(),
		ClientID:          clientID,
		Username:          s.MQTTUsername,
		Password:          s.MQTTPassword,
		Topic:             s.MQTTTopic,
		ConnectTimeout:    DefaultConnectTimeout,
		ReconnectInterval: DefaultReconnectInterval,
		MaxInFlight:       DefaultMaxInFlight,
	}
}

// StreamTopic returns the topic frames are streamed to
func (o Options) StreamTopic() string {
	return mqtt.StreamTopic(o.Topic)
}

// Manager maintains the broker connection
type Manager struct {
	opts    Options
	factory mqtt.Factory
	capture Capturer
	alerter Alerter
	logger  *slog.Logger

	mu        sync.Mutex
	client    mqtt.Client
	state     State
	commError bool
	closed    bool
	observers []Observer

	// reconnection poll, nil when none is running
	pollCancel context.CancelFunc
	pollDone   chan struct{}
	newTicker  tickerFunc
}

// tickerFunc returns a tick channel and its stop function
type tickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// NewManager creates a disconnected manager
func NewManager(opts Options, factory mqtt.Factory, capture Capturer, alerter Alerter, logger *slog.Logger) *Manager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}

	return &Manager{
		opts:      opts,
		factory:   factory,
		capture:   capture,
		alerter:   alerter,
		logger:    logger,
		state:     StateDisconnected,
		newTicker: realTicker,
	}
}

// AddObserver registers an observer for manager events
func (m *Manager) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Connect opens the connection and subscribes to the control topic. A failure
// raises the communication error flag and alerts the user; it is not retried.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("broker manager is closed")
	}
	if m.state != StateDisconnected {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("cannot connect while %s", state)
	}
	m.state = StateConnecting
	client := m.factory(mqtt.Options{
		Broker:           m.opts.Broker,
		ClientID:         m.opts.ClientID,
		Username:         m.opts.Username,
		Password:         m.opts.Password,
		CleanSession:     true,
		AutoReconnect:    true,
		ConnectTimeout:   m.opts.ConnectTimeout,
		MaxInFlight:      m.opts.MaxInFlight,
		OnConnectionLost: m.handleConnectionLost,
	})
	m.client = client
	m.mu.Unlock()

	err := m.open(ctx, client)

	m.mu.Lock()
	if m.closed {
		// Close already disconnected the client
		m.client = nil
		m.state = StateDisconnected
		m.mu.Unlock()
		return fmt.Errorf("broker manager closed while connecting")
	}
	if err != nil {
		m.client = nil
		m.state = StateDisconnected
		m.commError = true
		event := m.eventLocked(EventConnectFailed, err.Error())
		m.mu.Unlock()

		m.logger.Error("Can't connect to the MQTT server", "broker", m.opts.Broker, "error", err)
		m.notify(event)
		if m.alerter != nil {
			m.alerter.Alert(AlertTitle, AlertHeader, AlertContent)
		}
		return err
	}
	m.state = StateConnected
	m.commError = false
	event := m.eventLocked(EventConnected, m.opts.Broker)
	m.mu.Unlock()

	m.logger.Info("MQTT connected", "broker", m.opts.Broker, "topic", m.opts.Topic)
	m.notify(event)
	return nil
}

func (m *Manager) open(ctx context.Context, client mqtt.Client) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	err := client.Connect(ctx)
	if err == nil {
		err = m.subscribe(client)
	}
	if err != nil {
		// Stop any connect attempt still in flight after a timeout
		client.Disconnect()
		return err
	}
	return nil
}

func (m *Manager) subscribe(client mqtt.Client) error {
	return client.Subscribe(m.opts.Topic, subscribeQoS, m.handleMessage)
}

// Publish sends a message on the control topic. Failures are logged and the
// message is dropped.
func (m *Manager) Publish(msg string) {
	m.publish(m.opts.Topic, commandQoS, []byte(msg))
}

// Stream sends a message on the stream topic at QoS 0, not retained.
// Failures are logged and the message is dropped.
func (m *Manager) Stream(payload []byte) {
	m.publish(m.opts.StreamTopic(), streamQoS, payload)
}

// publish hands the message to the client whenever one exists. The client
// reconnects its transport on its own, so sending does not wait for the
// control subscription to be restored.
func (m *Manager) publish(topic string, qos byte, payload []byte) {
	m.mu.Lock()
	client := m.client
	subscribed := m.state == StateConnected
	m.mu.Unlock()

	if client == nil {
		m.logger.Debug("No MQTT connection, dropping message", "topic", topic, "size", len(payload))
		return
	}

	if err := client.Publish(topic, qos, false, payload); err != nil {
		if subscribed {
			m.logger.Error("Can't send MQTT message", "topic", topic, "error", err)
		} else {
			m.logger.Debug("MQTT disconnected, dropping message", "topic", topic, "error", err)
		}
	}
}

// handleConnectionLost is called by the client when an established
// connection drops
func (m *Manager) handleConnectionLost(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	event := m.eventLocked(EventConnectionLost, detail)
	var startPoll func()
	if m.pollCancel == nil && m.client != nil {
		startPoll = m.reservePollLocked()
	}
	m.mu.Unlock()

	m.logger.Error("Connection lost", "broker", m.opts.Broker, "error", err)
	m.notify(event)
	if startPoll != nil {
		startPoll()
	}
}

// reservePollLocked registers a new poll and returns the function that starts
// it. The returned function must be called.
func (m *Manager) reservePollLocked() func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.pollCancel = cancel
	m.pollDone = done

	return func() {
		m.logger.Info("Starting reconnection poll", "interval", m.opts.ReconnectInterval)
		go m.reconnectLoop(ctx, cancel, done)
	}
}

// reconnectLoop attempts a re-subscribe immediately and then once per
// interval until it succeeds or ctx is cancelled
func (m *Manager) reconnectLoop(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	ticks, stop := m.newTicker(m.opts.ReconnectInterval)
	defer stop()

	for {
		if m.attemptResubscribe(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
	}
}

// attemptResubscribe runs one poll tick. It returns true when the poll should
// stop.
func (m *Manager) attemptResubscribe(ctx context.Context) bool {
	m.mu.Lock()
	if ctx.Err() != nil || m.closed {
		m.mu.Unlock()
		return true
	}
	if m.state == StateConnected {
		m.clearPollLocked()
		m.mu.Unlock()
		return true
	}
	client := m.client
	m.state = StateConnecting
	m.mu.Unlock()

	err := m.subscribe(client)

	m.mu.Lock()
	if ctx.Err() != nil || m.closed {
		m.mu.Unlock()
		return true
	}
	if err != nil {
		m.state = StateDisconnected
		event := m.eventLocked(EventReconnectFailed, err.Error())
		m.mu.Unlock()

		m.logger.Error("MQTT disconnected, retrying", "interval", m.opts.ReconnectInterval, "error", err)
		m.notify(event)
		return false
	}
	m.state = StateConnected
	m.clearPollLocked()
	event := m.eventLocked(EventReconnected, m.opts.Topic)
	m.mu.Unlock()

	m.logger.Info("MQTT reconnected", "topic", m.opts.Topic)
	m.notify(event)
	return true
}

func (m *Manager) clearPollLocked() {
	m.pollCancel = nil
	m.pollDone = nil
}

// handleMessage dispatches control commands. Tokens are matched as
// substrings, START taking precedence over STOP.
func (m *Manager) handleMessage(msg mqtt.Message) {
	payload := string(msg.Payload())
	m.logger.Info("MQTT message received", "topic", msg.Topic(), "payload", payload)

	var command string
	switch {
	case strings.Contains(payload, mqtt.CommandStart):
		command = mqtt.CommandStart
		if m.capture != nil {
			m.capture.StartCapture()
		}
	case strings.Contains(payload, mqtt.CommandStop):
		command = mqtt.CommandStop
		if m.capture != nil {
			m.capture.StopCapture()
		}
	default:
		return
	}

	m.mu.Lock()
	event := m.eventLocked(EventCommand, command)
	m.mu.Unlock()
	m.notify(event)
}

// Close stops the reconnection poll and disconnects
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	cancel, done := m.pollCancel, m.pollDone
	m.clearPollLocked()
	client := m.client
	m.client = nil
	m.state = StateDisconnected
	event := m.eventLocked(EventClosed, "")
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if client != nil {
		client.Disconnect()
	}
	m.notify(event)
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the manager is connected and subscribed
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// CommunicationError reports whether the initial connection failed
func (m *Manager) CommunicationError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commError
}

// Polling reports whether a reconnection poll is active
func (m *Manager) Polling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCancel != nil
}

func (m *Manager) eventLocked(kind EventKind, detail string) Event {
	return Event{
		Kind:               kind,
		State:              m.state,
		CommunicationError: m.commError,
		Detail:             detail,
		At:                 time.Now(),
	}
}

func (m *Manager) notify(e Event) {
	m.mu.Lock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o.HandleBrokerEvent(e)
	}
}

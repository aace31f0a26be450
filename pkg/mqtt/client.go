package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Options describes how to reach and authenticate against a broker
type Options struct {
	// Broker is a paho broker URL, e.g. tcp://192.168.1.3:1883
	Broker   string
	ClientID string
	Username string
	Password string

	CleanSession   bool
	AutoReconnect  bool
	ConnectTimeout time.Duration
	MaxInFlight    int

	OnConnectionLost ConnectionLostHandler
}

// mqttClient implements the Client interface using the Paho MQTT client
type mqttClient struct {
	client pahomqtt.Client
	opts   Options
	logger *slog.Logger
}

// NewClient creates a new MQTT client with the given options
func NewClient(opts Options, logger *slog.Logger) Client {
	pahoOpts := pahomqtt.NewClientOptions()
	pahoOpts.AddBroker(opts.Broker)

	// Set client ID (auto-generate if not provided)
	if opts.ClientID != "" {
		pahoOpts.SetClientID(opts.ClientID)
	} else {
		pahoOpts.SetClientID("lumen-" + uuid.NewString()[:8])
	}

	// Set credentials if provided
	if opts.Username != "" {
		pahoOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		pahoOpts.SetPassword(opts.Password)
	}

	// Connection settings
	pahoOpts.SetCleanSession(opts.CleanSession)
	pahoOpts.SetAutoReconnect(opts.AutoReconnect)
	if opts.ConnectTimeout > 0 {
		pahoOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.MaxInFlight > 0 {
		pahoOpts.SetMaxResumePubInFlight(opts.MaxInFlight)
	}
	pahoOpts.SetOrderMatters(false)

	// Connection handlers
	pahoOpts.OnConnect = func(c pahomqtt.Client) {
		logger.Info("Connected to MQTT broker", "broker", opts.Broker)
	}

	pahoOpts.OnConnectionLost = func(c pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
		if opts.OnConnectionLost != nil {
			opts.OnConnectionLost(err)
		}
	}

	pahoOpts.OnReconnecting = func(c pahomqtt.Client, o *pahomqtt.ClientOptions) {
		logger.Info("MQTT reconnecting...")
	}

	return &mqttClient{
		client: pahomqtt.NewClient(pahoOpts),
		opts:   opts,
		logger: logger,
	}
}

// NewFactory returns a Factory producing paho-backed clients
func NewFactory(logger *slog.Logger) Factory {
	return func(opts Options) Client {
		return NewClient(opts, logger)
	}
}

// Connect establishes a connection to the MQTT broker
func (m *mqttClient) Connect(ctx context.Context) error {
	m.logger.Info("Connecting to MQTT broker", "broker", m.opts.Broker)

	token := m.client.Connect()

	// Wait for connection with context timeout
	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection timeout: %w", ctx.Err())
	}
}

// Disconnect closes the connection to the MQTT broker
func (m *mqttClient) Disconnect() {
	m.logger.Info("Disconnecting from MQTT broker")
	m.client.Disconnect(250) // 250ms grace period
}

// Subscribe subscribes to a topic with the given QoS and handler
func (m *mqttClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	m.logger.Info("Subscribing to MQTT topic", "topic", topic, "qos", qos)

	// Wrap the handler to convert paho message to our interface
	pahoHandler := func(client pahomqtt.Client, msg pahomqtt.Message) {
		handler(&mqttMessage{msg: msg})
	}

	token := m.client.Subscribe(topic, qos, pahoHandler)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	m.logger.Info("Successfully subscribed to topic", "topic", topic)
	return nil
}

// Publish publishes a message to a topic
func (m *mqttClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := m.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	m.logger.Debug("Published message", "topic", topic, "size", len(payload))
	return nil
}

// IsConnected returns whether the client is currently connected
func (m *mqttClient) IsConnected() bool {
	return m.client.IsConnected()
}

// mqttMessage wraps a Paho MQTT message to implement our Message interface
type mqttMessage struct {
	msg pahomqtt.Message
}

func (m *mqttMessage) Topic() string {
	return m.msg.Topic()
}

func (m *mqttMessage) Payload() []byte {
	return m.msg.Payload()
}

func (m *mqttMessage) Ack() {
	m.msg.Ack()
}

package broker

// Capturer starts and stops screen capture on remote command
type Capturer interface {
	StartCapture()
	StopCapture()
}

// Alerter surfaces a fatal error to the user
type Alerter interface {
	Alert(title, header, content string)
}

// Alert texts shown when the initial connection fails
const (
	AlertTitle   = "MQTT connection error"
	AlertHeader  = "Unable to connect to the MQTT server"
	AlertContent = "Check the MQTT settings (host, port, credentials) and make sure the broker is running. Remote control is disabled until the bridge is restarted."
)

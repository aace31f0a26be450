package settings

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// CaptureMethod selects how the screen is grabbed
type CaptureMethod string

const (
	CaptureDDUPL     CaptureMethod = "DDUPL"
	CaptureWinAPI    CaptureMethod = "WinAPI"
	CaptureCPU       CaptureMethod = "CPU"
	CaptureXIMAGESRC CaptureMethod = "XIMAGESRC"
)

// Aspect ratios and orientations accepted by the settings record
const (
	AspectFullScreen = "FullScreen"
	AspectLetterbox  = "Letterbox"

	OrientationClockwise     = "Clockwise"
	OrientationAnticlockwise = "Anticlockwise"

	SerialPortAuto = "AUTO"
)

// Default values used when no settings record exists yet
const (
	DefaultMQTTHost  = "tcp://192.168.1.3"
	DefaultMQTTPort  = "1883"
	DefaultMQTTTopic = "lights/glowwormluciferin"
	DefaultGamma     = 2.2
)

// ScalingOptions and GammaOptions are the values offered for the
// corresponding fields
var (
	ScalingOptions = []int{100, 125, 150, 175, 200, 225, 250, 300, 350}
	GammaOptions   = []float64{1.0, 1.8, 2.0, 2.2, 2.4, 4, 5, 6, 8, 10}
)

// Settings is the persisted configuration record
type Settings struct {
	ScreenWidth   int           `yaml:"screen_width" json:"screen_width"`
	ScreenHeight  int           `yaml:"screen_height" json:"screen_height"`
	OSScaling     int           `yaml:"os_scaling" json:"os_scaling"`
	CaptureMethod CaptureMethod `yaml:"capture_method" json:"capture_method"`
	Gamma         float64       `yaml:"gamma" json:"gamma"`
	SerialPort    string        `yaml:"serial_port" json:"serial_port"`
	CPUThreads    int           `yaml:"cpu_threads" json:"cpu_threads"`
	AspectRatio   string        `yaml:"aspect_ratio" json:"aspect_ratio"`

	MQTTServer   string `yaml:"mqtt_server" json:"mqtt_server"`
	MQTTTopic    string `yaml:"mqtt_topic" json:"mqtt_topic"`
	MQTTUsername string `yaml:"mqtt_username" json:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password" json:"mqtt_password"`
	MQTTEnable   bool   `yaml:"mqtt_enable" json:"mqtt_enable"`
	MQTTStream   bool   `yaml:"mqtt_stream" json:"mqtt_stream"`

	Orientation    string `yaml:"orientation" json:"orientation"`
	TopLED         int    `yaml:"top_led" json:"top_led"`
	LeftLED        int    `yaml:"left_led" json:"left_led"`
	RightLED       int    `yaml:"right_led" json:"right_led"`
	BottomLeftLED  int    `yaml:"bottom_left_led" json:"bottom_left_led"`
	BottomRightLED int    `yaml:"bottom_right_led" json:"bottom_right_led"`
}

// Platform describes the host the defaults are computed for
type Platform struct {
	OS           string
	ScreenWidth  int
	ScreenHeight int
	// ScaleFactor is the OS display scaling, 1.0 for 100%
	ScaleFactor float64
}

// DetectPlatform returns the current OS with a 1080p screen at 100% scaling.
// Callers that know the real screen geometry should fill it in.
func DetectPlatform() Platform {
	return Platform{
		OS:           runtime.GOOS,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		ScaleFactor:  1.0,
	}
}

// Defaults returns the settings used on first start
func Defaults(p Platform) *Settings {
	scale := p.ScaleFactor
	if scale <= 0 {
		scale = 1.0
	}

	method := CaptureXIMAGESRC
	if p.OS == "windows" {
		method = CaptureDDUPL
	}

	return &Settings{
		ScreenWidth:    int(float64(p.ScreenWidth) * scale),
		ScreenHeight:   int(float64(p.ScreenHeight) * scale),
		OSScaling:      int(scale * 100),
		CaptureMethod:  method,
		Gamma:          DefaultGamma,
		SerialPort:     SerialPortAuto,
		CPUThreads:     1,
		AspectRatio:    AspectFullScreen,
		MQTTServer:     DefaultMQTTHost + ":" + DefaultMQTTPort,
		MQTTTopic:      DefaultMQTTTopic,
		Orientation:    OrientationClockwise,
		TopLED:         33,
		LeftLED:        18,
		RightLED:       18,
		BottomLeftLED:  13,
		BottomRightLED: 13,
	}
}

// TotalLEDs returns the number of LEDs on the strip
func (s *Settings) TotalLEDs() int {
	return s.BottomRightLED + s.RightLED + s.TopLED + s.LeftLED + s.BottomLeftLED
}

// CaptureMethodsFor lists the capture methods available on an OS
func CaptureMethodsFor(goos string) []CaptureMethod {
	if goos == "windows" {
		return []CaptureMethod{CaptureDDUPL, CaptureWinAPI, CaptureCPU}
	}
	return []CaptureMethod{CaptureXIMAGESRC}
}

// SerialPortsFor lists the serial ports offered on an OS, AUTO first
func SerialPortsFor(goos string) []string {
	prefix := "/dev/ttyUSB"
	if goos == "windows" {
		prefix = "COM"
	}
	ports := make([]string, 0, 258)
	ports = append(ports, SerialPortAuto)
	for i := 0; i <= 256; i++ {
		ports = append(ports, prefix+strconv.Itoa(i))
	}
	return ports
}

// Validate checks each field independently
func (s *Settings) Validate() error {
	if s.ScreenWidth <= 0 || s.ScreenHeight <= 0 {
		return fmt.Errorf("screen resolution must be positive, got %dx%d", s.ScreenWidth, s.ScreenHeight)
	}
	if s.OSScaling <= 0 {
		return fmt.Errorf("OS scaling must be positive, got %d", s.OSScaling)
	}
	switch s.CaptureMethod {
	case CaptureDDUPL, CaptureWinAPI, CaptureCPU, CaptureXIMAGESRC:
	default:
		return fmt.Errorf("unknown capture method %q", s.CaptureMethod)
	}
	if s.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %v", s.Gamma)
	}
	if s.CPUThreads <= 0 {
		return fmt.Errorf("CPU threads must be positive, got %d", s.CPUThreads)
	}
	if s.AspectRatio != AspectFullScreen && s.AspectRatio != AspectLetterbox {
		return fmt.Errorf("unknown aspect ratio %q", s.AspectRatio)
	}
	if s.Orientation != OrientationClockwise && s.Orientation != OrientationAnticlockwise {
		return fmt.Errorf("unknown orientation %q", s.Orientation)
	}
	if _, _, err := SplitServer(s.MQTTServer); err != nil {
		return err
	}
	if s.MQTTEnable && strings.TrimSpace(s.MQTTTopic) == "" {
		return fmt.Errorf("MQTT topic is required when MQTT is enabled")
	}
	for name, n := range map[string]int{
		"top":          s.TopLED,
		"left":         s.LeftLED,
		"right":        s.RightLED,
		"bottom left":  s.BottomLeftLED,
		"bottom right": s.BottomRightLED,
	} {
		if n < 0 {
			return fmt.Errorf("%s LED count must not be negative, got %d", name, n)
		}
	}
	if s.TotalLEDs() == 0 {
		return fmt.Errorf("at least one LED is required")
	}
	return nil
}

// SplitServer splits host:port on the last colon, so scheme prefixes such as
// tcp:// stay with the host
func SplitServer(server string) (host, port string, err error) {
	idx := strings.LastIndex(server, ":")
	if idx <= 0 || idx == len(server)-1 {
		return "", "", fmt.Errorf("invalid MQTT server %q, expected host:port", server)
	}
	host, port = server[:idx], server[idx+1:]
	if _, err := strconv.Atoi(port); err != nil {
		return "", "", fmt.Errorf("invalid MQTT port %q: %w", port, err)
	}
	return host, port, nil
}

// BrokerURL returns the server as a paho broker URL, adding tcp:// when no
// scheme is present
func (s *Settings) BrokerURL() string {
	if strings.Contains(s.MQTTServer, "://") {
		return s.MQTTServer
	}
	return "tcp://" + s.MQTTServer
}

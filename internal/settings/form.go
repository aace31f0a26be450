package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Form holds the editable representation of a settings record. Every value is
// kept as the text the user typed, the way an input form would hold it.
type Form struct {
	ScreenWidth    string
	ScreenHeight   string
	Scaling        string
	CaptureMethod  string
	Gamma          string
	SerialPort     string
	CPUThreads     string
	AspectRatio    string
	MQTTHost       string
	MQTTPort       string
	MQTTTopic      string
	MQTTUser       string
	MQTTPassword   string
	MQTTEnable     bool
	MQTTStream     bool
	Orientation    string
	TopLED         string
	LeftLED        string
	RightLED       string
	BottomLeftLED  string
	BottomRightLED string
}

const percent = "%"

// numericFields accept digits only
var numericFields = map[string]func(*Form) *string{
	"screen-width":     func(f *Form) *string { return &f.ScreenWidth },
	"screen-height":    func(f *Form) *string { return &f.ScreenHeight },
	"threads":          func(f *Form) *string { return &f.CPUThreads },
	"mqtt-port":        func(f *Form) *string { return &f.MQTTPort },
	"top-led":          func(f *Form) *string { return &f.TopLED },
	"left-led":         func(f *Form) *string { return &f.LeftLED },
	"right-led":        func(f *Form) *string { return &f.RightLED },
	"bottom-left-led":  func(f *Form) *string { return &f.BottomLeftLED },
	"bottom-right-led": func(f *Form) *string { return &f.BottomRightLED },
}

var textFields = map[string]func(*Form) *string{
	"scaling":        func(f *Form) *string { return &f.Scaling },
	"capture-method": func(f *Form) *string { return &f.CaptureMethod },
	"gamma":          func(f *Form) *string { return &f.Gamma },
	"serial-port":    func(f *Form) *string { return &f.SerialPort },
	"aspect-ratio":   func(f *Form) *string { return &f.AspectRatio },
	"mqtt-host":      func(f *Form) *string { return &f.MQTTHost },
	"mqtt-topic":     func(f *Form) *string { return &f.MQTTTopic },
	"mqtt-user":      func(f *Form) *string { return &f.MQTTUser },
	"mqtt-password":  func(f *Form) *string { return &f.MQTTPassword },
	"orientation":    func(f *Form) *string { return &f.Orientation },
}

var boolFields = map[string]func(*Form) *bool{
	"mqtt-enable": func(f *Form) *bool { return &f.MQTTEnable },
	"mqtt-stream": func(f *Form) *bool { return &f.MQTTStream },
}

// FieldNames returns every settable field name, sorted
func FieldNames() []string {
	names := make([]string, 0, len(numericFields)+len(textFields)+len(boolFields))
	for name := range numericFields {
		names = append(names, name)
	}
	for name := range textFields {
		names = append(names, name)
	}
	for name := range boolFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsNumericField reports whether a field only accepts digits
func IsNumericField(name string) bool {
	_, ok := numericFields[name]
	return ok
}

// StripNonDigits removes every character that is not 0-9
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormFromSettings populates a form from a settings record
func FormFromSettings(s *Settings) *Form {
	host, port, err := SplitServer(s.MQTTServer)
	if err != nil {
		host, port = s.MQTTServer, ""
	}

	return &Form{
		ScreenWidth:    strconv.Itoa(s.ScreenWidth),
		ScreenHeight:   strconv.Itoa(s.ScreenHeight),
		Scaling:        strconv.Itoa(s.OSScaling) + percent,
		CaptureMethod:  string(s.CaptureMethod),
		Gamma:          strconv.FormatFloat(s.Gamma, 'f', -1, 64),
		SerialPort:     s.SerialPort,
		CPUThreads:     strconv.Itoa(s.CPUThreads),
		AspectRatio:    s.AspectRatio,
		MQTTHost:       host,
		MQTTPort:       port,
		MQTTTopic:      s.MQTTTopic,
		MQTTUser:       s.MQTTUsername,
		MQTTPassword:   s.MQTTPassword,
		MQTTEnable:     s.MQTTEnable,
		MQTTStream:     s.MQTTStream,
		Orientation:    s.Orientation,
		TopLED:         strconv.Itoa(s.TopLED),
		LeftLED:        strconv.Itoa(s.LeftLED),
		RightLED:       strconv.Itoa(s.RightLED),
		BottomLeftLED:  strconv.Itoa(s.BottomLeftLED),
		BottomRightLED: strconv.Itoa(s.BottomRightLED),
	}
}

// Set assigns a field by name. Numeric fields have non-digit characters
// stripped, matching what an input listener would do on each keystroke.
func (f *Form) Set(name, value string) error {
	if field, ok := numericFields[name]; ok {
		*field(f) = StripNonDigits(value)
		return nil
	}
	if field, ok := textFields[name]; ok {
		*field(f) = value
		return nil
	}
	if field, ok := boolFields[name]; ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("field %s expects true or false, got %q", name, value)
		}
		*field(f) = b
		return nil
	}
	return fmt.Errorf("unknown settings field %q", name)
}

// Get returns a field's current text by name
func (f *Form) Get(name string) (string, error) {
	if field, ok := numericFields[name]; ok {
		return *field(f), nil
	}
	if field, ok := textFields[name]; ok {
		return *field(f), nil
	}
	if field, ok := boolFields[name]; ok {
		return strconv.FormatBool(*field(f)), nil
	}
	return "", fmt.Errorf("unknown settings field %q", name)
}

// ToSettings assembles a settings record from the form
func (f *Form) ToSettings() (*Settings, error) {
	p := &formParser{}

	s := &Settings{
		ScreenWidth:    p.int("screen-width", f.ScreenWidth),
		ScreenHeight:   p.int("screen-height", f.ScreenHeight),
		OSScaling:      p.int("scaling", strings.TrimSuffix(strings.TrimSpace(f.Scaling), percent)),
		CaptureMethod:  CaptureMethod(f.CaptureMethod),
		Gamma:          p.float("gamma", f.Gamma),
		SerialPort:     f.SerialPort,
		CPUThreads:     p.int("threads", f.CPUThreads),
		AspectRatio:    f.AspectRatio,
		MQTTServer:     f.MQTTHost + ":" + f.MQTTPort,
		MQTTTopic:      f.MQTTTopic,
		MQTTUsername:   f.MQTTUser,
		MQTTPassword:   f.MQTTPassword,
		MQTTEnable:     f.MQTTEnable,
		MQTTStream:     f.MQTTStream,
		Orientation:    f.Orientation,
		TopLED:         p.int("top-led", f.TopLED),
		LeftLED:        p.int("left-led", f.LeftLED),
		RightLED:       p.int("right-led", f.RightLED),
		BottomLeftLED:  p.int("bottom-left-led", f.BottomLeftLED),
		BottomRightLED: p.int("bottom-right-led", f.BottomRightLED),
	}

	if p.err != nil {
		return nil, p.err
	}
	return s, nil
}

// formParser keeps the first conversion error
type formParser struct {
	err error
}

func (p *formParser) int(name, value string) int {
	n, err := strconv.Atoi(value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %s: %q is not a number", name, value)
	}
	return n
}

func (p *formParser) float(name, value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %s: %q is not a number", name, value)
	}
	return v
}

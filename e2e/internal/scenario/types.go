package scenario

import "time"

// Scenario is an end-to-end check against a running bridge
type Scenario struct {
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Setup        SetupConfig   `yaml:"setup"`
	Commands     []Command     `yaml:"commands"`
	Expectations []Expectation `yaml:"expectations"`
}

// SetupConfig names the bridge under test
type SetupConfig struct {
	Device string `yaml:"device"`
	Topic  string `yaml:"topic"`
	// Startup is how long to wait for the bridge before the clock starts
	Startup int `yaml:"startup"`
}

// Command is a payload published on the control topic
type Command struct {
	Time        int    `yaml:"time"` // Seconds from start
	Payload     string `yaml:"payload"`
	Description string `yaml:"description"`
}

// Expectation is a checkpoint on the bridge state
type Expectation struct {
	Time        int    `yaml:"time"` // Seconds from start
	Description string `yaml:"description"`

	// Status fields of the Redis status hash, supporting matchers
	Status map[string]string `yaml:"status,omitempty"`

	// Frames seen on the stream topic since the previous checkpoint
	MinFrames *int `yaml:"min_frames,omitempty"`
	MaxFrames *int `yaml:"max_frames,omitempty"`
	// LEDs every frame since the previous checkpoint must carry
	LEDs int `yaml:"leds,omitempty"`
}

// TestResult represents the outcome of running a scenario
type TestResult struct {
	Scenario     *Scenario
	StartTime    time.Time
	EndTime      time.Time
	Passed       bool
	PassedCount  int
	FailedCount  int
	Expectations []ExpectationResult
}

// ExpectationResult represents the result of checking a single expectation
type ExpectationResult struct {
	Layer       string
	Expectation Expectation
	Passed      bool
	Reason      string
	Actual      interface{}
}

package scenario

import (
	"fmt"
	"sort"
)

// ValidateScenario performs validation checks on a loaded scenario
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("scenario description is required")
	}

	if s.Setup.Device == "" {
		return fmt.Errorf("setup.device is required")
	}

	if s.Setup.Topic == "" {
		return fmt.Errorf("setup.topic is required")
	}

	if s.Setup.Startup < 0 {
		return fmt.Errorf("setup.startup cannot be negative")
	}

	if err := validateCommands(s.Commands); err != nil {
		return fmt.Errorf("commands validation failed: %w", err)
	}

	if err := validateExpectations(s.Expectations); err != nil {
		return fmt.Errorf("expectations validation failed: %w", err)
	}

	return nil
}

func validateCommands(commands []Command) error {
	for i, cmd := range commands {
		if cmd.Time < 0 {
			return fmt.Errorf("command %d: time cannot be negative", i)
		}
		if cmd.Payload == "" {
			return fmt.Errorf("command %d: payload is required", i)
		}
		if cmd.Description == "" {
			return fmt.Errorf("command %d: description is required", i)
		}
	}

	if !sort.SliceIsSorted(commands, func(a, b int) bool { return commands[a].Time < commands[b].Time }) {
		return fmt.Errorf("commands must be in chronological order")
	}

	return nil
}

func validateExpectations(expectations []Expectation) error {
	if len(expectations) == 0 {
		return fmt.Errorf("at least one expectation is required")
	}

	for i, exp := range expectations {
		if exp.Time < 0 {
			return fmt.Errorf("expectation %d: time cannot be negative", i)
		}
		if len(exp.Status) == 0 && exp.MinFrames == nil && exp.MaxFrames == nil && exp.LEDs == 0 {
			return fmt.Errorf("expectation %d: nothing to check", i)
		}
		if exp.MinFrames != nil && exp.MaxFrames != nil && *exp.MinFrames > *exp.MaxFrames {
			return fmt.Errorf("expectation %d: min_frames is greater than max_frames", i)
		}
		if exp.LEDs < 0 {
			return fmt.Errorf("expectation %d: leds cannot be negative", i)
		}
	}

	if !sort.SliceIsSorted(expectations, func(a, b int) bool { return expectations[a].Time < expectations[b].Time }) {
		return fmt.Errorf("expectations must be in chronological order")
	}

	return nil
}

package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/saaga0h/lumen-platform/e2e/internal/scenario"
)

// TimelineEvent represents a single event in the timeline
type TimelineEvent struct {
	Elapsed     float64
	Layer       string
	Description string
	Success     bool // ignored unless IsCheck
	IsCheck     bool
}

// GenerateTimeline creates a human-readable timeline of a scenario run
func GenerateTimeline(result *scenario.TestResult, events []TimelineEvent) string {
	var sb strings.Builder

	duration := result.EndTime.Sub(result.StartTime)

	sb.WriteString("╔══════════════════════════════════════════════════════════╗\n")
	sb.WriteString(fmt.Sprintf("║  Scenario: %-46s║\n", truncate(result.Scenario.Name, 46)))
	sb.WriteString(fmt.Sprintf("║  Duration: %-46s║\n", formatDuration(duration)))
	sb.WriteString("╚══════════════════════════════════════════════════════════╝\n\n")

	for _, event := range events {
		icon := "→"
		if event.IsCheck {
			if event.Success {
				icon = "✓"
			} else {
				icon = "✗"
			}
		}

		sb.WriteString(fmt.Sprintf("[%7.2fs] %s %-8s: %s\n",
			event.Elapsed,
			icon,
			event.Layer,
			event.Description,
		))
	}

	sb.WriteString("\n=== Expectations ===\n")

	layerResults := make(map[string][]scenario.ExpectationResult)
	var layers []string
	for _, expResult := range result.Expectations {
		if _, seen := layerResults[expResult.Layer]; !seen {
			layers = append(layers, expResult.Layer)
		}
		layerResults[expResult.Layer] = append(layerResults[expResult.Layer], expResult)
	}
	sort.Strings(layers)

	for _, layer := range layers {
		sb.WriteString(fmt.Sprintf("Layer: %s\n", layer))
		for _, expResult := range layerResults[layer] {
			icon := "✓"
			if !expResult.Passed {
				icon = "✗"
			}

			sb.WriteString(fmt.Sprintf("  %s [%ds] %s", icon, expResult.Expectation.Time, expResult.Expectation.Description))
			if !expResult.Passed {
				sb.WriteString(fmt.Sprintf(": %s", expResult.Reason))
			} else if conditions := describe(layer, expResult.Expectation); conditions != "" {
				sb.WriteString(fmt.Sprintf(": %s", conditions))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	status := "✓ ALL CHECKS PASSED"
	if result.FailedCount > 0 {
		status = fmt.Sprintf("✗ %d CHECK(S) FAILED", result.FailedCount)
	}

	sb.WriteString("╔══════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║  SUMMARY                                                 ║\n")
	sb.WriteString(fmt.Sprintf("║  Passed: %-48d║\n", result.PassedCount))
	sb.WriteString(fmt.Sprintf("║  Failed: %-48d║\n", result.FailedCount))
	sb.WriteString(fmt.Sprintf("║  Status: %-48s║\n", status))
	sb.WriteString("╚══════════════════════════════════════════════════════════╝\n")

	return sb.String()
}

// describe lists the conditions a passed check verified
func describe(layer string, exp scenario.Expectation) string {
	var conditions []string
	switch layer {
	case "status":
		for key, val := range exp.Status {
			conditions = append(conditions, fmt.Sprintf("%s=%s", key, val))
		}
		sort.Strings(conditions)
	case "stream":
		if exp.MinFrames != nil {
			conditions = append(conditions, fmt.Sprintf("frames>=%d", *exp.MinFrames))
		}
		if exp.MaxFrames != nil {
			conditions = append(conditions, fmt.Sprintf("frames<=%d", *exp.MaxFrames))
		}
		if exp.LEDs > 0 {
			conditions = append(conditions, fmt.Sprintf("leds=%d", exp.LEDs))
		}
	}
	return strings.Join(conditions, ", ")
}

// formatDuration formats a duration as human-readable string
func formatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	minutes := int(seconds / 60)
	remainingSeconds := seconds - float64(minutes*60)
	return fmt.Sprintf("%dm %.1fs", minutes, remainingSeconds)
}

// truncate truncates a string to maxLen characters
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

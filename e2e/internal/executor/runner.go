package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/saaga0h/lumen-platform/e2e/internal/checker"
	"github.com/saaga0h/lumen-platform/e2e/internal/reporter"
	"github.com/saaga0h/lumen-platform/e2e/internal/scenario"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

// step is one command or checkpoint of a scenario
type step struct {
	time        int
	command     *scenario.Command
	expectation *scenario.Expectation
}

// plan orders commands and checkpoints by time. At the same second commands
// run first.
func plan(s *scenario.Scenario) []step {
	steps := make([]step, 0, len(s.Commands)+len(s.Expectations))
	for i := range s.Commands {
		steps = append(steps, step{time: s.Commands[i].Time, command: &s.Commands[i]})
	}
	for i := range s.Expectations {
		steps = append(steps, step{time: s.Expectations[i].Time, expectation: &s.Expectations[i]})
	}
	sort.SliceStable(steps, func(a, b int) bool {
		if steps[a].time != steps[b].time {
			return steps[a].time < steps[b].time
		}
		return steps[a].command != nil && steps[b].command == nil
	})
	return steps
}

// Runner orchestrates scenario execution against a running bridge
type Runner struct {
	mqttBroker string
	factory    mqtt.Factory
	redis      redis.Client
	logger     *slog.Logger
}

// NewRunner creates a new scenario runner. redisClient may be nil when no
// scenario checks status fields.
func NewRunner(mqttBroker string, factory mqtt.Factory, redisClient redis.Client, logger *slog.Logger) *Runner {
	return &Runner{
		mqttBroker: mqttBroker,
		factory:    factory,
		redis:      redisClient,
		logger:     logger,
	}
}

// Run executes a scenario
func (r *Runner) Run(ctx context.Context, s *scenario.Scenario) (*scenario.TestResult, []reporter.TimelineEvent, error) {
	r.logger.Info("Starting scenario", "name", s.Name, "device", s.Setup.Device)

	client := r.factory(mqtt.Options{
		Broker:        r.mqttBroker,
		ClientID:      "lumen-e2e-" + uuid.NewString()[:8],
		CleanSession:  true,
		AutoReconnect: true,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	defer client.Disconnect()

	watcher := NewStreamWatcher()
	if err := client.Subscribe(mqtt.StreamTopic(s.Setup.Topic), 0, watcher.Handle); err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to stream topic: %w", err)
	}

	if s.Setup.Startup > 0 {
		r.logger.Info("Waiting for bridge startup", "seconds", s.Setup.Startup)
		if err := WaitUntil(ctx, time.Now(), s.Setup.Startup); err != nil {
			return nil, nil, err
		}
	}

	result := &scenario.TestResult{
		Scenario:  s,
		StartTime: time.Now(),
	}
	var timeline []reporter.TimelineEvent

	// Frames seen before the clock starts are not part of any window
	watcher.Take()

	for _, st := range plan(s) {
		if err := WaitUntil(ctx, result.StartTime, st.time); err != nil {
			return nil, nil, err
		}
		elapsed := GetElapsed(result.StartTime)

		if st.command != nil {
			r.logger.Info("Publishing command", "elapsed", elapsed, "payload", st.command.Payload)
			if err := client.Publish(s.Setup.Topic, 1, false, []byte(st.command.Payload)); err != nil {
				return nil, nil, fmt.Errorf("failed to publish command: %w", err)
			}
			timeline = append(timeline, reporter.TimelineEvent{
				Elapsed:     elapsed,
				Layer:       "command",
				Description: fmt.Sprintf("%s (%s)", st.command.Payload, st.command.Description),
			})
			continue
		}

		for _, res := range r.check(ctx, s, *st.expectation, watcher.Take()) {
			result.Expectations = append(result.Expectations, res)
			if res.Passed {
				result.PassedCount++
			} else {
				result.FailedCount++
			}

			desc := st.expectation.Description
			if !res.Passed {
				desc += ": " + res.Reason
			}
			timeline = append(timeline, reporter.TimelineEvent{
				Elapsed:     elapsed,
				Layer:       res.Layer,
				Description: desc,
				Success:     res.Passed,
				IsCheck:     true,
			})
		}
	}

	result.EndTime = time.Now()
	result.Passed = result.FailedCount == 0

	r.logger.Info("Scenario finished",
		"name", s.Name,
		"passed", result.PassedCount,
		"failed", result.FailedCount,
		"frames", watcher.Total())

	return result, timeline, nil
}

// check evaluates one checkpoint; status and stream checks are separate
// results
func (r *Runner) check(ctx context.Context, s *scenario.Scenario, exp scenario.Expectation, window checker.FrameWindow) []scenario.ExpectationResult {
	var results []scenario.ExpectationResult

	if len(exp.Status) > 0 {
		res := scenario.ExpectationResult{Layer: "status", Expectation: exp}
		if r.redis == nil {
			res.Reason = "status checks need Redis"
		} else {
			res.Passed, res.Reason, res.Actual = checker.CheckStatusExpectation(ctx, r.redis, s.Setup.Device, exp)
		}
		results = append(results, res)
	}

	if exp.MinFrames != nil || exp.MaxFrames != nil || exp.LEDs > 0 {
		res := scenario.ExpectationResult{Layer: "stream", Expectation: exp}
		res.Passed, res.Reason, res.Actual = checker.CheckFrameExpectation(window, exp)
		results = append(results, res)
	}

	return results
}

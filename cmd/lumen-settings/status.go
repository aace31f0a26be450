package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/saaga0h/lumen-platform/internal/journal"
	"github.com/saaga0h/lumen-platform/internal/telemetry"
	"github.com/saaga0h/lumen-platform/pkg/config"
	"github.com/saaga0h/lumen-platform/pkg/postgres"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

// serviceConfig reads the bridge configuration from the environment, with
// the device overridden by --device
func serviceConfig(cmd *cli.Command) *config.Config {
	cfg := config.NewConfig()
	cfg.LoadFromEnv()
	if device := cmd.String("device"); device != "" {
		cfg.DeviceName = device
	}
	return cfg
}

func deviceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "Bridge device name (defaults to LUMEN_DEVICE_NAME or lumen-bridge)",
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:        "status",
		Usage:       "Show the live status of a running bridge",
		Description: "Read the status a bridge publishes to Redis. Redis is configured with the LUMEN_REDIS_* variables.",
		Flags: []cli.Flag{
			deviceFlag(),
			&cli.IntFlag{
				Name:  "events",
				Usage: "Number of recent broker events to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output status as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := serviceConfig(cmd)
			client := redis.NewClient(cfg, newLogger(cmd))
			defer client.Close()

			store := telemetry.NewStore(client, cfg.DeviceName, newLogger(cmd))
			status, err := store.Snapshot(ctx)
			if errors.Is(err, telemetry.ErrNoStatus) {
				return fmt.Errorf("no status for device %q, is the bridge running with telemetry enabled?", cfg.DeviceName)
			}
			if err != nil {
				return err
			}

			events, err := store.RecentEvents(ctx, int(cmd.Int("events")))
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			if cmd.Bool("json") {
				return writeJSON(out, struct {
					Status *telemetry.Status       `json:"status"`
					Events []telemetry.EventRecord `json:"events"`
				}{status, events})
			}
			printStatus(out, cfg.DeviceName, status, events, time.Now())
			return nil
		},
	}
}

func printStatus(out io.Writer, device string, status *telemetry.Status, events []telemetry.EventRecord, now time.Time) {
	fmt.Fprintf(out, "Device:              %s\n", device)
	fmt.Fprintf(out, "Broker:              %s\n", status.BrokerState)
	fmt.Fprintf(out, "Communication error: %t\n", status.CommunicationError)
	fmt.Fprintf(out, "Capturing:           %t\n", status.Capturing)
	fmt.Fprintf(out, "Producing FPS:       %.1f\n", status.ProducerFPS)
	fmt.Fprintf(out, "Consuming FPS:       %.1f\n", status.ConsumerFPS)
	fmt.Fprintf(out, "Gamma:               %g\n", status.Gamma)
	fmt.Fprintf(out, "Updated:             %s ago\n", now.Sub(status.UpdatedAt).Truncate(time.Second))

	if len(events) == 0 {
		return
	}
	fmt.Fprintf(out, "\nRecent events:\n")
	for _, e := range events {
		line := fmt.Sprintf("  %s  %-16s %s", e.At.Local().Format(time.DateTime), e.Kind, e.State)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Fprintln(out, line)
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:        "history",
		Usage:       "Show journaled bridge events",
		Description: "Read broker events and remote commands from the Postgres journal. Postgres is configured with the LUMEN_POSTGRES_* variables.",
		Flags: []cli.Flag{
			deviceFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of events to show",
				Value:   20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := serviceConfig(cmd)
			logger := newLogger(cmd)

			db := postgres.NewClient(cfg, logger)
			if err := db.Connect(ctx); err != nil {
				return err
			}
			defer db.Disconnect()

			entries, err := journal.New(db, cfg.DeviceName, logger).Recent(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			if len(entries) == 0 {
				fmt.Fprintf(out, "No events journaled for %s\n", cfg.DeviceName)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-16s %-12s %s\n", e.OccurredAt.Local().Format(time.DateTime), e.Kind, e.State, e.Detail)
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/saaga0h/lumen-platform/internal/preview"
	"github.com/saaga0h/lumen-platform/internal/settings"
)

func openStore(cmd *cli.Command) *settings.Store {
	return settings.NewStore(cmd.String("settings"), newLogger(cmd))
}

func platformFrom(cmd *cli.Command) settings.Platform {
	p := settings.DetectPlatform()
	if w := cmd.Int("width"); w > 0 {
		p.ScreenWidth = int(w)
	}
	if h := cmd.Int("height"); h > 0 {
		p.ScreenHeight = int(h)
	}
	return p
}

func screenFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "width", Usage: "Screen width used for defaults"},
		&cli.IntFlag{Name: "height", Usage: "Screen height used for defaults"},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:        "init",
		Usage:       "Write default settings",
		Description: "Write the platform defaults to the settings file. An existing file is kept unless --force is given.",
		Flags: append(screenFlags(), &cli.BoolFlag{
			Name:  "force",
			Usage: "Overwrite an existing settings file",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store := openStore(cmd)
			out := cmd.Root().Writer

			if _, err := store.Load(); err == nil && !cmd.Bool("force") {
				fmt.Fprintf(out, "Settings already exist at %s (use --force to overwrite)\n", store.Path())
				return nil
			} else if err != nil && !errors.Is(err, settings.ErrNoSettings) && !cmd.Bool("force") {
				return err
			}

			if err := store.Save(settings.Defaults(platformFrom(cmd))); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote default settings to %s\n", store.Path())
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:        "show",
		Usage:       "Print the current settings",
		Description: "Print every settings field as the form would show it. Defaults are shown when nothing is saved yet.",
		Flags: append(screenFlags(), &cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output the settings record as JSON",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store := openStore(cmd)
			out := cmd.Root().Writer

			s, found, err := store.LoadOrDefaults(platformFrom(cmd))
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				masked := *s
				if masked.MQTTPassword != "" {
					masked.MQTTPassword = passwordMask
				}
				return writeJSON(out, &masked)
			}
			if !found {
				fmt.Fprintf(out, "# no settings saved at %s, showing defaults\n", store.Path())
			}
			return printForm(out, settings.FormFromSettings(s))
		},
	}
}

const passwordMask = "********"

func printForm(out io.Writer, form *settings.Form) error {
	for _, name := range settings.FieldNames() {
		value, err := form.Get(name)
		if err != nil {
			return err
		}
		if name == "mqtt-password" && value != "" {
			value = passwordMask
		}
		fmt.Fprintf(out, "%-17s %s\n", name, value)
	}
	return nil
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:        "set",
		Usage:       "Change settings fields",
		ArgsUsage:   "field=value [field=value...]",
		Description: "Assign form fields and save. Numeric fields keep only their digits.",
		Flags:       screenFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return cli.ShowSubcommandHelp(cmd)
			}
			store := openStore(cmd)

			s, _, err := store.LoadOrDefaults(platformFrom(cmd))
			if err != nil {
				return err
			}

			updated, err := applyAssignments(s, cmd.Args().Slice())
			if err != nil {
				return err
			}
			if err := store.Save(updated); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "Saved settings to %s\n", store.Path())
			return nil
		},
	}
}

// applyAssignments runs field=value pairs through the form and returns the
// resulting record
func applyAssignments(s *settings.Settings, args []string) (*settings.Settings, error) {
	form := settings.FormFromSettings(s)
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		if err := form.Set(strings.TrimSpace(name), value); err != nil {
			return nil, err
		}
	}

	updated, err := form.ToSettings()
	if err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	return updated, nil
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:        "fields",
		Usage:       "List settings fields and accepted values",
		Description: "List every field accepted by set, with the choices offered for this platform.",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer
			p := settings.DetectPlatform()

			for _, name := range settings.FieldNames() {
				kind := "text"
				if settings.IsNumericField(name) {
					kind = "number"
				}
				fmt.Fprintf(out, "%-17s %s\n", name, kind)
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "capture-method    %v\n", settings.CaptureMethodsFor(p.OS))
			fmt.Fprintf(out, "scaling           %v\n", settings.ScalingOptions)
			fmt.Fprintf(out, "gamma             %v\n", settings.GammaOptions)
			fmt.Fprintf(out, "aspect-ratio      [%s %s]\n", settings.AspectFullScreen, settings.AspectLetterbox)
			fmt.Fprintf(out, "orientation       [%s %s]\n", settings.OrientationClockwise, settings.OrientationAnticlockwise)
			ports := settings.SerialPortsFor(p.OS)
			fmt.Fprintf(out, "serial-port       %s, %s ... %s\n", ports[0], ports[1], ports[len(ports)-1])
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:        "preview",
		Usage:       "Render the LED calibration image",
		Description: "Render the coloured LED layout for the current settings to a PNG file.",
		Flags: append(screenFlags(), &cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "PNG file to write",
			Value:   "lumen-preview.png",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store := openStore(cmd)

			s, _, err := store.LoadOrDefaults(platformFrom(cmd))
			if err != nil {
				return err
			}

			path := cmd.String("output")
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := preview.WritePNG(f, s); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			w, h := preview.CanvasSize(s)
			fmt.Fprintf(cmd.Root().Writer, "Wrote %dx%d preview with %d LEDs to %s\n", w, h, s.TotalLEDs(), path)
			return nil
		},
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

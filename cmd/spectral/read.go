package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/spectrum"
)

const (
	oneShotNone  = "none"
	oneShotSync  = "sync"
	oneShotAsync = "async"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "read all channels",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "oneshot",
			Usage: "trigger a one-shot conversion first: none, sync or async",
			Value: oneShotAsync,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "table or yaml",
			Value:   "table",
		},
	},
	Action: func(c *cli.Context) error {
		format := c.String("format")
		if format != "table" && format != "yaml" {
			return console.Exit(1, "unknown output format %q", format)
		}
		return withDevice(c, func(ctx context.Context, dev *spectrum.AS726x) error {
			err := measure(ctx, dev, c.String("oneshot"))
			if err != nil {
				return console.Fail("measurement error", err)
			}
			reading, err := dev.Read(ctx)
			if err != nil {
				return console.Fail("sensor communication error", err)
			}
			if format == "yaml" {
				enc := yaml.NewEncoder(console.Writer())
				defer enc.Close()
				err = enc.Encode(reading)
			} else {
				err = printReading(console.Writer(), reading)
			}
			if err != nil {
				return console.Fail("encoding error", err)
			}
			return nil
		})
	},
}

// measure runs the requested conversion. The sync trigger only waits for the
// estimated conversion time so data-ready is checked afterwards.
func measure(ctx context.Context, dev *spectrum.AS726x, oneShot string) error {
	switch oneShot {
	case oneShotNone:
		return nil
	case oneShotSync:
		err := dev.TriggerOneShotSync(ctx)
		if err != nil {
			return err
		}
		ready, err := dev.DataReady(ctx)
		if err != nil {
			return err
		}
		if !ready {
			console.Warnf("conversion still running after the estimated integration time")
		}
		return nil
	case oneShotAsync:
		err := dev.TriggerOneShotAsync(ctx)
		if err != nil {
			return err
		}
		return dev.WaitDataReady(ctx)
	default:
		return fmt.Errorf("unknown one-shot mode %q", oneShot)
	}
}

func printReading(out io.Writer, r *spectrum.Reading) error {
	_, _ = fmt.Fprintf(out, "%s %s at %d°C, gain %s, %s, integration %s\n", console.PictoRainbow,
		console.White(r.Sensor), r.Temperature, r.Gain, r.Mode, spectrum.IntegrationDuration(r.IntegrationTime))
	bands, err := spectrum.Bands(r.Sensor)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintf(w, "CHANNEL\tWAVELENGTH\tRAW\tCALIBRATED\t\n")
	for i := range spectrum.ChannelCount {
		name, wavelength := fmt.Sprintf("ch%d", i), "-"
		if err == nil {
			name, wavelength = bands[i].Name, fmt.Sprintf("%dnm", bands[i].Wavelength)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t\n", name, wavelength, r.Raw[i], r.Calibrated[i])
	}
	return w.Flush()
}

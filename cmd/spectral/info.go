package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/spectrum"
)

var infoCmd = cli.Command{
	Name:  "info",
	Usage: "print sensor type, temperature and current setup",
	Action: func(c *cli.Context) error {
		return withDevice(c, func(ctx context.Context, dev *spectrum.AS726x) error {
			err := printInfo(ctx, console.Writer(), dev)
			if err != nil {
				return console.Fail("sensor communication error", err)
			}
			return nil
		})
	},
}

func printInfo(ctx context.Context, out io.Writer, dev *spectrum.AS726x) error {
	sensor, err := dev.SensorType(ctx)
	if err != nil {
		return err
	}
	temp, err := dev.Temperature(ctx)
	if err != nil {
		return err
	}
	gain, err := dev.Gain(ctx)
	if err != nil {
		return err
	}
	mode, err := dev.MeasurementMode(ctx)
	if err != nil {
		return err
	}
	intTime, err := dev.IntegrationTime(ctx)
	if err != nil {
		return err
	}
	leds, err := dev.LEDs(ctx)
	if err != nil {
		return err
	}
	ready, err := dev.DataReady(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "sensor\t%s\n", console.White(sensor))
	_, _ = fmt.Fprintf(w, "temperature\t%s %s°C\n", console.PictoThermometer, console.White(temp))
	_, _ = fmt.Fprintf(w, "gain\t%s\n", console.White(gain))
	_, _ = fmt.Fprintf(w, "mode\t%s\n", console.White(mode))
	_, _ = fmt.Fprintf(w, "integration time\t%s (%s)\n", console.White(intTime), spectrum.IntegrationDuration(intTime))
	_, _ = fmt.Fprintf(w, "data ready\t%t\n", ready)
	_, _ = fmt.Fprintf(w, "indicator led\t%s %s\n", console.OnOff(leds.Indicator), leds.IndicatorCurrent)
	_, _ = fmt.Fprintf(w, "bulb led\t%s %s\n", console.OnOff(leds.Bulb), leds.BulbCurrent)
	return w.Flush()
}

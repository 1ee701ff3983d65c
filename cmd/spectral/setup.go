package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/spectrum"
)

var setupCmd = cli.Command{
	Name:  "setup",
	Usage: "configure gain, measurement mode and integration time",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "gain",
			Usage: "1x, 3.7x, 16x or 64x",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "continuous-bank1, continuous-bank2, continuous-all or one-shot",
		},
		&cli.UintFlag{
			Name:  "integration-time",
			Usage: "integration time in 2.8ms steps (1-255)",
		},
	},
	Action: func(c *cli.Context) error {
		if c.IsSet("integration-time") && c.Uint("integration-time") > 255 {
			return console.Exit(1, "integration time %d does not fit the register", c.Uint("integration-time"))
		}
		return withDevice(c, func(ctx context.Context, dev *spectrum.AS726x) error {
			err := applySetup(ctx, dev, c.String("gain"), c.String("mode"), c.IsSet("integration-time"), byte(c.Uint("integration-time")))
			if err != nil {
				return console.Fail("setup error", err)
			}
			err = printInfo(ctx, console.Writer(), dev)
			if err != nil {
				return console.Fail("sensor communication error", err)
			}
			return nil
		})
	},
}

func applySetup(ctx context.Context, dev *spectrum.AS726x, gain, mode string, setIntTime bool, intTime byte) error {
	if gain != "" {
		g, err := spectrum.ParseGain(gain)
		if err != nil {
			return err
		}
		err = dev.SetGain(ctx, g)
		if err != nil {
			return fmt.Errorf("could not set gain: %w", err)
		}
	}
	if mode != "" {
		m, err := spectrum.ParseMeasurementMode(mode)
		if err != nil {
			return err
		}
		err = dev.SetMeasurementMode(ctx, m)
		if err != nil {
			return fmt.Errorf("could not set mode: %w", err)
		}
	}
	if setIntTime {
		err := dev.SetIntegrationTime(ctx, intTime)
		if err != nil {
			return fmt.Errorf("could not set integration time: %w", err)
		}
	}
	return nil
}

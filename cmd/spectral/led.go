package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/spectrum"
)

var ledCmd = cli.Command{
	Name:  "led",
	Usage: "control the indicator and bulb LEDs",
	Subcommands: cli.Commands{
		&ledIndicatorCmd,
		&ledBulbCmd,
	},
}

func currentFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "current",
		Usage: "drive current limit, e.g. 4mA or 12.5mA",
	}
}

var ledIndicatorCmd = cli.Command{
	Name:      "indicator",
	Usage:     "switch the indicator LED",
	ArgsUsage: "on|off",
	Flags:     []cli.Flag{currentFlag()},
	Action: func(c *cli.Context) error {
		on, switchLED, err := ledSwitch(c)
		if err != nil {
			return err
		}
		return withDevice(c, func(ctx context.Context, dev *spectrum.AS726x) error {
			if current := c.String("current"); current != "" {
				v, err := spectrum.ParseIndicatorCurrent(current)
				if err != nil {
					return console.Fail("invalid current", err)
				}
				err = dev.SetIndicatorCurrent(ctx, v)
				if err != nil {
					return console.Fail("could not set indicator current", err)
				}
			}
			if switchLED {
				err := dev.SetIndicatorLED(ctx, on)
				if err != nil {
					return console.Fail("could not switch indicator", err)
				}
			}
			return printLEDs(ctx, dev)
		})
	},
}

var ledBulbCmd = cli.Command{
	Name:      "bulb",
	Usage:     "switch the illumination LED",
	ArgsUsage: "on|off",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask before driving the bulb at 100mA",
		},
		currentFlag(),
	},
	Action: func(c *cli.Context) error {
		on, switchLED, err := ledSwitch(c)
		if err != nil {
			return err
		}
		var current *spectrum.BulbCurrent
		if text := c.String("current"); text != "" {
			v, err := spectrum.ParseBulbCurrent(text)
			if err != nil {
				return console.Fail("invalid current", err)
			}
			if v == spectrum.Bulb100mA && !c.Bool("yes") {
				answer, err := console.YesOrNo(fmt.Sprintf("%s drive the bulb at %s? The LED gets hot", console.PictoBulb, console.Yellow(v)))
				if err != nil {
					return console.Fail("prompt error", err)
				}
				if answer != console.Yes {
					console.PInfof(console.PictoStop, "bulb current left unchanged")
					return nil
				}
			}
			current = &v
		}
		return withDevice(c, func(ctx context.Context, dev *spectrum.AS726x) error {
			if current != nil {
				err := dev.SetBulbCurrent(ctx, *current)
				if err != nil {
					return console.Fail("could not set bulb current", err)
				}
			}
			if switchLED {
				err := dev.SetBulbLED(ctx, on)
				if err != nil {
					return console.Fail("could not switch bulb", err)
				}
			}
			return printLEDs(ctx, dev)
		})
	},
}

// ledSwitch parses the optional on|off argument.
func ledSwitch(c *cli.Context) (on bool, set bool, err error) {
	switch c.Args().First() {
	case "":
		return false, false, nil
	case "on":
		return true, true, nil
	case "off":
		return false, true, nil
	default:
		return false, false, console.Exit(1, "expected on or off, got %q", c.Args().First())
	}
}

func printLEDs(ctx context.Context, dev *spectrum.AS726x) error {
	leds, err := dev.LEDs(ctx)
	if err != nil {
		return console.Fail("could not read LED state", err)
	}
	console.PInfof(console.PictoBulb, "indicator %s %s, bulb %s %s",
		console.OnOff(leds.Indicator), leds.IndicatorCurrent, console.OnOff(leds.Bulb), leds.BulbCurrent)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/pkg/config"
)

// settings is the effective configuration: defaults, then the config file, then flags.
var settings = config.Default()

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "spectral"
	app.EnableBashCompletion = true
	app.Version = config.BuildInfo()
	app.Usage = "AS7262/AS7263 spectral sensor cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and bus traces",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML config file",
			EnvVars: []string{"SPECTRAL_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "bus adapter: mcp2221, generic, nanopi or sim",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "periph bus name for the generic adapter",
		},
		&cli.IntFlag{
			Name:  "bus",
			Usage: "gobot bus number for the nanopi adapter",
		},
		&cli.StringFlag{
			Name:  "address",
			Usage: "7-bit I2C address of the sensor",
		},
		&cli.DurationFlag{
			Name:  "poll-interval",
			Usage: "pause between status polls",
		},
		&cli.IntFlag{
			Name:  "max-polls",
			Usage: "status polls before timing out (-1 waits forever)",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "reject out-of-range settings instead of clamping",
		},
	}
	app.Before = func(c *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if c.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))

		err := loadSettings(c)
		if err != nil {
			return console.Fail("configuration error", err)
		}
		return nil
	}
	app.Commands = cli.Commands{
		&infoCmd,
		&readCmd,
		&setupCmd,
		&ledCmd,
		&shellCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		_, _ = fmt.Fprint(os.Stderr, console.Format(err))
		return 1
	}
	return 0
}

func loadSettings(c *cli.Context) error {
	settings = config.Default()
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		settings = cfg
	}
	if c.IsSet("adapter") {
		settings.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		settings.Device = c.String("device")
	}
	if c.IsSet("bus") {
		settings.Bus = c.Int("bus")
	}
	if c.IsSet("address") {
		addr, err := strconv.ParseUint(c.String("address"), 0, 8)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", c.String("address"), err)
		}
		settings.Address = uint8(addr)
	}
	if c.IsSet("poll-interval") {
		settings.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("max-polls") {
		settings.MaxPolls = c.Int("max-polls")
	}
	if c.IsSet("strict") {
		settings.Strict = c.Bool("strict")
	}
	return settings.Validate()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/spectral"
	"github.com/mklimuk/spectral/adapter"
	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/i2c"
	"github.com/mklimuk/spectral/pkg/config"
	"github.com/mklimuk/spectral/snsctx"
	"github.com/mklimuk/spectral/spectrum"
)

// busyRetries is how many times an MCP2221 transfer is attempted while the
// adapter reports a busy I2C engine.
const busyRetries = 3

func commandContext(c *cli.Context) context.Context {
	return snsctx.WithVerbose(c.Context, c.Bool("verbose"))
}

// withDevice opens the configured bus, runs fn on the sensor and closes the bus.
func withDevice(c *cli.Context, fn func(ctx context.Context, dev *spectrum.AS726x) error) error {
	ctx := commandContext(c)
	bus, closeBus, err := openBus(ctx, settings)
	if err != nil {
		return console.Fail("adapter initialization error", err)
	}
	defer func() {
		if err := closeBus(); err != nil {
			console.Warnf("could not close bus: %s", err)
		}
	}()
	return fn(ctx, newDevice(bus, settings))
}

func newDevice(bus spectral.I2CBus, cfg config.Config) *spectrum.AS726x {
	opts := []spectrum.AS726xOpt{
		spectrum.WithAddress(cfg.Address),
		spectrum.WithPollInterval(cfg.PollInterval),
		spectrum.WithMaxPolls(cfg.MaxPolls),
	}
	if cfg.Adapter == config.AdapterMCP2221 {
		opts = append(opts, spectrum.WithBusOptions(spectral.WithBusyRetries(busyRetries)))
	}
	if cfg.Strict {
		opts = append(opts, spectrum.WithStrictArguments())
	}
	return spectrum.NewAS726x(bus, opts...)
}

func openBus(ctx context.Context, cfg config.Config) (spectral.I2CBus, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221(adapter.WithResponseWait(cfg.ResponseWait))
		err := a.Init(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a, noop, nil
	case config.AdapterGeneric:
		b, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.AdapterNanoPi:
		npi := nanopi.NewNeoAdaptor()
		err := npi.I2cBusAdaptor.Connect()
		if err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		b := i2c.NewGobotBus(npi, cfg.Bus)
		return b, func() error {
			return errors.Join(b.Close(), npi.I2cBusAdaptor.Finalize())
		}, nil
	case config.AdapterSim:
		return newDemoSimulator(cfg.Address), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownAdapter, cfg.Adapter)
	}
}

// newDemoSimulator returns an AS7262 answering with a smooth visible spectrum.
func newDemoSimulator(address byte) *spectrum.Simulator {
	sim := spectrum.NewSimulator(spectrum.SensorTypeAS7262)
	sim.SetAddress(address)
	sim.ConversionPolls = 3
	bands, _ := spectrum.Bands(spectrum.SensorTypeAS7262)
	var raw [spectrum.ChannelCount]uint16
	var cal [spectrum.ChannelCount]float32
	for i, b := range bands {
		v := 1000 * math.Exp(-math.Pow(float64(b.Wavelength-550)/90, 2))
		raw[i] = uint16(v)
		cal[i] = float32(v * 1.25)
	}
	sim.LoadSpectrum(raw, cal)
	return sim
}

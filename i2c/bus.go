package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/spectral"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var _ spectral.I2CBus = &GenericBus{}
var _ spectral.RegisterBus = &GenericBus{}

// GenericBus is a Linux I2C bus driven through periph.io.
type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus opens the named bus (e.g. "/dev/i2c-1" or "1"); an empty name
// opens the first available one.
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// ReadReg reads one register in a single combined (repeated start) transfer.
func (b *GenericBus) ReadReg(ctx context.Context, address, register byte) (byte, error) {
	rx := []byte{0x00}
	err := b.bus.Tx(uint16(address), []byte{register}, rx)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x of %x: %w", register, address, err)
	}
	return rx[0], nil
}

func (b *GenericBus) WriteReg(ctx context.Context, address, register, value byte) error {
	err := b.bus.Tx(uint16(address), []byte{register, value}, nil)
	if err != nil {
		return fmt.Errorf("could not write register %#x of %x: %w", register, address, err)
	}
	return nil
}

// SetSpeed changes the bus clock. AS726x devices support up to 400 kHz.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}

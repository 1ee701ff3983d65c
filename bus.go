package spectral

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a raw I2C transport addressing 7-bit devices.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// RegisterBus gives one-byte access to the registers of a device on the bus.
type RegisterBus interface {
	ReadReg(ctx context.Context, address, register byte) (byte, error)
	WriteReg(ctx context.Context, address, register, value byte) error
}

type RegisterBusOpts struct {
	BusyRetries int
}

type RegisterBusOpt func(*RegisterBusOpts)

// WithBusyRetries sets how many attempts are made when the bus reports ErrBusBusy.
// The bus is released between attempts. Any other error is returned at once.
func WithBusyRetries(attempts int) RegisterBusOpt {
	return func(o *RegisterBusOpts) {
		o.BusyRetries = attempts
	}
}

var _ RegisterBus = &registerBus{}

type registerBus struct {
	bus        I2CBus
	retryLimit int
}

// NewRegisterBus implements register access on top of a raw bus: the register
// pointer is written first and a single byte is read back in a second transfer.
// If the bus already supports register access it is returned unchanged.
func NewRegisterBus(bus I2CBus, opts ...RegisterBusOpt) RegisterBus {
	if rb, ok := bus.(RegisterBus); ok && len(opts) == 0 {
		return rb
	}
	config := RegisterBusOpts{BusyRetries: 1}
	for _, opt := range opts {
		opt(&config)
	}
	if config.BusyRetries < 1 {
		config.BusyRetries = 1
	}
	return &registerBus{bus: bus, retryLimit: config.BusyRetries}
}

func (r *registerBus) ReadReg(ctx context.Context, address, register byte) (byte, error) {
	err := r.retry(ctx, func() error {
		return r.bus.WriteToAddr(ctx, address, []byte{register})
	})
	if err != nil {
		return 0, fmt.Errorf("could not set register pointer %#x: %w", register, err)
	}
	buf := []byte{0x00}
	err = r.retry(ctx, func() error {
		return r.bus.ReadFromAddr(ctx, address, buf)
	})
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x: %w", register, err)
	}
	return buf[0], nil
}

func (r *registerBus) WriteReg(ctx context.Context, address, register, value byte) error {
	err := r.retry(ctx, func() error {
		return r.bus.WriteToAddr(ctx, address, []byte{register, value})
	})
	if err != nil {
		return fmt.Errorf("could not write register %#x: %w", register, err)
	}
	return nil
}

func (r *registerBus) retry(ctx context.Context, op func() error) error {
	var err error
	for i := r.retryLimit; i > 0; i-- {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = r.bus.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}

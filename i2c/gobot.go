package i2c

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/spectral"
	"gobot.io/x/gobot/v2/drivers/i2c"
)

var _ spectral.I2CBus = &GobotBus{}
var _ spectral.RegisterBus = &GobotBus{}

// GobotBus drives an I2C bus through a gobot adaptor (e.g. NanoPi NEO).
// Connections are opened lazily, one per device address.
type GobotBus struct {
	mx        sync.Mutex
	connector i2c.Connector
	busNr     int
	conns     map[byte]i2c.Connection
}

// NewGobotBus uses bus number busNr of the connector; a negative number
// selects the connector default bus.
func NewGobotBus(connector i2c.Connector, busNr int) *GobotBus {
	if busNr < 0 {
		busNr = connector.DefaultI2cBus()
	}
	return &GobotBus{
		connector: connector,
		busNr:     busNr,
		conns:     make(map[byte]i2c.Connection),
	}
}

func (b *GobotBus) connection(address byte) (i2c.Connection, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if conn, ok := b.conns[address]; ok {
		return conn, nil
	}
	conn, err := b.connector.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %x on bus %d: %w", address, b.busNr, err)
	}
	b.conns[address] = conn
	return conn, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) ReadReg(ctx context.Context, address, register byte) (byte, error) {
	conn, err := b.connection(address)
	if err != nil {
		return 0, err
	}
	val, err := conn.ReadByteData(register)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x of %x: %w", register, address, err)
	}
	return val, nil
}

func (b *GobotBus) WriteReg(ctx context.Context, address, register, value byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	err = conn.WriteByteData(register, value)
	if err != nil {
		return fmt.Errorf("could not write register %#x of %x: %w", register, address, err)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close closes every connection opened so far.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var firstErr error
	for addr, conn := range b.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not close connection to %x: %w", addr, err)
		}
		delete(b.conns, addr)
	}
	return firstErr
}

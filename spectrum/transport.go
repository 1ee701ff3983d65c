package spectrum

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/spectral"
	"github.com/mklimuk/spectral/snsctx"
)

// ErrTimeout is returned when the device does not assert the expected status
// bit within the configured number of polls.
var ErrTimeout = fmt.Errorf("as726x: device did not respond within poll limit")

const (
	defaultPollInterval = 5 * time.Millisecond
	defaultMaxPolls     = 400
)

// UnboundedPolls as a poll limit waits for the status bit forever.
const UnboundedPolls = -1

// SleepFunc blocks for the given duration or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransportOpts configures a Transport. Zero values select the defaults.
type TransportOpts struct {
	Address      byte
	PollInterval time.Duration
	// MaxPolls limits status reads per wait; 0 selects 400 and
	// UnboundedPolls polls forever.
	MaxPolls int
	Sleep    SleepFunc
	Logger   *slog.Logger
}

// Transport gives access to the AS726x virtual registers through the STATUS,
// WRITE and READ physical registers. All handshakes on one Transport are
// serialized.
type Transport struct {
	mx     sync.Mutex
	bus    spectral.RegisterBus
	config TransportOpts
}

func NewTransport(bus spectral.RegisterBus, config TransportOpts) *Transport {
	if config.Address == 0 {
		config.Address = AS726xDefaultAddress
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.MaxPolls == 0 {
		config.MaxPolls = defaultMaxPolls
	}
	if config.Sleep == nil {
		config.Sleep = Sleep
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Transport{bus: bus, config: config}
}

// ReadVirtual reads a single virtual register.
func (t *Transport) ReadVirtual(ctx context.Context, reg byte) (byte, error) {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.readVirtual(ctx, reg)
}

// WriteVirtual writes a single virtual register.
func (t *Transport) WriteVirtual(ctx context.Context, reg, data byte) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.writeVirtual(ctx, reg, data)
}

// ReadVirtualBlock reads n consecutive virtual registers starting at start,
// in ascending address order, without letting other callers interleave.
func (t *Transport) ReadVirtualBlock(ctx context.Context, start byte, n int) ([]byte, error) {
	t.mx.Lock()
	defer t.mx.Unlock()
	buf := make([]byte, n)
	for i := range buf {
		b, err := t.readVirtual(ctx, start+byte(i))
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// UpdateVirtual performs an atomic read-modify-write of a virtual register.
func (t *Transport) UpdateVirtual(ctx context.Context, reg byte, update func(byte) byte) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	current, err := t.readVirtual(ctx, reg)
	if err != nil {
		return err
	}
	return t.writeVirtual(ctx, reg, update(current))
}

func (t *Transport) readVirtual(ctx context.Context, reg byte) (byte, error) {
	status, err := t.readPhysical(ctx, regStatus)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read status: %w", err)
	}
	if status&statusRxValid != 0 {
		// flush a result left over from an earlier, possibly aborted, transaction
		stale, err := t.readPhysical(ctx, regRead)
		if err != nil {
			return 0, fmt.Errorf("as726x: could not discard stale read: %w", err)
		}
		t.config.Logger.Debug("as726x: discarded stale read result", "value", stale)
	}
	err = t.waitStatus(ctx, txReady, "write-select slot")
	if err != nil {
		return 0, err
	}
	err = t.bus.WriteReg(ctx, t.config.Address, regWrite, reg&^virtualWriteFlag)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not select virtual register %#x for read: %w", reg, err)
	}
	err = t.waitStatus(ctx, rxReady, "read result")
	if err != nil {
		return 0, err
	}
	val, err := t.readPhysical(ctx, regRead)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read virtual register %#x: %w", reg, err)
	}
	if snsctx.IsVerbose(ctx) {
		t.config.Logger.Debug("as726x: virtual read", "reg", fmt.Sprintf("%#02x", reg), "value", fmt.Sprintf("%#02x", val))
	}
	return val, nil
}

func (t *Transport) writeVirtual(ctx context.Context, reg, data byte) error {
	err := t.waitStatus(ctx, txReady, "write-select slot")
	if err != nil {
		return err
	}
	err = t.bus.WriteReg(ctx, t.config.Address, regWrite, reg|virtualWriteFlag)
	if err != nil {
		return fmt.Errorf("as726x: could not select virtual register %#x for write: %w", reg, err)
	}
	err = t.waitStatus(ctx, txReady, "data slot")
	if err != nil {
		return err
	}
	err = t.bus.WriteReg(ctx, t.config.Address, regWrite, data)
	if err != nil {
		return fmt.Errorf("as726x: could not write virtual register %#x: %w", reg, err)
	}
	if snsctx.IsVerbose(ctx) {
		t.config.Logger.Debug("as726x: virtual write", "reg", fmt.Sprintf("%#02x", reg), "value", fmt.Sprintf("%#02x", data))
	}
	return nil
}

func txReady(status byte) bool {
	return status&statusTxValid == 0
}

func rxReady(status byte) bool {
	return status&statusRxValid != 0
}

// waitStatus polls STATUS until ready reports true.
func (t *Transport) waitStatus(ctx context.Context, ready func(byte) bool, what string) error {
	for polls := 1; ; polls++ {
		status, err := t.readPhysical(ctx, regStatus)
		if err != nil {
			return fmt.Errorf("as726x: could not read status: %w", err)
		}
		if ready(status) {
			return nil
		}
		if t.config.MaxPolls > 0 && polls >= t.config.MaxPolls {
			t.config.Logger.Debug("as726x: status poll limit reached", "waiting_for", what, "status", status, "polls", polls)
			return fmt.Errorf("%w: waiting for %s (status %#02x after %d polls)", ErrTimeout, what, status, polls)
		}
		if err := t.config.Sleep(ctx, t.config.PollInterval); err != nil {
			return fmt.Errorf("as726x: waiting for %s: %w", what, err)
		}
	}
}

func (t *Transport) readPhysical(ctx context.Context, reg byte) (byte, error) {
	return t.bus.ReadReg(ctx, t.config.Address, reg)
}

package spectrum

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/mklimuk/spectral"
)

var _ spectral.I2CBus = &Simulator{}

var ErrNoDevice = errors.New("simulator: no device at address")

// SimOp is a single physical register access recorded by the Simulator.
type SimOp struct {
	Write bool
	Reg   byte
	Value byte
}

func (o SimOp) String() string {
	if o.Write {
		return fmt.Sprintf("W %#02x <- %#02x", o.Reg, o.Value)
	}
	return fmt.Sprintf("R %#02x -> %#02x", o.Reg, o.Value)
}

// Simulator is a software model of an AS726x behind its three physical
// registers. It implements spectral.I2CBus so it can stand in for real
// hardware.
//
// Virtual registers echo whatever is written to them. When ConversionPolls is
// set, writing a one-shot measurement mode to the control register starts a
// conversion which sets the data-ready bit after that many status reads.
type Simulator struct {
	mx sync.Mutex

	address byte
	pointer byte

	vregs [virtualRegisterCount]byte

	// BusyPolls is the number of status reads TX_VALID stays set after a
	// byte is written to WRITE.
	BusyPolls int
	// ReadLatency is the number of status reads before RX_VALID is set after
	// a read-select.
	ReadLatency int
	// ConversionPolls is the number of status reads a one-shot conversion
	// takes. Zero disables simulated conversions.
	ConversionPolls int

	busy        int
	rxValid     bool
	rxPending   int
	rxValue     byte
	pendingReg  byte
	pendingData bool
	converting  int
	stuck       bool
	err         error
	failAfter   int

	spectrum struct {
		raw [ChannelCount]uint16
		cal [ChannelCount]float32
	}

	ops []SimOp
}

// NewSimulator returns a simulated sensor of the given type answering at
// AS726xDefaultAddress with power-on register values.
func NewSimulator(sensor SensorType) *Simulator {
	s := &Simulator{address: AS726xDefaultAddress}
	s.vregs[vregHWVersion] = byte(sensor)
	s.vregs[vregControl] = fieldMode.set(0, byte(ModeContinuousAll))
	s.vregs[vregIntTime] = 0xFF
	s.vregs[vregDeviceTemp] = 25
	return s
}

// SetAddress moves the simulated device to another bus address.
func (s *Simulator) SetAddress(address byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.address = address
}

// SetRegister sets a virtual register directly, bypassing the handshake.
// Registers outside the map are ignored.
func (s *Simulator) SetRegister(reg, value byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if int(reg) >= len(s.vregs) {
		return
	}
	s.vregs[reg] = value
}

// Register returns a virtual register directly, bypassing the handshake.
// Registers outside the map read as zero.
func (s *Simulator) Register(reg byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.readVirtual(reg)
}

// LoadSpectrum sets the values published by the next conversion and stores
// them in the channel registers right away.
func (s *Simulator) LoadSpectrum(raw [ChannelCount]uint16, calibrated [ChannelCount]float32) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.spectrum.raw = raw
	s.spectrum.cal = calibrated
	s.publish()
}

// InjectStale leaves an unread result in READ as if a previous session was
// aborted after a read-select.
func (s *Simulator) InjectStale(value byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.rxValid = true
	s.rxValue = value
}

// SetStuck keeps TX_VALID asserted forever.
func (s *Simulator) SetStuck(stuck bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.stuck = stuck
}

// FailAfter makes every bus transfer fail with err once n more transfers
// succeeded. A nil err clears the fault.
func (s *Simulator) FailAfter(n int, err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.failAfter = n
	s.err = err
}

// Ops returns the physical register accesses recorded so far.
func (s *Simulator) Ops() []SimOp {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]SimOp(nil), s.ops...)
}

// ResetOps clears the recorded accesses.
func (s *Simulator) ResetOps() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.ops = nil
}

func (s *Simulator) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.transfer(address); err != nil {
		return err
	}
	if len(buffer) == 0 {
		return nil
	}
	s.pointer = buffer[0]
	for _, b := range buffer[1:] {
		s.writePhysical(s.pointer, b)
	}
	return nil
}

func (s *Simulator) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.transfer(address); err != nil {
		return err
	}
	for i := range buffer {
		buffer[i] = s.readPhysical(s.pointer)
	}
	return nil
}

func (s *Simulator) Release(ctx context.Context) error {
	return nil
}

func (s *Simulator) transfer(address byte) error {
	if address != s.address {
		return fmt.Errorf("%w %#02x", ErrNoDevice, address)
	}
	if s.err != nil {
		if s.failAfter <= 0 {
			return s.err
		}
		s.failAfter--
	}
	return nil
}

func (s *Simulator) writePhysical(reg, value byte) {
	s.ops = append(s.ops, SimOp{Write: true, Reg: reg, Value: value})
	if reg != regWrite {
		return
	}
	s.busy = s.BusyPolls
	switch {
	case s.pendingData:
		s.pendingData = false
		s.writeVirtual(s.pendingReg, value)
	case value&virtualWriteFlag != 0:
		s.pendingReg = value &^ virtualWriteFlag
		s.pendingData = true
	default:
		s.rxValid = false
		s.rxPending = s.ReadLatency
		s.rxValue = s.readVirtual(value)
		if s.rxPending == 0 {
			s.rxValid = true
		}
	}
}

func (s *Simulator) readPhysical(reg byte) byte {
	var val byte
	switch reg {
	case regStatus:
		val = s.status()
	case regRead:
		val = s.rxValue
		s.rxValid = false
	}
	s.ops = append(s.ops, SimOp{Reg: reg, Value: val})
	return val
}

// status reports the current flags and advances the internal state machine.
func (s *Simulator) status() byte {
	var st byte
	if s.rxValid {
		st |= statusRxValid
	}
	if s.busy > 0 || s.stuck {
		st |= statusTxValid
	}
	if s.busy > 0 {
		s.busy--
	}
	if s.rxPending > 0 {
		s.rxPending--
		if s.rxPending == 0 {
			s.rxValid = true
		}
	}
	if s.converting > 0 {
		s.converting--
		if s.converting == 0 {
			s.publish()
			s.vregs[vregControl] = fieldDataReady.set(s.vregs[vregControl], 1)
		}
	}
	return st
}

func (s *Simulator) readVirtual(reg byte) byte {
	if int(reg) >= len(s.vregs) {
		return 0
	}
	return s.vregs[reg]
}

func (s *Simulator) writeVirtual(reg, value byte) {
	if int(reg) >= len(s.vregs) {
		return
	}
	s.vregs[reg] = value
	if s.ConversionPolls > 0 && reg == vregControl && MeasurementMode(fieldMode.get(value)) == ModeOneShot && fieldDataReady.get(value) == 0 {
		s.converting = s.ConversionPolls
	}
}

func (s *Simulator) publish() {
	for i := 0; i < ChannelCount; i++ {
		binary.BigEndian.PutUint16(s.vregs[int(vregRawBase)+i*rawWidth:], s.spectrum.raw[i])
		binary.BigEndian.PutUint32(s.vregs[int(vregCalBase)+i*calWidth:], math.Float32bits(s.spectrum.cal[i]))
	}
}

package spectrum

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mklimuk/spectral"
)

// ErrInvalidArgument is returned for out-of-range settings in strict mode.
var ErrInvalidArgument = fmt.Errorf("as726x: invalid argument")

const (
	defaultDataReadyInterval = 10 * time.Millisecond
	defaultDataReadyPolls    = 500
	// oneShotWaitFactor is the heuristic wait per integration time LSB used
	// by TriggerOneShotSync.
	oneShotWaitFactor = 6 * time.Millisecond
)

// AS726xOpts holds the device and transport settings set by AS726xOpt options.
type AS726xOpts struct {
	Address      byte
	PollInterval time.Duration
	MaxPolls     int
	Sleep        SleepFunc
	Logger       *slog.Logger
	// StrictArguments rejects out-of-range settings instead of clamping them.
	StrictArguments   bool
	DataReadyInterval time.Duration
	DataReadyPolls    int
	BusOptions        []spectral.RegisterBusOpt
}

type AS726xOpt func(*AS726xOpts)

func WithAddress(address byte) AS726xOpt {
	return func(o *AS726xOpts) {
		o.Address = address
	}
}

// WithPollInterval sets the delay between two STATUS polls of the handshake.
func WithPollInterval(interval time.Duration) AS726xOpt {
	return func(o *AS726xOpts) {
		o.PollInterval = interval
	}
}

// WithMaxPolls limits the STATUS polls of every handshake wait.
// UnboundedPolls waits forever, like the bare protocol does.
func WithMaxPolls(polls int) AS726xOpt {
	return func(o *AS726xOpts) {
		o.MaxPolls = polls
	}
}

// WithSleep replaces the function used for every protocol delay.
func WithSleep(sleep SleepFunc) AS726xOpt {
	return func(o *AS726xOpts) {
		o.Sleep = sleep
	}
}

func WithLogger(logger *slog.Logger) AS726xOpt {
	return func(o *AS726xOpts) {
		o.Logger = logger
	}
}

// WithStrictArguments makes setters return ErrInvalidArgument for
// out-of-range values instead of clamping them.
func WithStrictArguments() AS726xOpt {
	return func(o *AS726xOpts) {
		o.StrictArguments = true
	}
}

// WithDataReadyPolling configures WaitDataReady.
func WithDataReadyPolling(interval time.Duration, polls int) AS726xOpt {
	return func(o *AS726xOpts) {
		o.DataReadyInterval = interval
		o.DataReadyPolls = polls
	}
}

// WithBusOptions configures the register adapter used on raw buses.
func WithBusOptions(opts ...spectral.RegisterBusOpt) AS726xOpt {
	return func(o *AS726xOpts) {
		o.BusOptions = append(o.BusOptions, opts...)
	}
}

// AS726x represents ams AS7262 (visible) and AS7263 (NIR) 6-channel
// spectral sensors.
// See: https://ams.com/documents/20143/36005/AS7262_DS000486_2-00.pdf
//
// Typical usage:
//
//	s := NewAS726x(bus)
//	values, err := s.GetSpectrum(ctx)
//
// Out-of-range settings are clamped unless WithStrictArguments is given.
// The clamp target differs per field: gain falls back to its default (1x),
// measurement mode to its maximum (one-shot) and LED currents to their
// default (lowest) value.
type AS726x struct {
	transport *Transport
	config    AS726xOpts
}

func NewAS726x(bus spectral.I2CBus, opts ...AS726xOpt) *AS726x {
	config := AS726xOpts{
		Address:           AS726xDefaultAddress,
		PollInterval:      defaultPollInterval,
		MaxPolls:          defaultMaxPolls,
		Sleep:             Sleep,
		Logger:            slog.Default(),
		DataReadyInterval: defaultDataReadyInterval,
		DataReadyPolls:    defaultDataReadyPolls,
	}
	for _, opt := range opts {
		opt(&config)
	}
	transport := NewTransport(spectral.NewRegisterBus(bus, config.BusOptions...), TransportOpts{
		Address:      config.Address,
		PollInterval: config.PollInterval,
		MaxPolls:     config.MaxPolls,
		Sleep:        config.Sleep,
		Logger:       config.Logger,
	})
	return &AS726x{transport: transport, config: config}
}

// Transport exposes the virtual register transport of the device.
func (s *AS726x) Transport() *Transport {
	return s.transport
}

func (s *AS726x) SensorType(ctx context.Context) (SensorType, error) {
	v, err := s.transport.ReadVirtual(ctx, vregHWVersion)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read hardware version: %w", err)
	}
	return SensorType(v), nil
}

// Temperature returns the device temperature in Celsius.
func (s *AS726x) Temperature(ctx context.Context) (int, error) {
	v, err := s.transport.ReadVirtual(ctx, vregDeviceTemp)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read temperature: %w", err)
	}
	return int(int8(v)), nil
}

func (s *AS726x) SetIndicatorLED(ctx context.Context, on bool) error {
	if err := s.setField(ctx, fieldIndicatorLED, boolBit(on)); err != nil {
		return fmt.Errorf("as726x: could not switch indicator LED: %w", err)
	}
	return nil
}

func (s *AS726x) SetIndicatorCurrent(ctx context.Context, current IndicatorCurrent) error {
	val, err := s.clamp(fieldIndicatorCurrent, byte(current), byte(Indicator1mA), "indicator current")
	if err != nil {
		return err
	}
	if err := s.setField(ctx, fieldIndicatorCurrent, val); err != nil {
		return fmt.Errorf("as726x: could not set indicator current: %w", err)
	}
	return nil
}

func (s *AS726x) SetBulbLED(ctx context.Context, on bool) error {
	if err := s.setField(ctx, fieldBulbLED, boolBit(on)); err != nil {
		return fmt.Errorf("as726x: could not switch bulb LED: %w", err)
	}
	return nil
}

func (s *AS726x) SetBulbCurrent(ctx context.Context, current BulbCurrent) error {
	val, err := s.clamp(fieldBulbCurrent, byte(current), byte(Bulb12_5mA), "bulb current")
	if err != nil {
		return err
	}
	if err := s.setField(ctx, fieldBulbCurrent, val); err != nil {
		return fmt.Errorf("as726x: could not set bulb current: %w", err)
	}
	return nil
}

// LEDState is the decoded LED control register.
type LEDState struct {
	Indicator        bool             `yaml:"indicator"`
	IndicatorCurrent IndicatorCurrent `yaml:"indicator_current"`
	Bulb             bool             `yaml:"bulb"`
	BulbCurrent      BulbCurrent      `yaml:"bulb_current"`
}

func (s *AS726x) LEDs(ctx context.Context) (LEDState, error) {
	v, err := s.transport.ReadVirtual(ctx, vregLEDControl)
	if err != nil {
		return LEDState{}, fmt.Errorf("as726x: could not read LED control: %w", err)
	}
	return LEDState{
		Indicator:        fieldIndicatorLED.get(v) == 1,
		IndicatorCurrent: IndicatorCurrent(fieldIndicatorCurrent.get(v)),
		Bulb:             fieldBulbLED.get(v) == 1,
		BulbCurrent:      BulbCurrent(fieldBulbCurrent.get(v)),
	}, nil
}

// SetGain sets the amplifier gain. Out-of-range values fall back to Gain1x.
func (s *AS726x) SetGain(ctx context.Context, gain Gain) error {
	val, err := s.clamp(fieldGain, byte(gain), byte(Gain1x), "gain")
	if err != nil {
		return err
	}
	if err := s.setField(ctx, fieldGain, val); err != nil {
		return fmt.Errorf("as726x: could not set gain: %w", err)
	}
	return nil
}

func (s *AS726x) Gain(ctx context.Context) (Gain, error) {
	v, err := s.transport.ReadVirtual(ctx, vregControl)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read gain: %w", err)
	}
	return Gain(fieldGain.get(v)), nil
}

// SetMeasurementMode selects the conversion mode. Out-of-range values are
// clamped to ModeOneShot.
func (s *AS726x) SetMeasurementMode(ctx context.Context, mode MeasurementMode) error {
	val, err := s.clamp(fieldMode, byte(mode), byte(ModeOneShot), "measurement mode")
	if err != nil {
		return err
	}
	if err := s.setField(ctx, fieldMode, val); err != nil {
		return fmt.Errorf("as726x: could not set measurement mode: %w", err)
	}
	return nil
}

func (s *AS726x) MeasurementMode(ctx context.Context) (MeasurementMode, error) {
	v, err := s.transport.ReadVirtual(ctx, vregControl)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read measurement mode: %w", err)
	}
	return MeasurementMode(fieldMode.get(v)), nil
}

// SetIntegrationTime writes the integration time register. The integration
// lasts value * 2.8 ms.
func (s *AS726x) SetIntegrationTime(ctx context.Context, value byte) error {
	if err := s.transport.WriteVirtual(ctx, vregIntTime, value); err != nil {
		return fmt.Errorf("as726x: could not set integration time: %w", err)
	}
	return nil
}

func (s *AS726x) IntegrationTime(ctx context.Context) (byte, error) {
	v, err := s.transport.ReadVirtual(ctx, vregIntTime)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read integration time: %w", err)
	}
	return v, nil
}

// IntegrationDuration converts an integration time register value to a duration.
func IntegrationDuration(value byte) time.Duration {
	return time.Duration(value) * integrationStep * time.Microsecond
}

func (s *AS726x) DataReady(ctx context.Context) (bool, error) {
	v, err := s.transport.ReadVirtual(ctx, vregControl)
	if err != nil {
		return false, fmt.Errorf("as726x: could not read data ready flag: %w", err)
	}
	return fieldDataReady.get(v) == 1, nil
}

func (s *AS726x) ClearDataReady(ctx context.Context) error {
	if err := s.setField(ctx, fieldDataReady, 0); err != nil {
		return fmt.Errorf("as726x: could not clear data ready flag: %w", err)
	}
	return nil
}

// TriggerOneShotAsync starts a one-shot conversion of all channels and
// returns at once. Completion is signalled by DataReady.
func (s *AS726x) TriggerOneShotAsync(ctx context.Context) error {
	if err := s.ClearDataReady(ctx); err != nil {
		return err
	}
	return s.SetMeasurementMode(ctx, ModeOneShot)
}

// TriggerOneShotSync starts a one-shot conversion and then blocks for
// integration time * 6 ms. The wait is a heuristic; DataReady remains the
// authoritative completion signal.
func (s *AS726x) TriggerOneShotSync(ctx context.Context) error {
	if err := s.ClearDataReady(ctx); err != nil {
		return err
	}
	intTime, err := s.IntegrationTime(ctx)
	if err != nil {
		return err
	}
	if err := s.SetMeasurementMode(ctx, ModeOneShot); err != nil {
		return err
	}
	if err := s.config.Sleep(ctx, time.Duration(intTime)*oneShotWaitFactor); err != nil {
		return fmt.Errorf("as726x: one-shot wait interrupted: %w", err)
	}
	return nil
}

// WaitDataReady polls the data ready flag until it is set.
func (s *AS726x) WaitDataReady(ctx context.Context) error {
	for polls := 1; ; polls++ {
		ready, err := s.DataReady(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if s.config.DataReadyPolls > 0 && polls >= s.config.DataReadyPolls {
			return fmt.Errorf("%w: data not ready after %d polls", ErrTimeout, polls)
		}
		if err := s.config.Sleep(ctx, s.config.DataReadyInterval); err != nil {
			return fmt.Errorf("as726x: waiting for data ready: %w", err)
		}
	}
}

// RawChannel returns the raw 16-bit count of a channel.
func (s *AS726x) RawChannel(ctx context.Context, ch Channel) (uint16, error) {
	if !ch.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	buf, err := s.transport.ReadVirtualBlock(ctx, ch.rawAddress(), rawWidth)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read raw channel %d: %w", ch, err)
	}
	return binary.BigEndian.Uint16(buf), nil
}

// CalibratedChannel returns the calibrated value of a channel.
func (s *AS726x) CalibratedChannel(ctx context.Context, ch Channel) (float32, error) {
	if !ch.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	buf, err := s.transport.ReadVirtualBlock(ctx, ch.calibratedAddress(), calWidth)
	if err != nil {
		return 0, fmt.Errorf("as726x: could not read calibrated channel %d: %w", ch, err)
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf)), nil
}

func (s *AS726x) AllRawChannels(ctx context.Context) ([ChannelCount]uint16, error) {
	var res [ChannelCount]uint16
	for ch := Channel(0); ch < ChannelCount; ch++ {
		v, err := s.RawChannel(ctx, ch)
		if err != nil {
			return res, err
		}
		res[ch] = v
	}
	return res, nil
}

func (s *AS726x) AllCalibratedChannels(ctx context.Context) ([ChannelCount]float32, error) {
	var res [ChannelCount]float32
	for ch := Channel(0); ch < ChannelCount; ch++ {
		v, err := s.CalibratedChannel(ctx, ch)
		if err != nil {
			return res, err
		}
		res[ch] = v
	}
	return res, nil
}

// GetSpectrum triggers a one-shot conversion, waits for data ready and
// returns the calibrated values in channel order.
func (s *AS726x) GetSpectrum(ctx context.Context) ([ChannelCount]float32, error) {
	if err := s.TriggerOneShotAsync(ctx); err != nil {
		return [ChannelCount]float32{}, err
	}
	if err := s.WaitDataReady(ctx); err != nil {
		return [ChannelCount]float32{}, err
	}
	return s.AllCalibratedChannels(ctx)
}

// Reading is a snapshot of the sensor configuration and its channels.
type Reading struct {
	Sensor          SensorType            `yaml:"-"`
	SensorName      string                `yaml:"sensor"`
	Temperature     int                   `yaml:"temperature"`
	Gain            Gain                  `yaml:"gain"`
	Mode            MeasurementMode       `yaml:"mode"`
	IntegrationTime byte                  `yaml:"integration_time"`
	Raw             [ChannelCount]uint16  `yaml:"raw"`
	Calibrated      [ChannelCount]float32 `yaml:"calibrated"`
}

// Read returns the current configuration and the last converted values
// without starting a conversion.
func (s *AS726x) Read(ctx context.Context) (*Reading, error) {
	var r Reading
	var err error
	if r.Sensor, err = s.SensorType(ctx); err != nil {
		return nil, err
	}
	r.SensorName = r.Sensor.String()
	if r.Temperature, err = s.Temperature(ctx); err != nil {
		return nil, err
	}
	control, err := s.transport.ReadVirtual(ctx, vregControl)
	if err != nil {
		return nil, fmt.Errorf("as726x: could not read control setup: %w", err)
	}
	r.Gain = Gain(fieldGain.get(control))
	r.Mode = MeasurementMode(fieldMode.get(control))
	if r.IntegrationTime, err = s.IntegrationTime(ctx); err != nil {
		return nil, err
	}
	if r.Raw, err = s.AllRawChannels(ctx); err != nil {
		return nil, err
	}
	if r.Calibrated, err = s.AllCalibratedChannels(ctx); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *AS726x) setField(ctx context.Context, f bitField, val byte) error {
	return s.transport.UpdateVirtual(ctx, f.reg, func(current byte) byte {
		return f.set(current, val)
	})
}

// clamp validates val against the width of f. Out-of-range values become
// fallback unless strict arguments are enabled.
func (s *AS726x) clamp(f bitField, val, fallback byte, name string) (byte, error) {
	if val <= f.max() {
		return val, nil
	}
	if s.config.StrictArguments {
		return 0, fmt.Errorf("%w: %s %d out of range 0-%d", ErrInvalidArgument, name, val, f.max())
	}
	s.config.Logger.Debug("as726x: clamping out-of-range setting", "setting", name, "value", val, "clamped", fallback)
	return fallback, nil
}

func boolBit(on bool) byte {
	if on {
		return 1
	}
	return 0
}

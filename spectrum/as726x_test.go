package spectrum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(sim *Simulator, opts ...AS726xOpt) (*AS726x, *sleepRecorder) {
	rec := &sleepRecorder{}
	opts = append([]AS726xOpt{WithSleep(rec.sleep), WithMaxPolls(50)}, opts...)
	return NewAS726x(sim, opts...), rec
}

func TestAS726x_SetGain(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregControl, 0x00)
	s, _ := newTestDevice(sim)

	require.NoError(t, s.SetGain(context.Background(), Gain16x))
	control := sim.Register(vregControl)
	assert.Equal(t, byte(0b10), (control>>4)&0b11)
	assert.Equal(t, byte(0b00100000), control, "other bits must stay clear")

	gain, err := s.Gain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Gain16x, gain)
}

func TestAS726x_OutOfRangeSettings(t *testing.T) {
	tests := []struct {
		name     string
		reg      byte
		preset   byte
		apply    func(ctx context.Context, s *AS726x) error
		expected byte
	}{
		{
			name:     "gain falls back to default",
			reg:      vregControl,
			preset:   0b01111010,
			apply:    func(ctx context.Context, s *AS726x) error { return s.SetGain(ctx, Gain(5)) },
			expected: 0b01001010,
		},
		{
			name:     "mode clamps to one-shot",
			reg:      vregControl,
			preset:   0x00,
			apply:    func(ctx context.Context, s *AS726x) error { return s.SetMeasurementMode(ctx, MeasurementMode(9)) },
			expected: 0b00001100,
		},
		{
			name:     "indicator current falls back to default",
			reg:      vregLEDControl,
			preset:   0b00000111,
			apply:    func(ctx context.Context, s *AS726x) error { return s.SetIndicatorCurrent(ctx, IndicatorCurrent(4)) },
			expected: 0b00000001,
		},
		{
			name:     "bulb current falls back to default",
			reg:      vregLEDControl,
			preset:   0b00111000,
			apply:    func(ctx context.Context, s *AS726x) error { return s.SetBulbCurrent(ctx, BulbCurrent(200)) },
			expected: 0b00001000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator(SensorTypeAS7262)
			sim.SetRegister(tt.reg, tt.preset)
			s, _ := newTestDevice(sim)

			assert.NoError(t, tt.apply(context.Background(), s))
			assert.Equal(t, tt.expected, sim.Register(tt.reg))
		})
		t.Run(tt.name+" strict", func(t *testing.T) {
			sim := NewSimulator(SensorTypeAS7262)
			sim.SetRegister(tt.reg, tt.preset)
			s, _ := newTestDevice(sim, WithStrictArguments())

			assert.ErrorIs(t, tt.apply(context.Background(), s), ErrInvalidArgument)
			assert.Equal(t, tt.preset, sim.Register(tt.reg))
			assert.Empty(t, sim.Ops(), "rejected setting must not touch the bus")
		})
	}
}

func TestAS726x_MeasurementMode(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregControl, 0b00110010)
	s, _ := newTestDevice(sim)
	ctx := context.Background()

	require.NoError(t, s.SetMeasurementMode(ctx, ModeContinuousBank2))
	assert.Equal(t, byte(0b00110110), sim.Register(vregControl))

	mode, err := s.MeasurementMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeContinuousBank2, mode)
}

func TestAS726x_DataReady(t *testing.T) {
	tests := []struct {
		control byte
		ready   bool
	}{
		{0x00, false},
		{0x02, true},
		{0xFD, false},
		{0xFF, true},
		{0b00101010, true},
	}
	for _, tt := range tests {
		sim := NewSimulator(SensorTypeAS7262)
		sim.SetRegister(vregControl, tt.control)
		s, _ := newTestDevice(sim)

		ready, err := s.DataReady(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.ready, ready, "control %#08b", tt.control)
	}
}

func TestAS726x_ClearDataReady(t *testing.T) {
	for _, control := range []byte{0xFF, 0x02, 0b10110110, 0x00} {
		sim := NewSimulator(SensorTypeAS7262)
		sim.SetRegister(vregControl, control)
		s, _ := newTestDevice(sim)

		require.NoError(t, s.ClearDataReady(context.Background()))
		assert.Equal(t, control&^0x02, sim.Register(vregControl), "control %#08b", control)
	}
}

func TestAS726x_LEDControl(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregLEDControl, 0x00)
	s, _ := newTestDevice(sim)
	ctx := context.Background()

	require.NoError(t, s.SetIndicatorLED(ctx, true))
	assert.Equal(t, byte(0b00000001), sim.Register(vregLEDControl))
	require.NoError(t, s.SetIndicatorCurrent(ctx, Indicator8mA))
	assert.Equal(t, byte(0b00000111), sim.Register(vregLEDControl))
	require.NoError(t, s.SetBulbLED(ctx, true))
	assert.Equal(t, byte(0b00001111), sim.Register(vregLEDControl))
	require.NoError(t, s.SetBulbCurrent(ctx, Bulb50mA))
	assert.Equal(t, byte(0b00101111), sim.Register(vregLEDControl))

	leds, err := s.LEDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, LEDState{Indicator: true, IndicatorCurrent: Indicator8mA, Bulb: true, BulbCurrent: Bulb50mA}, leds)

	require.NoError(t, s.SetIndicatorLED(ctx, false))
	require.NoError(t, s.SetBulbLED(ctx, false))
	assert.Equal(t, byte(0b00100110), sim.Register(vregLEDControl))
}

func TestAS726x_SensorTypeAndTemperature(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7263)
	sim.SetRegister(vregDeviceTemp, 0xF6)
	s, _ := newTestDevice(sim)
	ctx := context.Background()

	sensor, err := s.SensorType(ctx)
	require.NoError(t, err)
	assert.Equal(t, SensorTypeAS7263, sensor)
	assert.Equal(t, "AS7263", sensor.String())

	temp, err := s.Temperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, -10, temp)
}

func TestAS726x_IntegrationTime(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	s, _ := newTestDevice(sim)
	ctx := context.Background()

	require.NoError(t, s.SetIntegrationTime(ctx, 100))
	assert.Equal(t, byte(100), sim.Register(vregIntTime))
	assert.Equal(t, []byte{vregIntTime | virtualWriteFlag, 100}, writesTo(sim.Ops(), regWrite))

	v, err := s.IntegrationTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(100), v)
	assert.Equal(t, 280*time.Millisecond, IntegrationDuration(v))
	assert.Equal(t, 714*time.Millisecond, IntegrationDuration(255))
}

func TestAS726x_RawChannel(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregRawBase, 0x01)
	sim.SetRegister(vregRawBase+1, 0x2C)
	s, _ := newTestDevice(sim)

	v, err := s.RawChannel(context.Background(), AS7262Violet)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), v)
}

func TestAS726x_CalibratedChannel(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	for i, b := range []byte{0x40, 0x20, 0x00, 0x00} {
		sim.SetRegister(vregCalBase+byte(i), b)
	}
	s, _ := newTestDevice(sim)

	v, err := s.CalibratedChannel(context.Background(), AS7262Violet)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), v)
	assert.Equal(t, []byte{0x14, 0x15, 0x16, 0x17}, writesTo(sim.Ops(), regWrite))
}

func TestAS726x_InvalidChannel(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	s, _ := newTestDevice(sim)

	_, err := s.RawChannel(context.Background(), Channel(ChannelCount))
	assert.ErrorIs(t, err, ErrInvalidChannel)
	_, err = s.CalibratedChannel(context.Background(), Channel(7))
	assert.ErrorIs(t, err, ErrInvalidChannel)
	assert.Empty(t, sim.Ops())
}

func TestAS726x_AllChannels(t *testing.T) {
	raw := [ChannelCount]uint16{1, 300, 0xFFFF, 0x1234, 0, 42}
	cal := [ChannelCount]float32{2.5, -1, 0, 1234.5, 0.125, 99}
	sim := NewSimulator(SensorTypeAS7263)
	sim.LoadSpectrum(raw, cal)
	s, _ := newTestDevice(sim)
	ctx := context.Background()

	gotRaw, err := s.AllRawChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, gotRaw)

	gotCal, err := s.AllCalibratedChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, cal, gotCal)

	w, err := s.CalibratedChannel(ctx, AS7263W)
	require.NoError(t, err)
	assert.Equal(t, float32(99), w)
}

func TestAS726x_TriggerOneShotAsync(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregControl, 0b00101010)
	s, rec := newTestDevice(sim)

	require.NoError(t, s.TriggerOneShotAsync(context.Background()))
	assert.Equal(t, byte(0b00101100), sim.Register(vregControl))
	assert.Zero(t, rec.count())
}

func TestAS726x_TriggerOneShotSync(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregControl, 0b00001010)
	sim.SetRegister(vregIntTime, 50)
	s, rec := newTestDevice(sim)

	require.NoError(t, s.TriggerOneShotSync(context.Background()))
	assert.Equal(t, byte(0b00001100), sim.Register(vregControl))
	assert.Equal(t, []time.Duration{300 * time.Millisecond}, rec.calls)
}

func TestAS726x_TriggerOneShotSyncCancelled(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	s, _ := newTestDevice(sim, WithSleep(Sleep))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.TriggerOneShotSync(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAS726x_GetSpectrum(t *testing.T) {
	want := [ChannelCount]float32{10, 20, 30, 40, 50, 60}
	sim := NewSimulator(SensorTypeAS7262)
	sim.ConversionPolls = 3
	sim.LoadSpectrum([ChannelCount]uint16{}, want)
	s, rec := newTestDevice(sim)

	got, err := s.GetSpectrum(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Contains(t, rec.calls, defaultDataReadyInterval)
}

func TestAS726x_WaitDataReadyTimeout(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	s, rec := newTestDevice(sim, WithDataReadyPolling(time.Millisecond, 3))

	err := s.WaitDataReady(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, 2*time.Millisecond, rec.total())
}

func TestAS726x_Read(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetRegister(vregControl, 0b00111000)
	sim.SetRegister(vregIntTime, 20)
	sim.LoadSpectrum([ChannelCount]uint16{1, 2, 3, 4, 5, 6}, [ChannelCount]float32{1.5, 2.5, 3.5, 4.5, 5.5, 6.5})
	s, _ := newTestDevice(sim)

	r, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SensorTypeAS7262, r.Sensor)
	assert.Equal(t, "AS7262", r.SensorName)
	assert.Equal(t, 25, r.Temperature)
	assert.Equal(t, Gain64x, r.Gain)
	assert.Equal(t, ModeContinuousAll, r.Mode)
	assert.Equal(t, byte(20), r.IntegrationTime)
	assert.Equal(t, uint16(6), r.Raw[AS7262Red])
	assert.Equal(t, float32(1.5), r.Calibrated[AS7262Violet])
}

func TestAS726x_CustomAddress(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.SetAddress(0x4A)
	s, _ := newTestDevice(sim, WithAddress(0x4A))

	sensor, err := s.SensorType(context.Background())
	require.NoError(t, err)
	assert.True(t, sensor.Known())
}

func TestChannelByName(t *testing.T) {
	tests := []struct {
		sensor  SensorType
		name    string
		want    Channel
		wantErr bool
	}{
		{SensorTypeAS7262, "violet", AS7262Violet, false},
		{SensorTypeAS7262, "Blue", AS7262Blue, false},
		{SensorTypeAS7262, "RED", AS7262Red, false},
		{SensorTypeAS7263, "r", AS7263R, false},
		{SensorTypeAS7263, "W", AS7263W, false},
		{SensorTypeAS7263, "violet", 0, true},
		{SensorType(0x10), "r", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.sensor.String()+"/"+tt.name, func(t *testing.T) {
			ch, err := ChannelByName(tt.sensor, tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ch)
		})
	}
}

func TestBitField(t *testing.T) {
	tests := []struct {
		name  string
		field bitField
		reg   byte
		val   byte
		want  byte
	}{
		{"gain on empty", fieldGain, 0x00, 0b11, 0b00110000},
		{"gain keeps neighbours", fieldGain, 0xFF, 0b01, 0b11011111},
		{"mode", fieldMode, 0b11110011, 0b10, 0b11111011},
		{"data ready clear", fieldDataReady, 0xFF, 0, 0xFD},
		{"bulb current", fieldBulbCurrent, 0b11001111, 0b10, 0b11101111},
		{"value wider than field is masked", fieldIndicatorLED, 0x00, 0xFF, 0x01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.field.set(tt.reg, tt.val)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.val&tt.field.max(), tt.field.get(got))
		})
	}
}

func TestParseSettings(t *testing.T) {
	gain, err := ParseGain("16X")
	require.NoError(t, err)
	assert.Equal(t, Gain16x, gain)
	mode, err := ParseMeasurementMode("one-shot")
	require.NoError(t, err)
	assert.Equal(t, ModeOneShot, mode)
	ind, err := ParseIndicatorCurrent("4mA")
	require.NoError(t, err)
	assert.Equal(t, Indicator4mA, ind)
	bulb, err := ParseBulbCurrent("12.5mA")
	require.NoError(t, err)
	assert.Equal(t, Bulb12_5mA, bulb)

	_, err = ParseGain("2x")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseBulbCurrent("invalid(4)")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

package spectrum

import (
	"fmt"
	"strings"
)

// SensorType is the value of the hardware version register.
type SensorType byte

const (
	SensorTypeAS7262 SensorType = 0x3E
	SensorTypeAS7263 SensorType = 0x3F
)

func (t SensorType) String() string {
	switch t {
	case SensorTypeAS7262:
		return "AS7262"
	case SensorTypeAS7263:
		return "AS7263"
	default:
		return fmt.Sprintf("unknown(%#02x)", byte(t))
	}
}

// Known reports whether t is one of the supported variants.
func (t SensorType) Known() bool {
	return t == SensorTypeAS7262 || t == SensorTypeAS7263
}

// ChannelCount is the number of spectral channels on both variants.
const ChannelCount = 6

// Channel is the position of a spectral channel in the channel block of the
// register map. Both variants use the same positions with different bands.
type Channel byte

// AS7262 visible channels.
const (
	AS7262Violet Channel = iota // 450 nm
	AS7262Blue                  // 500 nm
	AS7262Green                 // 550 nm
	AS7262Yellow                // 570 nm
	AS7262Orange                // 600 nm
	AS7262Red                   // 650 nm
)

// AS7263 near-infrared channels.
const (
	AS7263R Channel = iota // 610 nm
	AS7263S                // 680 nm
	AS7263T                // 730 nm
	AS7263U                // 760 nm
	AS7263V                // 810 nm
	AS7263W                // 860 nm
)

var ErrInvalidChannel = fmt.Errorf("as726x: invalid channel")

// Band describes one channel of a sensor variant.
type Band struct {
	Channel    Channel `yaml:"-"`
	Name       string  `yaml:"name"`
	Wavelength int     `yaml:"wavelength_nm"`
}

var bands = map[SensorType][ChannelCount]Band{
	SensorTypeAS7262: {
		{AS7262Violet, "violet", 450},
		{AS7262Blue, "blue", 500},
		{AS7262Green, "green", 550},
		{AS7262Yellow, "yellow", 570},
		{AS7262Orange, "orange", 600},
		{AS7262Red, "red", 650},
	},
	SensorTypeAS7263: {
		{AS7263R, "r", 610},
		{AS7263S, "s", 680},
		{AS7263T, "t", 730},
		{AS7263U, "u", 760},
		{AS7263V, "v", 810},
		{AS7263W, "w", 860},
	},
}

// Bands returns the channel layout of a sensor variant in channel order.
func Bands(sensor SensorType) ([ChannelCount]Band, error) {
	b, ok := bands[sensor]
	if !ok {
		return b, fmt.Errorf("as726x: no channel layout for sensor %s", sensor)
	}
	return b, nil
}

// ChannelByName looks a channel up by its band name (case insensitive)
// on the given variant.
func ChannelByName(sensor SensorType, name string) (Channel, error) {
	layout, err := Bands(sensor)
	if err != nil {
		return 0, err
	}
	for _, b := range layout {
		if strings.EqualFold(b.Name, name) {
			return b.Channel, nil
		}
	}
	return 0, fmt.Errorf("%w: %q on %s", ErrInvalidChannel, name, sensor)
}

func (c Channel) valid() bool {
	return c < ChannelCount
}

func (c Channel) rawAddress() byte {
	return vregRawBase + byte(c)*rawWidth
}

func (c Channel) calibratedAddress() byte {
	return vregCalBase + byte(c)*calWidth
}

// Gain of the photodiode amplifier.
type Gain byte

const (
	Gain1x   Gain = 0 // default
	Gain3_7x Gain = 1
	Gain16x  Gain = 2
	Gain64x  Gain = 3
)

func (g Gain) String() string {
	switch g {
	case Gain1x:
		return "1x"
	case Gain3_7x:
		return "3.7x"
	case Gain16x:
		return "16x"
	case Gain64x:
		return "64x"
	default:
		return fmt.Sprintf("invalid(%d)", byte(g))
	}
}

// MeasurementMode selects which channel banks are converted and how.
type MeasurementMode byte

const (
	ModeContinuousBank1 MeasurementMode = 0b00
	ModeContinuousBank2 MeasurementMode = 0b01
	ModeContinuousAll   MeasurementMode = 0b10 // default
	ModeOneShot         MeasurementMode = 0b11
)

func (m MeasurementMode) String() string {
	switch m {
	case ModeContinuousBank1:
		return "continuous-bank1"
	case ModeContinuousBank2:
		return "continuous-bank2"
	case ModeContinuousAll:
		return "continuous-all"
	case ModeOneShot:
		return "one-shot"
	default:
		return fmt.Sprintf("invalid(%d)", byte(m))
	}
}

// IndicatorCurrent is the drive current limit of the indicator LED.
type IndicatorCurrent byte

const (
	Indicator1mA IndicatorCurrent = 0b00 // default
	Indicator2mA IndicatorCurrent = 0b01
	Indicator4mA IndicatorCurrent = 0b10
	Indicator8mA IndicatorCurrent = 0b11
)

func (c IndicatorCurrent) String() string {
	if byte(c) > fieldIndicatorCurrent.max() {
		return fmt.Sprintf("invalid(%d)", byte(c))
	}
	return fmt.Sprintf("%dmA", 1<<c)
}

// BulbCurrent is the drive current limit of the illumination (bulb) LED.
type BulbCurrent byte

const (
	Bulb12_5mA BulbCurrent = 0b00 // default
	Bulb25mA   BulbCurrent = 0b01
	Bulb50mA   BulbCurrent = 0b10
	Bulb100mA  BulbCurrent = 0b11
)

func (c BulbCurrent) String() string {
	switch c {
	case Bulb12_5mA:
		return "12.5mA"
	case Bulb25mA:
		return "25mA"
	case Bulb50mA:
		return "50mA"
	case Bulb100mA:
		return "100mA"
	default:
		return fmt.Sprintf("invalid(%d)", byte(c))
	}
}

func (g Gain) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (m MeasurementMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (c IndicatorCurrent) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c BulbCurrent) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func parseEnum[T ~byte](kind, text string, max byte, name func(T) string) (T, error) {
	for v := 0; v <= int(max); v++ {
		if strings.EqualFold(name(T(v)), text) {
			return T(v), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidArgument, kind, text)
}

// ParseGain accepts the names printed by Gain.String, e.g. "16x".
func ParseGain(text string) (Gain, error) {
	return parseEnum("gain", text, fieldGain.max(), Gain.String)
}

func ParseMeasurementMode(text string) (MeasurementMode, error) {
	return parseEnum("measurement mode", text, fieldMode.max(), MeasurementMode.String)
}

func ParseIndicatorCurrent(text string) (IndicatorCurrent, error) {
	return parseEnum("indicator current", text, fieldIndicatorCurrent.max(), IndicatorCurrent.String)
}

func ParseBulbCurrent(text string) (BulbCurrent, error) {
	return parseEnum("bulb current", text, fieldBulbCurrent.max(), BulbCurrent.String)
}

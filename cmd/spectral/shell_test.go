package main

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/spectral/pkg/config"
	"github.com/mklimuk/spectral/spectrum"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Adapter = config.AdapterSim
	cfg.PollInterval = 0
	dev := newDevice(newDemoSimulator(cfg.Address), cfg)
	out := &bytes.Buffer{}
	sh, err := newShell(context.Background(), dev, out)
	require.NoError(t, err)
	return sh, out
}

func TestShellSettings(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()
	assert.Equal(t, spectrum.SensorTypeAS7262, sh.sensor)

	for _, line := range []string{"gain 16x", "mode one-shot", "vwrite 0x05 0x20"} {
		quit, err := sh.exec(ctx, line)
		require.NoError(t, err, line)
		assert.False(t, quit)
	}
	assert.Empty(t, out.String())

	_, err := sh.exec(ctx, "gain")
	require.NoError(t, err)
	_, err = sh.exec(ctx, "mode")
	require.NoError(t, err)
	_, err = sh.exec(ctx, "inttime")
	require.NoError(t, err)
	assert.Equal(t, "16x\none-shot\n32 (89.6ms)\n", out.String())
}

func TestShellChannels(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()
	want, err := sh.dev.RawChannel(ctx, spectrum.AS7262Violet)
	require.NoError(t, err)

	_, err = sh.exec(ctx, "raw violet")
	require.NoError(t, err)
	_, err = sh.exec(ctx, "raw 0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		v, err := strconv.Atoi(line)
		require.NoError(t, err)
		assert.Equal(t, int(want), v)
	}

	out.Reset()
	_, err = sh.exec(ctx, "spectrum")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "violet(450nm)")
	assert.Contains(t, out.String(), "red(650nm)")

	_, err = sh.exec(ctx, "raw 6")
	assert.ErrorIs(t, err, spectrum.ErrInvalidChannel)
	_, err = sh.exec(ctx, "cal infrared")
	assert.ErrorIs(t, err, spectrum.ErrInvalidChannel)
	_, err = sh.exec(ctx, "raw")
	assert.Error(t, err)
}

func TestShellLEDs(t *testing.T) {
	sh, _ := newTestShell(t)
	ctx := context.Background()
	_, err := sh.exec(ctx, "led bulb on")
	require.NoError(t, err)
	leds, err := sh.dev.LEDs(ctx)
	require.NoError(t, err)
	assert.True(t, leds.Bulb)
	assert.False(t, leds.Indicator)

	_, err = sh.exec(ctx, "led bulb dim")
	assert.Error(t, err)
	_, err = sh.exec(ctx, "led strobe on")
	assert.Error(t, err)
}

func TestShellControl(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()

	quit, err := sh.exec(ctx, "   ")
	assert.NoError(t, err)
	assert.False(t, quit)

	_, err = sh.exec(ctx, "frobnicate")
	assert.Error(t, err)

	_, err = sh.exec(ctx, "help")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "vread <reg>")

	quit, err = sh.exec(ctx, "exit")
	assert.NoError(t, err)
	assert.True(t, quit)
}

func TestShellSpectrumFromReader(t *testing.T) {
	sh, out := newTestShell(t)
	mock := spectrum.NewMockSpectralSensor(spectrum.StaticSpectrum([spectrum.ChannelCount]float32{1, 2.5, 3, 4, 5, 6.25}))
	sh.reader = mock
	ctx := context.Background()

	_, err := sh.exec(ctx, "spectrum")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, spectrum.ChannelCount)
	assert.Equal(t, "violet(450nm) 1.00", lines[0])
	assert.Equal(t, "blue(500nm) 2.50", lines[1])
	assert.Equal(t, "red(650nm) 6.25", lines[5])

	broken := errors.New("lamp failure")
	mock.SetBehavior(spectrum.FailingSpectrum(broken))
	_, err = sh.exec(ctx, "spectrum")
	assert.ErrorIs(t, err, broken)
}

func TestPrintSpectrumUnknownSensor(t *testing.T) {
	out := &bytes.Buffer{}
	mock := spectrum.NewMockSpectralSensor(spectrum.StaticSpectrum([spectrum.ChannelCount]float32{}))
	require.NoError(t, printSpectrum(context.Background(), out, spectrum.SensorType(0x10), mock))
	assert.Contains(t, out.String(), "ch5 0.00")
}

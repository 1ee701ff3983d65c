package spectrum

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSpectralSensor(t *testing.T) {
	want := [ChannelCount]float32{1, 2, 3, 4, 5, 6}
	sensor := NewMockSpectralSensor(StaticSpectrum(want))

	got, err := sensor.GetSpectrum(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	malfunction := errors.New("sensor malfunction")
	sensor.SetBehavior(FailingSpectrum(malfunction))
	_, err = sensor.GetSpectrum(context.Background())
	assert.ErrorIs(t, err, malfunction)
	assert.Equal(t, 2, sensor.Calls())
}

func TestStaticSpectrumCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockSpectralSensor(StaticSpectrum([ChannelCount]float32{})).GetSpectrum(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpectrumReaderOnDevice(t *testing.T) {
	sim := NewSimulator(SensorTypeAS7262)
	sim.ConversionPolls = 3
	want := [ChannelCount]float32{10, 20, 30, 40, 50, 60}
	sim.LoadSpectrum([ChannelCount]uint16{}, want)
	dev, _ := newTestDevice(sim)

	var reader SpectrumReader = dev
	got, err := reader.GetSpectrum(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

package spectrum

import (
	"context"
	"sync"
)

// SpectrumReader produces calibrated channel values in channel order.
// AS726x implements it with a one-shot conversion.
type SpectrumReader interface {
	GetSpectrum(ctx context.Context) ([ChannelCount]float32, error)
}

var _ SpectrumReader = &AS726x{}
var _ SpectrumReader = &MockSpectralSensor{}

// SpectrumBehaviorFunc produces the result of one GetSpectrum call.
type SpectrumBehaviorFunc func(ctx context.Context) ([ChannelCount]float32, error)

// StaticSpectrum always returns values.
func StaticSpectrum(values [ChannelCount]float32) SpectrumBehaviorFunc {
	return func(ctx context.Context) ([ChannelCount]float32, error) {
		return values, ctx.Err()
	}
}

// FailingSpectrum always returns err.
func FailingSpectrum(err error) SpectrumBehaviorFunc {
	return func(context.Context) ([ChannelCount]float32, error) {
		return [ChannelCount]float32{}, err
	}
}

// MockSpectralSensor is a SpectrumReader backed by a behavior function,
// usable in place of an AS7262 or AS7263 without hardware.
//
//	sensor := NewMockSpectralSensor(StaticSpectrum([ChannelCount]float32{12.5, 30, 41.2, 40, 35.1, 20}))
type MockSpectralSensor struct {
	mx       sync.Mutex
	behavior SpectrumBehaviorFunc
	calls    int
}

func NewMockSpectralSensor(behavior SpectrumBehaviorFunc) *MockSpectralSensor {
	return &MockSpectralSensor{behavior: behavior}
}

func (m *MockSpectralSensor) GetSpectrum(ctx context.Context) ([ChannelCount]float32, error) {
	m.mx.Lock()
	m.calls++
	behavior := m.behavior
	m.mx.Unlock()
	return behavior(ctx)
}

// SetBehavior replaces the behavior for subsequent calls.
func (m *MockSpectralSensor) SetBehavior(behavior SpectrumBehaviorFunc) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.behavior = behavior
}

// Calls returns how many times GetSpectrum was invoked.
func (m *MockSpectralSensor) Calls() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.calls
}

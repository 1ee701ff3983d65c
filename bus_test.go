package spectral

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBus struct {
	mock.Mock
}

func (m *mockBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *mockBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *mockBus) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type nativeRegisterBus struct {
	mockBus
}

func (n *nativeRegisterBus) ReadReg(ctx context.Context, address, register byte) (byte, error) {
	return 0, nil
}

func (n *nativeRegisterBus) WriteReg(ctx context.Context, address, register, value byte) error {
	return nil
}

func TestRegisterBus_ReadReg(t *testing.T) {
	bus := new(mockBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x49), []byte{0x02}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x49), mock.Anything).Return([]byte{0xA5}, nil).Once()

	val, err := NewRegisterBus(bus).ReadReg(context.Background(), 0x49, 0x02)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA5), val)
	bus.AssertExpectations(t)
}

func TestRegisterBus_WriteReg(t *testing.T) {
	bus := new(mockBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x49), []byte{0x01, 0x84}).Return(nil).Once()

	err := NewRegisterBus(bus).WriteReg(context.Background(), 0x49, 0x01, 0x84)
	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestRegisterBus_ErrorsPropagate(t *testing.T) {
	nack := errors.New("nack")
	bus := new(mockBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x49), mock.Anything).Return(nack).Once()

	_, err := NewRegisterBus(bus).ReadReg(context.Background(), 0x49, 0x00)
	assert.ErrorIs(t, err, nack)
	bus.AssertNotCalled(t, "Release", mock.Anything)
	bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterBus_BusyRetries(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		failures int
		wantErr  bool
	}{
		{name: "no retry by default", attempts: 0, failures: 1, wantErr: true},
		{name: "recovers after release", attempts: 3, failures: 2, wantErr: false},
		{name: "retry limit reached", attempts: 2, failures: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(mockBus)
			bus.On("WriteToAddr", mock.Anything, byte(0x49), mock.Anything).Return(ErrBusBusy).Times(tt.failures)
			bus.On("WriteToAddr", mock.Anything, byte(0x49), mock.Anything).Return(nil).Maybe()
			bus.On("Release", mock.Anything).Return(nil)

			var opts []RegisterBusOpt
			if tt.attempts > 0 {
				opts = append(opts, WithBusyRetries(tt.attempts))
			}
			err := NewRegisterBus(bus, opts...).WriteReg(context.Background(), 0x49, 0x01, 0x00)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBusBusy)
				return
			}
			assert.NoError(t, err)
			bus.AssertNumberOfCalls(t, "Release", tt.failures)
		})
	}
}

func TestNewRegisterBus_NativeSupport(t *testing.T) {
	bus := new(nativeRegisterBus)
	rb := NewRegisterBus(bus)
	assert.Same(t, bus, rb)
}

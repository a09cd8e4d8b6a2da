package am2321

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockI2CBus is a mock implementation of I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if args.Get(0) != nil {
		if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
			copy(buffer, data)
		}
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func fastOpts(opts ...AM2321Opt) []AM2321Opt {
	return append([]AM2321Opt{
		WithWakeDelay(10 * time.Microsecond),
		WithWriteModeDelay(10 * time.Microsecond),
		WithReadModeDelay(10 * time.Microsecond),
		WithRefreshDelay(time.Millisecond),
		WithRetryInterval(time.Millisecond),
	}, opts...)
}

func TestAM2321_SessionSequence(t *testing.T) {
	bus := new(MockI2CBus)
	// two zero-length writes (wake, write mode), then the read command
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte(nil)).
		Return(nil).Twice()
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x03, 0x00, 0x04}).
		Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(DefaultAddress), mock.Anything).
		Return(validFrame(0x02, 0x0A, 0x01, 0x00), nil).Once()
	bus.On("Release", mock.Anything).Return(nil).Once()

	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts()...)

	reading, err := sensor.MeasureWithRetry(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, float32(25.6), reading.Temperature)
	assert.Equal(t, float32(52.2), reading.Humidity)
	assert.InDelta(t, 72.80, reading.Discomfort, 0.05)

	bus.AssertExpectations(t)
}

func TestAM2321_ReleasedOnFailure(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte(nil)).
		Return(errors.New("nack")).Once()
	bus.On("Release", mock.Anything).Return(nil).Once()

	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts(WithMaxRetries(0))...)

	_, err := sensor.MeasureWithRetry(context.Background())
	assert.ErrorIs(t, err, ErrMeasurementFailed)
	assert.ErrorIs(t, err, ErrTransport)

	bus.AssertExpectations(t)
}

func TestAM2321_RetriesWithinBudget(t *testing.T) {
	good := NewFrameBus(validFrame(0x02, 0x0A, 0x01, 0x00))
	attempts := 0
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		// fail the first 4 attempts, succeed on the 5th
		attempts++
		if attempts < 5 {
			return nil, errors.New("bus busy")
		}
		return good, nil
	})
	sensor := NewAM2321(opener, fastOpts()...)

	reading, err := sensor.MeasureWithRetry(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, float32(25.6), reading.Temperature)
	assert.Equal(t, 5, opener.Opened)
	assert.Equal(t, 1, good.Released)
}

func TestAM2321_RetryBudgetExhausted(t *testing.T) {
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return nil, errors.New("bus busy")
	})
	sensor := NewAM2321(opener, fastOpts()...)

	_, err := sensor.MeasureWithRetry(context.Background())
	assert.ErrorIs(t, err, ErrMeasurementFailed)
	assert.ErrorIs(t, err, ErrTransport)
	// 1 initial attempt + 5 retries
	assert.Equal(t, 6, opener.Opened)
}

func TestAM2321_DeviceFault(t *testing.T) {
	bus := NewFrameBus(validFrame(0x80, 0x00, 0x01, 0x00))
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts(WithMaxRetries(0))...)

	_, err := sensor.MeasureWithRetry(context.Background())
	assert.ErrorIs(t, err, ErrMeasurementFailed)
	assert.ErrorIs(t, err, ErrDeviceFault)
	assert.Equal(t, 1, bus.Released)
}

func TestAM2321_CRCMismatch(t *testing.T) {
	frame := validFrame(0x02, 0x0A, 0x01, 0x00)
	frame[6] ^= 0xFF
	bus := NewFrameBus(frame)
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts(WithMaxRetries(0))...)

	_, err := sensor.MeasureWithRetry(context.Background())
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

func TestAM2321_RefreshPacing(t *testing.T) {
	refresh := 50 * time.Millisecond
	bus := NewFrameBus(validFrame(0x02, 0x0A, 0x01, 0x00))
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts(WithRefreshDelay(refresh))...)
	ctx := context.Background()

	// first measurement returns without waiting for the refresh window
	start := time.Now()
	_, err := sensor.MeasureWithRetry(ctx)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), refresh/2, "first measurement should not wait")

	// second measurement waits for the sensor to refresh its registers
	start = time.Now()
	_, err = sensor.MeasureWithRetry(ctx)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), refresh-10*time.Millisecond, "second measurement should wait for refresh")
}

func TestAM2321_ContextCancelled(t *testing.T) {
	bus := NewFrameBus(validFrame(0x02, 0x0A, 0x01, 0x00))
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sensor.MeasureWithRetry(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAM2321_GetTempAndHum(t *testing.T) {
	bus := NewFrameBus(validFrame(0x02, 0x0A, 0x01, 0x00))
	opener := NewMockBusOpener(func(ctx context.Context) (I2CBus, error) {
		return bus, nil
	})
	sensor := NewAM2321(opener, fastOpts()...)

	temp, hum, err := sensor.GetTempAndHum(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, float32(25.6), temp)
	assert.Equal(t, float32(52.2), hum)
}

package am2321

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AM2321 I2C address (7-bit)
const DefaultAddress = 0x5C

// Function codes (first byte of the command frame)
const (
	funcReadRegisters byte = 0x03
	// funcWriteRegisters (0x10) writes multiple registers. The sensor only
	// ever needs reads here, the code is kept for reference.
	funcWriteRegisters byte = 0x10
)

// Read command: registers 0x00..0x03 (humidity pair, then temperature pair)
const (
	regHumidityHigh   byte = 0x00
	readRegisterCount byte = 0x04
)

// Protocol timing. The sensor sleeps between measurements and needs fixed
// quiescence windows around every bus operation.
const (
	defaultWakeDelay      = 800 * time.Microsecond  // 800 to 3000
	defaultWriteModeDelay = 1500 * time.Microsecond // up to 1500
	defaultReadModeDelay  = 30 * time.Microsecond   // up to 30
	defaultRefreshDelay   = 2 * time.Second         // internal refresh cadence
	defaultRetryInterval  = 300 * time.Millisecond
	defaultMaxRetries     = 5
)

type AM2321Opts struct {
	WakeDelay      time.Duration
	WriteModeDelay time.Duration
	ReadModeDelay  time.Duration
	RefreshDelay   time.Duration
	RetryInterval  time.Duration
	MaxRetries     int
}

type AM2321Opt func(*AM2321Opts)

func WithWakeDelay(delay time.Duration) AM2321Opt {
	return func(o *AM2321Opts) {
		o.WakeDelay = delay
	}
}

func WithWriteModeDelay(delay time.Duration) AM2321Opt {
	return func(o *AM2321Opts) {
		o.WriteModeDelay = delay
	}
}

func WithReadModeDelay(delay time.Duration) AM2321Opt {
	return func(o *AM2321Opts) {
		o.ReadModeDelay = delay
	}
}

func WithRefreshDelay(delay time.Duration) AM2321Opt {
	return func(o *AM2321Opts) {
		o.RefreshDelay = delay
	}
}

func WithRetryInterval(interval time.Duration) AM2321Opt {
	return func(o *AM2321Opts) {
		o.RetryInterval = interval
	}
}

func WithMaxRetries(retries int) AM2321Opt {
	return func(o *AM2321Opts) {
		o.MaxRetries = retries
	}
}

// AM2321 represents the Aosong AM2321 temperature/humidity sensor.
// Typical usage:
//
//	s := NewAM2321(opener)
//	reading, err := s.MeasureWithRetry(ctx)
//
// Each measurement opens the bus, runs the timed wake/command/read session,
// releases the bus and validates the reply. The sensor refreshes its
// registers every two seconds; the driver schedules that delay after every
// successful measurement so back-to-back calls are paced automatically.
type AM2321 struct {
	mx        sync.Mutex
	delayDone chan struct{} // closed when the post-measurement refresh delay completes
	delayMx   sync.Mutex    // protects delayDone channel

	config AM2321Opts

	opener BusOpener
	addr   byte
	last   Reading
}

func NewAM2321(opener BusOpener, opts ...AM2321Opt) *AM2321 {
	config := AM2321Opts{
		WakeDelay:      defaultWakeDelay,
		WriteModeDelay: defaultWriteModeDelay,
		ReadModeDelay:  defaultReadModeDelay,
		RefreshDelay:   defaultRefreshDelay,
		RetryInterval:  defaultRetryInterval,
		MaxRetries:     defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&config)
	}
	// Create a closed channel so the first measurement can proceed immediately
	ch := make(chan struct{})
	close(ch)
	return &AM2321{
		config:    config,
		opener:    opener,
		addr:      DefaultAddress,
		delayDone: ch,
	}
}

// waitForDelay waits for the refresh delay scheduled by a previous
// measurement to complete.
func (s *AM2321) waitForDelay(ctx context.Context) error {
	s.delayMx.Lock()
	ch := s.delayDone
	s.delayMx.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scheduleDelay schedules a delay in a goroutine and updates delayDone when
// it completes.
func (s *AM2321) scheduleDelay(ctx context.Context, duration time.Duration) {
	s.delayMx.Lock()
	ch := make(chan struct{})
	s.delayDone = ch
	s.delayMx.Unlock()

	go func() {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(ch)
		case <-ctx.Done():
			close(ch)
		}
	}()
}

// measure runs one full session against a freshly opened bus and validates
// the reply. The bus is released on every exit path.
func (s *AM2321) measure(ctx context.Context) (Reading, error) {
	bus, err := s.opener.OpenBus(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: could not open bus: %w", ErrTransport, err)
	}
	defer func() {
		if err := bus.Release(ctx); err != nil {
			slog.Warn("am2321: bus release failed", "error", err)
		}
	}()

	// Wake up from suspend mode. A zero-length write addresses the device
	// without payload; the wake itself may report a transport error even
	// when the sensor woke up fine, which only fails this attempt.
	if err := bus.WriteToAddr(ctx, s.addr, nil); err != nil {
		return Reading{}, fmt.Errorf("%w: wake write failed: %w", ErrTransport, err)
	}
	if err := sleepFor(ctx, s.config.WakeDelay); err != nil {
		return Reading{}, err
	}

	// Second zero-length write puts the device in command-write mode.
	if err := bus.WriteToAddr(ctx, s.addr, nil); err != nil {
		return Reading{}, fmt.Errorf("%w: write mode failed: %w", ErrTransport, err)
	}
	if err := sleepFor(ctx, s.config.WriteModeDelay); err != nil {
		return Reading{}, err
	}

	// Read four registers starting at the humidity high byte.
	if err := bus.WriteToAddr(ctx, s.addr, []byte{funcReadRegisters, regHumidityHigh, readRegisterCount}); err != nil {
		return Reading{}, fmt.Errorf("%w: command write failed: %w", ErrTransport, err)
	}
	if err := sleepFor(ctx, s.config.ReadModeDelay); err != nil {
		return Reading{}, err
	}

	frame := make([]byte, frameLen)
	if err := bus.ReadFromAddr(ctx, s.addr, frame); err != nil {
		return Reading{}, fmt.Errorf("%w: frame read failed: %w", ErrTransport, err)
	}

	return decodeFrame(frame)
}

// MeasureWithRetry measures temperature and humidity, retrying failed
// attempts up to the configured budget with a fixed interval in between.
// The interval is deliberately constant, the sensor refreshes on a fixed
// cadence and backoff growth would not help.
func (s *AM2321) MeasureWithRetry(ctx context.Context) (Reading, error) {
	if err := s.waitForDelay(ctx); err != nil {
		return Reading{}, err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	var count int
	for {
		reading, err := s.measure(ctx)
		if err == nil {
			s.last = reading
			s.scheduleDelay(ctx, s.config.RefreshDelay)
			return reading, nil
		}
		if ctx.Err() != nil {
			return Reading{}, ctx.Err()
		}
		count++
		if count > s.config.MaxRetries {
			slog.Warn("am2321: measurement failed, giving up", "attempts", count, "error", err)
			return Reading{}, fmt.Errorf("%w after %d attempts: %w", ErrMeasurementFailed, count, err)
		}
		slog.Warn("am2321: measurement failed, retrying", "retry", count, "max", s.config.MaxRetries, "error", err)
		if err := sleepFor(ctx, s.config.RetryInterval); err != nil {
			return Reading{}, err
		}
	}
}

// GetTemperature performs a measurement and returns temperature in Celsius.
func (s *AM2321) GetTemperature(ctx context.Context) (float32, error) {
	reading, err := s.MeasureWithRetry(ctx)
	if err != nil {
		return 0, err
	}
	return reading.Temperature, nil
}

// GetHumidity performs a measurement and returns relative humidity in %RH.
func (s *AM2321) GetHumidity(ctx context.Context) (float32, error) {
	reading, err := s.MeasureWithRetry(ctx)
	if err != nil {
		return 0, err
	}
	return reading.Humidity, nil
}

// GetTempAndHum performs a measurement and returns temperature and humidity.
func (s *AM2321) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	reading, err := s.MeasureWithRetry(ctx)
	if err != nil {
		return 0, 0, err
	}
	return reading.Temperature, reading.Humidity, nil
}

func sleepFor(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package am2321

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrNoReading = fmt.Errorf("am2321: no reading available yet")

// Monitor keeps the latest successful reading available to the whole
// process. It measures on a fixed interval through the retry controller and
// never exposes the sensor directly, callers only see the stored reading.
type Monitor struct {
	sensor   *AM2321
	interval time.Duration

	mx        sync.RWMutex
	last      Reading
	updatedAt time.Time
	lastErr   error

	stop chan struct{}
	done chan struct{}
}

func NewMonitor(sensor *AM2321, interval time.Duration) *Monitor {
	return &Monitor{
		sensor:   sensor,
		interval: interval,
	}
}

// Start launches the measurement loop. It takes an initial reading
// synchronously so Latest has data as soon as Start returns without error.
func (m *Monitor) Start(ctx context.Context) error {
	if m.stop != nil {
		return fmt.Errorf("am2321: monitor already started")
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	m.measureOnce(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.measureOnce(ctx)
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.mx.RLock()
	defer m.mx.RUnlock()
	return m.lastErr
}

func (m *Monitor) measureOnce(ctx context.Context) {
	reading, err := m.sensor.MeasureWithRetry(ctx)
	m.mx.Lock()
	defer m.mx.Unlock()
	if err != nil {
		// keep the previous reading, remember the failure
		m.lastErr = err
		slog.Warn("am2321: monitor measurement failed", "error", err)
		return
	}
	m.last = reading
	m.updatedAt = time.Now()
	m.lastErr = nil
}

// Latest returns the most recent successful reading and its timestamp.
// It returns ErrNoReading until the first measurement succeeds.
func (m *Monitor) Latest() (Reading, time.Time, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	if m.updatedAt.IsZero() {
		if m.lastErr != nil {
			return Reading{}, time.Time{}, m.lastErr
		}
		return Reading{}, time.Time{}, ErrNoReading
	}
	return m.last, m.updatedAt, nil
}

// Stop terminates the measurement loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
}

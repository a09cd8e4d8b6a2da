package i2c

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/ktooi/am2321"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var _ am2321.I2CBus = &GenericBus{}

// GenericBus wraps a periph.io i2c-dev bus. Release closes the bus, every
// measurement session runs on a bus of its own.
type GenericBus struct {
	bus i2c.BusCloser
}

func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return busError("could not read from i2c bus", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return busError("could not write to i2c bus", address, err)
	}
	return nil
}

// busError surfaces kernel-level contention as am2321.ErrBusBusy and wraps
// everything else as-is.
func busError(msg string, address byte, err error) error {
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN) {
		return fmt.Errorf("%w: %s %x: %v", am2321.ErrBusBusy, msg, address, err)
	}
	return fmt.Errorf("%s %x: %w", msg, address, err)
}

func (b *GenericBus) Release(ctx context.Context) error {
	return b.bus.Close()
}

type OpenerOpts struct {
	OpenRetries   int
	RetryInterval time.Duration
}

type OpenerOpt func(*OpenerOpts)

func WithOpenRetries(retries int) OpenerOpt {
	return func(o *OpenerOpts) {
		o.OpenRetries = retries
	}
}

func WithRetryInterval(interval time.Duration) OpenerOpt {
	return func(o *OpenerOpts) {
		o.RetryInterval = interval
	}
}

var _ am2321.BusOpener = &Opener{}

// Opener opens a named i2c-dev bus for each measurement session with a
// bounded number of low-level open retries.
type Opener struct {
	dev    string
	config OpenerOpts
}

func NewOpener(dev string, opts ...OpenerOpt) *Opener {
	config := OpenerOpts{
		OpenRetries:   1,
		RetryInterval: 3 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Opener{dev: dev, config: config}
}

func (o *Opener) OpenBus(ctx context.Context) (am2321.I2CBus, error) {
	var lastErr error
	for attempt := 0; attempt <= o.config.OpenRetries; attempt++ {
		bus, err := NewGenericBus(o.dev)
		if err == nil {
			return bus, nil
		}
		lastErr = err
		timer := time.NewTimer(o.config.RetryInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("could not open %s after %d attempts: %w", o.dev, o.config.OpenRetries+1, lastErr)
}

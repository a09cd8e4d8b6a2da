package adapter

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/ktooi/am2321"
)

// Connector is the slice of a gobot platform adaptor the opener needs:
// i2c connections plus the adaptor lifecycle.
type Connector interface {
	gi2c.Connector
	Connect() error
	Finalize() error
}

var _ am2321.BusOpener = &GobotOpener{}

// GobotOpener opens the sensor bus through a gobot platform adaptor.
// The adaptor is connected per session and finalized on release.
type GobotOpener struct {
	connector Connector
	busNr     int
}

// NewGobotOpener wraps an arbitrary gobot adaptor. A negative bus number
// selects the platform default.
func NewGobotOpener(connector Connector, busNr int) *GobotOpener {
	if busNr < 0 {
		busNr = connector.DefaultI2cBus()
	}
	return &GobotOpener{connector: connector, busNr: busNr}
}

// NewNanoPiOpener opens the bus on a FriendlyELEC NanoPi Neo.
func NewNanoPiOpener(busNr int) *GobotOpener {
	return NewGobotOpener(nanopi.NewNeoAdaptor(), busNr)
}

// NewRaspiOpener opens the bus on a Raspberry Pi.
func NewRaspiOpener(busNr int) *GobotOpener {
	return NewGobotOpener(raspi.NewAdaptor(), busNr)
}

func (o *GobotOpener) OpenBus(ctx context.Context) (am2321.I2CBus, error) {
	if err := o.connector.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	return &gobotBus{connector: o.connector, busNr: o.busNr}, nil
}

type gobotBus struct {
	connector Connector
	busNr     int
}

func (b *gobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	conn, err := b.connector.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return fmt.Errorf("could not get i2c connection for %x: %w", address, err)
	}
	if buffer == nil {
		// zero-length addressing write, this is what wakes the sensor
		buffer = []byte{}
	}
	if _, err := conn.Write(buffer); err != nil {
		return busError("could not write to i2c address", address, err)
	}
	return nil
}

func (b *gobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	conn, err := b.connector.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return fmt.Errorf("could not get i2c connection for %x: %w", address, err)
	}
	read, err := conn.Read(buffer)
	if err != nil {
		return busError("could not read from i2c address", address, err)
	}
	if read != len(buffer) {
		return fmt.Errorf("short read from i2c address %x: %d of %d bytes", address, read, len(buffer))
	}
	return nil
}

func (b *gobotBus) Release(ctx context.Context) error {
	return b.connector.Finalize()
}

// busError surfaces kernel-level contention as am2321.ErrBusBusy and wraps
// everything else as-is.
func busError(msg string, address byte, err error) error {
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN) {
		return fmt.Errorf("%w: %s %x: %v", am2321.ErrBusBusy, msg, address, err)
	}
	return fmt.Errorf("%s %x: %w", msg, address, err)
}

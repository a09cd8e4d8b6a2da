package am2321

import (
	"context"
	"fmt"
)

// ErrBusBusy marks bus-level contention (EBUSY/EAGAIN from the kernel or a
// held adaptor). Transports wrap these conditions so callers can tell a
// contended bus from a dead one; the retry controller treats both the same.
var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// BusOpener hands out a freshly opened bus for a single measurement session.
// The sensor supports only one conversation at a time, so the driver owns the
// returned bus exclusively and calls Release when the session ends, on
// success and failure alike.
type BusOpener interface {
	OpenBus(ctx context.Context) (I2CBus, error)
}

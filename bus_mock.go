package am2321

import (
	"context"
)

// WriteBehaviorFunc defines the behavior of a mock bus write.
type WriteBehaviorFunc func(ctx context.Context, address byte, buffer []byte) error

// ReadBehaviorFunc defines the behavior of a mock bus read. The buffer is
// filled by the behavior function.
type ReadBehaviorFunc func(ctx context.Context, address byte, buffer []byte) error

// MockBus is a mock I2CBus driven by behavior functions, usable without any
// hardware attached.
type MockBus struct {
	writeBehavior WriteBehaviorFunc
	readBehavior  ReadBehaviorFunc
	Released      int
}

// NewMockBus creates a mock bus with the given behaviors. Nil behaviors
// succeed without doing anything.
func NewMockBus(writeBehavior WriteBehaviorFunc, readBehavior ReadBehaviorFunc) *MockBus {
	return &MockBus{
		writeBehavior: writeBehavior,
		readBehavior:  readBehavior,
	}
}

// NewFrameBus creates a mock bus that accepts all writes and answers every
// read with the given frame.
func NewFrameBus(frame []byte) *MockBus {
	return NewMockBus(nil, func(ctx context.Context, address byte, buffer []byte) error {
		copy(buffer, frame)
		return nil
	})
}

func (m *MockBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if m.writeBehavior == nil {
		return nil
	}
	return m.writeBehavior(ctx, address, buffer)
}

func (m *MockBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if m.readBehavior == nil {
		return nil
	}
	return m.readBehavior(ctx, address, buffer)
}

func (m *MockBus) Release(ctx context.Context) error {
	m.Released++
	return nil
}

// OpenBehaviorFunc defines the behavior of a mock bus opener.
type OpenBehaviorFunc func(ctx context.Context) (I2CBus, error)

// MockBusOpener is a mock BusOpener driven by a behavior function.
type MockBusOpener struct {
	openBehavior OpenBehaviorFunc
	Opened       int
}

func NewMockBusOpener(openBehavior OpenBehaviorFunc) *MockBusOpener {
	return &MockBusOpener{openBehavior: openBehavior}
}

func (m *MockBusOpener) OpenBus(ctx context.Context) (I2CBus, error) {
	m.Opened++
	return m.openBehavior(ctx)
}

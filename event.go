package shadertui

import "sync/atomic"

// EventKind classifies pipeline events.
type EventKind int

const (
	// EventCompileError reports a shader validation or pipeline build
	// failure. Non-fatal: the previous program keeps rendering.
	EventCompileError EventKind = iota
	// EventReloadOK reports that a new shader program is live.
	EventReloadOK
	// EventDeviceError reports a GPU submission or readback failure.
	// Non-fatal: the producer backs off briefly and keeps trying.
	EventDeviceError
	// EventShutdown asks the coordinator to stop the pipeline.
	EventShutdown
)

// String returns the kind's name for logs and overlays.
func (k EventKind) String() string {
	switch k {
	case EventCompileError:
		return "compile-error"
	case EventReloadOK:
		return "reload-ok"
	case EventDeviceError:
		return "device-error"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is a pipeline notification. Message carries human-readable detail
// for the error kinds and is empty otherwise.
type Event struct {
	Kind    EventKind
	Message string
}

// busDepth buffers enough events to absorb an editing burst. Overflow is
// tolerable for every kind except shutdown, which Run latches separately.
const busDepth = 64

// Bus is a single-consumer event channel whose publishers never block.
// Events from one publisher arrive in the order they were published;
// when the buffer is full, new events are counted and discarded.
type Bus struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewBus returns a ready-to-use bus.
func NewBus() *Bus {
	return &Bus{ch: make(chan Event, busDepth)}
}

// Publish enqueues an event without blocking. It reports whether the event
// was accepted; a false return means the buffer was full and the event
// was dropped.
func (b *Bus) Publish(e Event) bool {
	select {
	case b.ch <- e:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// C returns the receive side of the bus. Exactly one goroutine drains it.
func (b *Bus) C() <-chan Event {
	return b.ch
}

// Dropped reports how many events were discarded on a full buffer.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

package shadertui

import (
	"sync"
	"sync/atomic"
)

// FrameSample is one finished compute frame: RGBA color samples, four
// float32 values per pixel, laid out row-major at the given width.
// Ownership transfers into the relay on Write; the producer must not
// reuse the Data slice afterwards, and consumers must not mutate it.
type FrameSample struct {
	Data  []float32
	Width uint32
	// Seq increases by one for every frame the producer finishes,
	// including frames that are later overwritten unread.
	Seq uint64
}

// FrameRelay carries frames from the producer to the consumer through a
// single-slot mailbox. Writes never block: a frame that arrives while the
// previous one is still unread replaces it and counts a drop. Reads never
// block either; the consumer keeps the last frame it saw and re-reads it
// when nothing newer has arrived.
type FrameRelay struct {
	slot  chan FrameSample
	drops atomic.Uint64

	mu      sync.Mutex
	current FrameSample
	live    bool
}

// NewFrameRelay returns an empty relay.
func NewFrameRelay() *FrameRelay {
	return &FrameRelay{slot: make(chan FrameSample, 1)}
}

// Write publishes a frame, replacing any unread predecessor. Each frame
// discarded unread increments the drop counter by exactly one.
func (r *FrameRelay) Write(s FrameSample) {
	for {
		select {
		case r.slot <- s:
			return
		default:
		}
		// Slot occupied: evict the stale frame and retry. The consumer
		// may drain the slot between the two selects, so eviction has
		// to be non-blocking too.
		select {
		case <-r.slot:
			r.drops.Add(1)
		default:
		}
	}
}

// Read returns the freshest available frame. A pending unread frame becomes
// the current one; otherwise the previous current frame is returned again,
// so the same frame may be observed more than once. The second return is
// false until the first frame has been written.
func (r *FrameRelay) Read() (FrameSample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case s := <-r.slot:
		r.current = s
		r.live = true
	default:
	}
	return r.current, r.live
}

// Drops reports how many frames were overwritten before being read.
func (r *FrameRelay) Drops() uint64 {
	return r.drops.Load()
}

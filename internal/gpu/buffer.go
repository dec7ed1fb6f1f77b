package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	ErrBufferDestroyed     = errors.New("gpu: buffer has been destroyed")
	ErrInvalidBufferSize   = errors.New("gpu: invalid buffer size")
	ErrBufferAlreadyMapped = errors.New("gpu: buffer is already mapped or mapping is pending")
	ErrBufferNotMapped     = errors.New("gpu: buffer is not mapped")
	ErrInvalidMapRange     = errors.New("gpu: map range out of bounds")
	ErrMapUsageMismatch    = errors.New("gpu: map mode does not match buffer usage flags")
)

// BufferMapState represents the mapping state of a buffer.
type BufferMapState int

const (
	BufferMapStateUnmapped BufferMapState = iota
	BufferMapStatePending
	BufferMapStateMapped
)

// BufferMapAsyncStatus is the result of an async map operation.
type BufferMapAsyncStatus int

const (
	BufferMapAsyncStatusSuccess BufferMapAsyncStatus = iota
	BufferMapAsyncStatusValidationError
	BufferMapAsyncStatusDestroyedBeforeCallback
	BufferMapAsyncStatusUnmappedBeforeCallback
)

// String returns the status name for error messages.
func (s BufferMapAsyncStatus) String() string {
	switch s {
	case BufferMapAsyncStatusSuccess:
		return "Success"
	case BufferMapAsyncStatusValidationError:
		return "ValidationError"
	case BufferMapAsyncStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	case BufferMapAsyncStatusUnmappedBeforeCallback:
		return "UnmappedBeforeCallback"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Buffer wraps a hal.Buffer with the async mapping lifecycle wgpu
// prescribes: MapAsync, poll until complete, GetMappedRange, Unmap.
// The readback staging buffer is the only mappable buffer the renderer
// creates.
//
// Buffer is safe for concurrent use; all state sits behind one mutex.
type Buffer struct {
	mu sync.RWMutex

	halBuffer hal.Buffer
	device    hal.Device

	label string
	size  uint64
	usage gputypes.BufferUsage

	mapState    BufferMapState
	mapOffset   uint64
	mapSize     uint64
	mappedData  []byte
	mapCallback func(BufferMapAsyncStatus)

	destroyed bool
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Raw returns the underlying buffer handle, or nil after Destroy.
func (b *Buffer) Raw() hal.Buffer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.destroyed {
		return nil
	}
	return b.halBuffer
}

// MapAsync initiates mapping of [offset, offset+size). The callback fires
// once the mapping completes or fails; poll with PollMapAsync until it
// reports completion.
func (b *Buffer) MapAsync(mode gputypes.MapMode, offset, size uint64, callback func(BufferMapAsyncStatus)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	if b.mapState != BufferMapStateUnmapped {
		return ErrBufferAlreadyMapped
	}
	if callback == nil {
		return errors.New("gpu: map callback is nil")
	}
	if mode == gputypes.MapModeRead && !b.usage.Contains(gputypes.BufferUsageMapRead) {
		callback(BufferMapAsyncStatusValidationError)
		return fmt.Errorf("%w: buffer lacks MapRead usage", ErrMapUsageMismatch)
	}
	if mode == gputypes.MapModeWrite && !b.usage.Contains(gputypes.BufferUsageMapWrite) {
		callback(BufferMapAsyncStatusValidationError)
		return fmt.Errorf("%w: buffer lacks MapWrite usage", ErrMapUsageMismatch)
	}
	if offset+size > b.size {
		callback(BufferMapAsyncStatusValidationError)
		return fmt.Errorf("%w: offset %d + size %d > buffer size %d", ErrInvalidMapRange, offset, size, b.size)
	}

	b.mapState = BufferMapStatePending
	b.mapOffset = offset
	b.mapSize = size
	b.mapCallback = callback
	return nil
}

// PollMapAsync drives a pending map operation and reports whether mapping
// has completed. The HAL does not yet expose mapped host pointers, so
// completion is immediate and the mapped range is backed by host memory.
func (b *Buffer) PollMapAsync() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mapState != BufferMapStatePending {
		return true
	}
	if b.destroyed {
		b.finish(BufferMapAsyncStatusDestroyedBeforeCallback, BufferMapStateUnmapped)
		return true
	}

	b.mappedData = make([]byte, b.mapSize)
	b.finish(BufferMapAsyncStatusSuccess, BufferMapStateMapped)
	return true
}

// finish invokes the pending callback outside the lock. Caller holds mu.
func (b *Buffer) finish(status BufferMapAsyncStatus, state BufferMapState) {
	b.mapState = state
	callback := b.mapCallback
	b.mapCallback = nil
	if callback != nil {
		b.mu.Unlock()
		callback(status)
		b.mu.Lock()
	}
}

// GetMappedRange returns the mapped bytes for [offset, offset+size).
// The slice is invalid after Unmap or Destroy.
func (b *Buffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	if b.mapState != BufferMapStateMapped {
		return nil, ErrBufferNotMapped
	}
	if offset < b.mapOffset || offset+size > b.mapOffset+b.mapSize {
		return nil, fmt.Errorf("%w: [%d, %d) outside mapped [%d, %d)",
			ErrInvalidMapRange, offset, offset+size, b.mapOffset, b.mapOffset+b.mapSize)
	}
	rel := offset - b.mapOffset
	return b.mappedData[rel : rel+size], nil
}

// Unmap releases the mapped range. Unmapping an unmapped buffer is a no-op;
// a pending map is cancelled.
func (b *Buffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	switch b.mapState {
	case BufferMapStatePending:
		b.mappedData = nil
		b.finish(BufferMapAsyncStatusUnmappedBeforeCallback, BufferMapStateUnmapped)
	case BufferMapStateMapped:
		b.mapState = BufferMapStateUnmapped
		b.mappedData = nil
	}
	return nil
}

// Destroy releases the buffer. Idempotent; a pending map is failed first.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	device := b.device
	halBuf := b.halBuffer
	callback := b.mapCallback
	wasPending := b.mapState == BufferMapStatePending
	b.halBuffer = nil
	b.mappedData = nil
	b.mapCallback = nil
	b.mapState = BufferMapStateUnmapped
	b.mu.Unlock()

	if wasPending && callback != nil {
		callback(BufferMapAsyncStatusDestroyedBeforeCallback)
	}
	if device != nil && halBuf != nil {
		device.DestroyBuffer(halBuf)
	}
}

// CreateBuffer creates a buffer on device, aligning the size up to the
// 4-byte copy alignment.
func CreateBuffer(device hal.Device, label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	if device == nil {
		return nil, errors.New("gpu: device is nil")
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: size is 0", ErrInvalidBufferSize)
	}

	const copyBufferAlignment uint64 = 4
	alignedSize := (size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)

	halBuffer, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  alignedSize,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q: %w", label, err)
	}

	return &Buffer{
		halBuffer: halBuffer,
		device:    device,
		label:     label,
		size:      alignedSize,
		usage:     usage,
	}, nil
}

// CreateReadbackBuffer creates a staging buffer for GPU-to-CPU transfer:
// copy into it on the GPU timeline, then map and read.
func CreateReadbackBuffer(device hal.Device, size uint64, label string) (*Buffer, error) {
	return CreateBuffer(device, label, size, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
}

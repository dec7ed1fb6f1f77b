package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

// testBuffer builds a Buffer without a device; the mapping state machine
// never touches the HAL until Destroy.
func testBuffer(size uint64, usage gputypes.BufferUsage) *Buffer {
	return &Buffer{label: "test", size: size, usage: usage}
}

func TestBufferMapLifecycle(t *testing.T) {
	b := testBuffer(64, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)

	var status BufferMapAsyncStatus = -1
	if err := b.MapAsync(gputypes.MapModeRead, 0, 64, func(s BufferMapAsyncStatus) { status = s }); err != nil {
		t.Fatalf("MapAsync() = %v", err)
	}
	for !b.PollMapAsync() {
	}
	if status != BufferMapAsyncStatusSuccess {
		t.Fatalf("map status = %v, want Success", status)
	}

	data, err := b.GetMappedRange(0, 64)
	if err != nil {
		t.Fatalf("GetMappedRange() = %v", err)
	}
	if len(data) != 64 {
		t.Errorf("mapped range length = %d, want 64", len(data))
	}

	if err := b.Unmap(); err != nil {
		t.Fatalf("Unmap() = %v", err)
	}
	if _, err := b.GetMappedRange(0, 64); !errors.Is(err, ErrBufferNotMapped) {
		t.Errorf("GetMappedRange() after Unmap = %v, want ErrBufferNotMapped", err)
	}
}

func TestBufferMapUsageMismatch(t *testing.T) {
	b := testBuffer(64, gputypes.BufferUsageStorage)
	err := b.MapAsync(gputypes.MapModeRead, 0, 64, func(BufferMapAsyncStatus) {})
	if !errors.Is(err, ErrMapUsageMismatch) {
		t.Errorf("MapAsync() on non-mappable buffer = %v, want ErrMapUsageMismatch", err)
	}
}

func TestBufferMapRangeBounds(t *testing.T) {
	b := testBuffer(64, gputypes.BufferUsageMapRead)
	err := b.MapAsync(gputypes.MapModeRead, 32, 64, func(BufferMapAsyncStatus) {})
	if !errors.Is(err, ErrInvalidMapRange) {
		t.Errorf("MapAsync() past buffer end = %v, want ErrInvalidMapRange", err)
	}
}

func TestBufferDoubleMap(t *testing.T) {
	b := testBuffer(64, gputypes.BufferUsageMapRead)
	if err := b.MapAsync(gputypes.MapModeRead, 0, 64, func(BufferMapAsyncStatus) {}); err != nil {
		t.Fatalf("MapAsync() = %v", err)
	}
	err := b.MapAsync(gputypes.MapModeRead, 0, 64, func(BufferMapAsyncStatus) {})
	if !errors.Is(err, ErrBufferAlreadyMapped) {
		t.Errorf("second MapAsync() = %v, want ErrBufferAlreadyMapped", err)
	}
}

func TestBufferDestroyIdempotent(t *testing.T) {
	b := testBuffer(64, gputypes.BufferUsageMapRead)
	b.Destroy()
	b.Destroy()
	if err := b.Unmap(); !errors.Is(err, ErrBufferDestroyed) {
		t.Errorf("Unmap() after Destroy = %v, want ErrBufferDestroyed", err)
	}
	if b.Raw() != nil {
		t.Error("Raw() after Destroy should be nil")
	}
}

func TestBufferDestroyFailsPendingMap(t *testing.T) {
	b := testBuffer(64, gputypes.BufferUsageMapRead)
	var status BufferMapAsyncStatus = -1
	if err := b.MapAsync(gputypes.MapModeRead, 0, 64, func(s BufferMapAsyncStatus) { status = s }); err != nil {
		t.Fatalf("MapAsync() = %v", err)
	}
	b.Destroy()
	if status != BufferMapAsyncStatusDestroyedBeforeCallback {
		t.Errorf("pending map status after Destroy = %v, want DestroyedBeforeCallback", status)
	}
}

package shadertui

import "sync"

// ControlState is the consumer-to-producer control record: cursor position,
// pause state, and an optional pending shader reload. All fields sit behind
// one mutex; every method holds it only long enough to copy a few words, so
// neither loop can stall the other here.
//
// The reload payload is last-write-wins. Edits that land while an earlier
// reload is still unconsumed replace it, which is the behavior wanted during
// a rapid editing burst: only the newest source matters.
type ControlState struct {
	mu       sync.Mutex
	cursor   [2]int32
	paused   bool
	pausedAt float32
	reload   string
	pending  bool
}

// NewControlState returns a zeroed control record: cursor at origin,
// running, no pending reload.
func NewControlState() *ControlState {
	return &ControlState{}
}

// MoveCursor shifts the cursor by the given deltas. The position is not
// clamped; shaders receive whatever the user scrolled to.
func (c *ControlState) MoveCursor(dx, dy int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor[0] += dx
	c.cursor[1] += dy
}

// TogglePause flips the pause flag. When pausing, now becomes the frozen
// shader time; the producer keeps rendering with that value until resumed.
func (c *ControlState) TogglePause(now float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	if c.paused {
		c.pausedAt = now
	}
}

// Snapshot returns a consistent copy of the cursor and pause state.
func (c *ControlState) Snapshot() (cursor [2]int32, paused bool, pausedAt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor, c.paused, c.pausedAt
}

// RequestReload stores source as the pending shader program, replacing any
// reload the producer has not yet picked up.
func (c *ControlState) RequestReload(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reload = source
	c.pending = true
}

// ConsumeReload takes the pending reload, if any. The take clears the
// pending state atomically with the read, so each requested reload is
// observed at most once.
func (c *ControlState) ConsumeReload() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return "", false
	}
	src := c.reload
	c.reload = ""
	c.pending = false
	return src, true
}

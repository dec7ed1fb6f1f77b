// Package term presents frames as truecolor half-block cells in the
// terminal and polls raw-mode key input.
package term

// Cell is one terminal character cell, stored as the exact byte sequence
// that draws it (color escapes included).
type Cell struct {
	Content string
	Empty   bool
}

// Change is a cell that differs from the previously drawn frame.
type Change struct {
	X, Y    int
	Content string
}

// DoubleBuffer tracks the drawn screen and the frame being composed, so a
// redraw only touches cells that actually changed. With a mostly-static
// shader that cuts terminal writes to near zero.
type DoubleBuffer struct {
	width, height int
	current       []Cell // what is on screen
	next          []Cell // what the next frame wants
}

// NewDoubleBuffer returns a buffer of empty cells.
func NewDoubleBuffer(width, height int) *DoubleBuffer {
	b := &DoubleBuffer{
		width:   width,
		height:  height,
		current: make([]Cell, width*height),
		next:    make([]Cell, width*height),
	}
	for i := range b.current {
		b.current[i].Empty = true
		b.next[i].Empty = true
	}
	return b
}

// Size returns the buffer dimensions in cells.
func (b *DoubleBuffer) Size() (width, height int) {
	return b.width, b.height
}

// SetCell stages content at (x, y) for the next frame. Out-of-bounds
// coordinates are ignored.
func (b *DoubleBuffer) SetCell(x, y int, content string) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.next[y*b.width+x] = Cell{Content: content}
}

// SwapChanges promotes the staged frame to current and returns the cells
// that differ from what was on screen, in row-major order.
func (b *DoubleBuffer) SwapChanges() []Change {
	var changes []Change
	for y := range b.height {
		for x := range b.width {
			i := y*b.width + x
			if b.next[i] == b.current[i] {
				continue
			}
			b.current[i] = b.next[i]
			changes = append(changes, Change{X: x, Y: y, Content: b.next[i].Content})
		}
	}
	return changes
}

// Invalidate forgets the drawn screen so the next swap redraws everything.
// Used after an overlay trashed the display.
func (b *DoubleBuffer) Invalidate() {
	for i := range b.current {
		b.current[i] = Cell{Empty: true}
	}
}

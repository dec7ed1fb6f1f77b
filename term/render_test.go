package term

import (
	"strings"
	"testing"
)

func TestChannelClamps(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 127},
		{1, 255},
		{2.5, 255},
	}
	for _, tt := range tests {
		if got := channel(tt.in); got != tt.want {
			t.Errorf("channel(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSamplePixel(t *testing.T) {
	// A 2x2 RGBA frame: red, green / blue, white.
	data := []float32{
		1, 0, 0, 1, 0, 1, 0, 1,
		0, 0, 1, 1, 1, 1, 1, 1,
	}
	r, g, b := samplePixel(data, 2, 1, 0)
	if r != 0 || g != 255 || b != 0 {
		t.Errorf("samplePixel(1,0) = (%d,%d,%d), want green", r, g, b)
	}
	r, g, b = samplePixel(data, 2, 0, 1)
	if r != 0 || g != 0 || b != 255 {
		t.Errorf("samplePixel(0,1) = (%d,%d,%d), want blue", r, g, b)
	}
}

func TestSamplePixelOutOfRange(t *testing.T) {
	data := []float32{1, 1, 1, 1}
	// The bottom half of the last cell row can fall past a frame with an
	// odd pixel height; it must read as black, not panic.
	r, g, b := samplePixel(data, 1, 0, 1)
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("out-of-range sample = (%d,%d,%d), want black", r, g, b)
	}
}

func TestCellContent(t *testing.T) {
	got := cellContent(255, 0, 0, 0, 0, 255)
	if !strings.Contains(got, halfBlock) {
		t.Error("cell content missing the half-block glyph")
	}
	if !strings.HasPrefix(got, "\x1b[") {
		t.Error("cell content does not start with an escape sequence")
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Error("cell content does not reset attributes")
	}
}

func TestCellContentDistinguishesHalves(t *testing.T) {
	a := cellContent(255, 0, 0, 0, 0, 255)
	b := cellContent(0, 0, 255, 255, 0, 0)
	if a == b {
		t.Error("swapping top and bottom pixels produced identical cells")
	}
}

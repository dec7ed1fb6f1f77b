package term

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/gogpu/shadertui"
)

// halfBlock renders two pixels per cell: the foreground colors the upper
// half, the background the lower.
const halfBlock = "▀"

// Renderer draws frames into the terminal with truecolor half-block cells.
// It implements shadertui.Presenter. The GPU frame is expected to be twice
// as tall as the terminal in pixels; row r of cells shows pixel rows 2r
// and 2r+1.
type Renderer struct {
	w   *bufio.Writer
	out *termenv.Output
	buf *DoubleBuffer

	width, height int
	perf          bool

	shownError string
}

var _ shadertui.Presenter = (*Renderer)(nil)

// NewRenderer takes over the terminal: alternate screen, hidden cursor,
// cleared display. Close restores it.
func NewRenderer(width, height int, perf bool) *Renderer {
	w := bufio.NewWriter(os.Stdout)
	out := termenv.NewOutput(w)
	out.AltScreen()
	out.HideCursor()
	out.ClearScreen()
	w.Flush()
	return &Renderer{
		w:      w,
		out:    out,
		buf:    NewDoubleBuffer(width, height),
		width:  width,
		height: height,
		perf:   perf,
	}
}

// Present draws a frame, emitting only the cells that changed since the
// previous one.
func (r *Renderer) Present(frame shadertui.FrameSample, overlay shadertui.Overlay) error {
	r.compose(frame, overlay.Enabled)

	for _, ch := range r.buf.SwapChanges() {
		r.out.MoveCursor(ch.Y+1, ch.X+1)
		if _, err := r.out.WriteString(ch.Content); err != nil {
			return fmt.Errorf("term: write cell: %w", err)
		}
	}
	if overlay.Enabled {
		if err := r.drawOverlay(overlay); err != nil {
			return err
		}
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("term: flush: %w", err)
	}
	return nil
}

// compose stages every cell of the frame. When the perf overlay is on,
// row 0 is left to the overlay.
func (r *Renderer) compose(frame shadertui.FrameSample, perfRow bool) {
	gpuWidth := int(frame.Width)
	startRow := 0
	if perfRow {
		startRow = 1
	}
	for y := startRow; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			topR, topG, topB := samplePixel(frame.Data, gpuWidth, x, y*2)
			botR, botG, botB := samplePixel(frame.Data, gpuWidth, x, y*2+1)
			r.buf.SetCell(x, y, cellContent(topR, topG, topB, botR, botG, botB))
		}
	}
}

// samplePixel reads pixel (x, y) from RGBA float data and converts it to
// 8-bit channels. Out-of-range samples are black; shader outputs are
// clamped to [0, 1].
func samplePixel(data []float32, width, x, y int) (uint8, uint8, uint8) {
	idx := (y*width + x) * 4
	if idx < 0 || idx+2 >= len(data) {
		return 0, 0, 0
	}
	return channel(data[idx]), channel(data[idx+1]), channel(data[idx+2])
}

func channel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

// cellContent builds the escape sequence for one half-block cell.
func cellContent(topR, topG, topB, botR, botG, botB uint8) string {
	fg := termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", topR, topG, topB))
	bg := termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", botR, botG, botB))
	return fmt.Sprintf("%s%s;%sm%s%s%sm",
		termenv.CSI, fg.Sequence(false), bg.Sequence(true),
		halfBlock,
		termenv.CSI, termenv.ResetSeq)
}

// drawOverlay prints the perf line over row 0, padded to the full width so
// stale frame cells never peek through.
func (r *Renderer) drawOverlay(overlay shadertui.Overlay) error {
	line := overlay.String()
	if len(line) > r.width {
		line = line[:r.width]
	}
	r.out.MoveCursor(1, 1)
	_, err := fmt.Fprintf(r.w, "%s7m%-*s%s%sm",
		termenv.CSI, r.width, line, termenv.CSI, termenv.ResetSeq)
	if err != nil {
		return fmt.Errorf("term: write overlay: %w", err)
	}
	return nil
}

// ShowError replaces the display with an error overlay. Redraws happen
// only when the message changes, so a persistent failure does not flicker.
func (r *Renderer) ShowError(msg string) {
	if msg == r.shownError {
		return
	}
	r.shownError = msg

	r.out.ClearScreen()
	r.out.MoveCursor(1, 1)
	fmt.Fprintf(r.w, "%s31mShader error:%s%sm\r\n\r\n", termenv.CSI, termenv.CSI, termenv.ResetSeq)
	// Raw mode needs explicit carriage returns.
	fmt.Fprintf(r.w, "%s\r\n\r\n", strings.ReplaceAll(msg, "\n", "\r\n"))
	fmt.Fprintf(r.w, "%s2mFix the shader to resume, or press q to quit.%s%sm",
		termenv.CSI, termenv.CSI, termenv.ResetSeq)
	r.w.Flush()
}

// ClearError dismisses the overlay and forces the next Present to redraw
// the whole screen.
func (r *Renderer) ClearError() {
	if r.shownError == "" {
		return
	}
	r.shownError = ""
	r.out.ClearScreen()
	r.buf.Invalidate()
	r.w.Flush()
}

// Close hands the terminal back.
func (r *Renderer) Close() {
	r.out.ShowCursor()
	r.out.ExitAltScreen()
	r.w.Flush()
	shadertui.Logger().Debug("term: terminal restored")
}

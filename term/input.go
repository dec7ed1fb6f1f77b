package term

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/gogpu/shadertui"
)

// Input reads raw-mode stdin on a background goroutine and turns key
// presses into pipeline commands. It implements shadertui.InputSource.
type Input struct {
	keys    chan shadertui.Command
	restore func()
}

var _ shadertui.InputSource = (*Input)(nil)

// NewInput switches the terminal into raw mode and starts the reader.
// Close restores the previous mode.
func NewInput() (*Input, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("term: enter raw mode: %w", err)
	}
	in := &Input{
		keys:    make(chan shadertui.Command, 16),
		restore: func() { _ = term.Restore(fd, state) },
	}
	go in.read()
	return in, nil
}

// read pumps stdin into the command channel. It exits when stdin errors,
// which happens at process teardown; commands that arrive faster than the
// pipeline polls are dropped rather than queued stale.
func (in *Input) read() {
	buf := make([]byte, 16)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		for _, cmd := range parseKeys(buf[:n]) {
			select {
			case in.keys <- cmd:
			default:
			}
		}
	}
}

// parseKeys decodes raw input bytes: plain keys, Ctrl+C, and the CSI
// arrow sequences.
func parseKeys(b []byte) []shadertui.Command {
	var cmds []shadertui.Command
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case 'q', 'Q', 0x03: // Ctrl+C
			cmds = append(cmds, shadertui.CommandQuit)
		case ' ':
			cmds = append(cmds, shadertui.CommandTogglePause)
		case 0x1b:
			if i+2 < len(b) && b[i+1] == '[' {
				switch b[i+2] {
				case 'A':
					cmds = append(cmds, shadertui.CommandCursorUp)
				case 'B':
					cmds = append(cmds, shadertui.CommandCursorDown)
				case 'C':
					cmds = append(cmds, shadertui.CommandCursorRight)
				case 'D':
					cmds = append(cmds, shadertui.CommandCursorLeft)
				}
				i += 2
			}
		}
	}
	return cmds
}

// Poll returns the next buffered command, waiting at most timeout.
func (in *Input) Poll(timeout time.Duration) (shadertui.Command, bool) {
	select {
	case cmd := <-in.keys:
		return cmd, true
	case <-time.After(timeout):
		return shadertui.CommandNone, false
	}
}

// Close restores the terminal mode. The reader goroutine stays parked on
// stdin until the process exits.
func (in *Input) Close() {
	in.restore()
}

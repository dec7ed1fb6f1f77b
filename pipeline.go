package shadertui

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Command is one consumer-side input action.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandTogglePause
	CommandCursorUp
	CommandCursorDown
	CommandCursorLeft
	CommandCursorRight
)

// FrameInput carries the per-frame shader parameters the producer derives
// from wall time and the control state.
type FrameInput struct {
	// Time is the shader clock in seconds. Frozen while paused.
	Time float32
	// Delta is the wall time since the previous frame in seconds.
	Delta float32
	// Cursor is the user-steered cursor position in pixels.
	Cursor [2]int32
	// Frame counts rendered frames, starting at 1.
	Frame uint32
}

// Engine executes the current shader program. Implementations are owned by
// the producer goroutine; no method is called concurrently.
type Engine interface {
	// Reload swaps in a new complete shader program. On error the
	// previous program must keep running untouched.
	Reload(source string) error
	// Render produces one frame of RGBA float32 samples.
	Render(in FrameInput) ([]float32, error)
	// Close releases the engine's resources.
	Close()
}

// Presenter displays frames and error overlays. Owned by the consumer
// goroutine.
type Presenter interface {
	// Present draws a frame, with the perf overlay when enabled.
	// An error from Present is fatal to the pipeline.
	Present(frame FrameSample, overlay Overlay) error
	// ShowError replaces the display with a sticky error overlay.
	ShowError(msg string)
	// ClearError removes the overlay and forces a full redraw.
	ClearError()
	// Close restores the display.
	Close()
}

// InputSource delivers user commands. Poll blocks for at most timeout.
type InputSource interface {
	Poll(timeout time.Duration) (Command, bool)
}

// ChangeSource reports debounced shader file changes and maintains the
// watched file set. Owned by the consumer goroutine.
type ChangeSource interface {
	// Poll returns a changed path without blocking.
	Poll() (string, bool)
	// Reconcile replaces the watched set with the given files.
	Reconcile(files map[string]struct{})
}

// ReloadFunc rebuilds the complete shader program from the entry file and
// returns it together with every file the program depends on.
type ReloadFunc func() (source string, files map[string]struct{}, err error)

// Config wires a pipeline's collaborators together. Engine, Presenter,
// Input, Watcher, and Reload are required.
type Config struct {
	Engine    Engine
	Presenter Presenter
	Input     InputSource
	Watcher   ChangeSource
	Reload    ReloadFunc

	// Width is the pixel width the engine lays frames out at.
	Width uint32
	// RefreshInterval paces the consumer loop. Defaults to ~60 Hz.
	RefreshInterval time.Duration
	// Perf enables the performance overlay.
	Perf bool
}

const (
	defaultRefresh   = 16 * time.Millisecond
	deviceRetryDelay = 16 * time.Millisecond
	inputPollTimeout = time.Millisecond
)

// Pipeline runs the producer and consumer loops around the shared relay,
// control state, and event buses.
type Pipeline struct {
	cfg Config

	relay   *FrameRelay
	ctrl    *ControlState
	coord   *Bus // producer/consumer -> coordinator
	display *Bus // producer -> consumer

	engineRate  *Tracker
	presentRate *Tracker

	done  chan struct{}
	start time.Time
}

// New validates the configuration and builds a pipeline. The current
// module logger is propagated to the engine if it accepts one.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Engine == nil:
		return nil, errors.New("shadertui: Config.Engine is required")
	case cfg.Presenter == nil:
		return nil, errors.New("shadertui: Config.Presenter is required")
	case cfg.Input == nil:
		return nil, errors.New("shadertui: Config.Input is required")
	case cfg.Watcher == nil:
		return nil, errors.New("shadertui: Config.Watcher is required")
	case cfg.Reload == nil:
		return nil, errors.New("shadertui: Config.Reload is required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefresh
	}

	if ls, ok := cfg.Engine.(loggerSetter); ok {
		ls.SetLogger(Logger())
	}

	return &Pipeline{
		cfg:         cfg,
		relay:       NewFrameRelay(),
		ctrl:        NewControlState(),
		coord:       NewBus(),
		display:     NewBus(),
		engineRate:  NewTracker(),
		presentRate: NewTracker(),
		done:        make(chan struct{}),
	}, nil
}

// Run starts both loops and blocks until the pipeline shuts down: a quit
// command, a fatal presenter error, or a shutdown event from either loop.
// On return both loops have exited and the engine is closed. Closing the
// presenter is the consumer's job, so the terminal is restored even while
// the producer is still draining.
func (p *Pipeline) Run() error {
	p.start = time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.runProducer()
	}()
	go func() {
		defer wg.Done()
		p.runConsumer()
	}()

	var runErr error
loop:
	for ev := range p.coord.C() {
		switch ev.Kind {
		case EventShutdown:
			if ev.Message != "" {
				runErr = errors.New(ev.Message)
			}
			break loop
		case EventCompileError, EventDeviceError:
			// The consumer shows these; keep a record and carry on.
			Logger().Warn("shadertui: pipeline error", "kind", ev.Kind, "error", ev.Message)
		}
	}

	close(p.done)
	wg.Wait()
	p.cfg.Engine.Close()
	return runErr
}

// Drops reports how many rendered frames were never presented.
func (p *Pipeline) Drops() uint64 {
	return p.relay.Drops()
}

// sleep pauses for d or until shutdown, whichever comes first.
func (p *Pipeline) sleep(d time.Duration) {
	select {
	case <-p.done:
	case <-time.After(d):
	}
}

func (p *Pipeline) closing() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// runProducer is the render loop. It never exits on its own errors:
// compile and device failures become events and the loop keeps going.
func (p *Pipeline) runProducer() {
	var frame uint32
	last := time.Now()

	for !p.closing() {
		if src, ok := p.ctrl.ConsumeReload(); ok {
			if err := p.cfg.Engine.Reload(src); err != nil {
				ev := Event{Kind: EventCompileError, Message: err.Error()}
				p.coord.Publish(ev)
				p.display.Publish(ev)
				continue
			}
			p.display.Publish(Event{Kind: EventReloadOK})
		}

		now := time.Now()
		delta := float32(now.Sub(last).Seconds())
		last = now

		cursor, paused, pausedAt := p.ctrl.Snapshot()
		elapsed := float32(now.Sub(p.start).Seconds())
		if paused {
			elapsed = pausedAt
		}

		frame++
		data, err := p.cfg.Engine.Render(FrameInput{
			Time:   elapsed,
			Delta:  delta,
			Cursor: cursor,
			Frame:  frame,
		})
		if err != nil {
			ev := Event{Kind: EventDeviceError, Message: err.Error()}
			p.coord.Publish(ev)
			p.display.Publish(ev)
			// Give the device a moment before retrying.
			p.sleep(deviceRetryDelay)
			continue
		}

		p.relay.Write(FrameSample{Data: data, Width: p.cfg.Width, Seq: uint64(frame)})
		p.engineRate.Record()
		runtime.Gosched()
	}
}

// runConsumer is the display loop: file changes, events, input, then the
// freshest frame, at the configured refresh rate.
func (p *Pipeline) runConsumer() {
	defer p.cfg.Presenter.Close()

	errActive := false
	for !p.closing() {
		if path, ok := p.cfg.Watcher.Poll(); ok {
			Logger().Debug("shadertui: file changed", "path", path)
			if !p.requestReload() {
				errActive = true
			}
		}

	drain:
		for {
			select {
			case ev := <-p.display.C():
				switch ev.Kind {
				case EventCompileError, EventDeviceError:
					p.cfg.Presenter.ShowError(fmt.Sprintf("%s: %s", ev.Kind, ev.Message))
					errActive = true
				case EventReloadOK:
					p.cfg.Presenter.ClearError()
					errActive = false
				case EventShutdown:
					return
				}
			default:
				break drain
			}
		}

		if cmd, ok := p.cfg.Input.Poll(inputPollTimeout); ok {
			if p.apply(cmd) {
				p.coord.Publish(Event{Kind: EventShutdown})
				return
			}
		}

		// While an error overlay is up, the stale frame stays hidden
		// behind it; presenting resumes on the next successful reload.
		if !errActive {
			if s, ok := p.relay.Read(); ok {
				overlay := Overlay{
					Enabled:     p.cfg.Perf,
					EngineRate:  p.engineRate.Rate(),
					PresentRate: p.presentRate.Rate(),
					Drops:       p.relay.Drops(),
				}
				if err := p.cfg.Presenter.Present(s, overlay); err != nil {
					p.coord.Publish(Event{Kind: EventShutdown, Message: err.Error()})
					return
				}
				p.presentRate.Record()
			}
		}

		p.sleep(p.cfg.RefreshInterval)
	}
}

// requestReload rebuilds the program from disk and hands it to the
// producer. Resolution failures (missing import, cycle, unreadable entry)
// become an overlay and requestReload reports false; the running program
// is untouched.
func (p *Pipeline) requestReload() bool {
	source, files, err := p.cfg.Reload()
	if err != nil {
		Logger().Warn("shadertui: reload failed", "error", err)
		p.cfg.Presenter.ShowError(err.Error())
		return false
	}
	p.cfg.Watcher.Reconcile(files)
	p.ctrl.RequestReload(source)
	return true
}

// apply maps a command onto the control state and reports whether the
// pipeline should quit.
func (p *Pipeline) apply(cmd Command) bool {
	switch cmd {
	case CommandQuit:
		return true
	case CommandTogglePause:
		p.ctrl.TogglePause(float32(time.Since(p.start).Seconds()))
	case CommandCursorUp:
		p.ctrl.MoveCursor(0, -1)
	case CommandCursorDown:
		p.ctrl.MoveCursor(0, 1)
	case CommandCursorLeft:
		p.ctrl.MoveCursor(-1, 0)
	case CommandCursorRight:
		p.ctrl.MoveCursor(1, 0)
	}
	return false
}

// Overlay is the perf line the presenter draws over row zero.
type Overlay struct {
	Enabled     bool
	EngineRate  float32
	PresentRate float32
	Drops       uint64
}

// String formats the overlay the way the terminal presenter prints it.
func (o Overlay) String() string {
	return fmt.Sprintf("GPU: %.1f FPS | Term: %.1f FPS | Dropped: %d",
		o.EngineRate, o.PresentRate, o.Drops)
}

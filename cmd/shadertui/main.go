// Command shadertui live-previews a WGSL shader in the terminal.
//
// The shader file must define
//
//	fn compute_color(coords: vec2<f32>) -> vec3<f32>
//
// and may pull in helper files with lines of the form
//
//	// @import "path/to/helper.wgsl"
//
// Every file the shader depends on is watched; saving any of them reloads
// the program without restarting. Arrow keys move the cursor uniform,
// space freezes time, q quits.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/gogpu/shadertui"
	"github.com/gogpu/shadertui/internal/gpu"
	"github.com/gogpu/shadertui/shader"
	terminal "github.com/gogpu/shadertui/term"
	"github.com/gogpu/shadertui/watch"
)

func main() {
	var (
		perf   = flag.Bool("perf", false, "show the performance overlay (FPS and dropped frames)")
		maxFPS = flag.Int("max-fps", 60, "cap the terminal refresh rate")
		debug  = flag.Bool("debug", false, "write debug logs to shadertui.log")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	if *debug {
		f, err := os.Create("shadertui.log")
		if err != nil {
			fmt.Fprintf(os.Stderr, "shadertui: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		shadertui.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(flag.Arg(0), *perf, *maxFPS); err != nil {
		fmt.Fprintf(os.Stderr, "shadertui: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: shadertui [flags] <shader.wgsl>

Live-preview a WGSL shader in the terminal. The shader must define

    fn compute_color(coords: vec2<f32>) -> vec3<f32>

and may import helpers with lines like: // @import "lib/noise.wgsl"

Keys: arrow keys move the cursor uniform, space pauses time, q quits.

Flags:
`)
	flag.PrintDefaults()
}

// loadProgram reads the entry shader, expands its imports, and injects the
// result into the terminal shell. It returns the complete program and the
// set of files it was built from.
func loadProgram(entry string) (string, map[string]struct{}, error) {
	raw, err := os.ReadFile(entry)
	if err != nil {
		return "", nil, fmt.Errorf("read shader %s: %w", entry, err)
	}
	flat, deps, err := shader.Resolve(entry, string(raw))
	if err != nil {
		return "", nil, err
	}
	program, err := shader.Inject(flat, shader.ShellTerminal)
	if err != nil {
		return "", nil, err
	}
	return program, deps.Files, nil
}

func run(entry string, perf bool, maxFPS int) error {
	program, files, err := loadProgram(entry)
	if err != nil {
		return err
	}
	if err := shader.Validate(program); err != nil {
		return err
	}

	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}
	// Half-block cells pack two pixels per terminal row.
	gpuWidth, gpuHeight := uint32(cols), uint32(rows)*2

	dev, err := gpu.NewDevice()
	if err != nil {
		return err
	}
	defer dev.Destroy()

	engine, err := gpu.NewRenderer(dev, gpuWidth, gpuHeight, program)
	if err != nil {
		return err
	}

	watcher, err := watch.New(entry)
	if err != nil {
		engine.Close()
		return err
	}
	defer watcher.Close()
	watcher.Reconcile(files)

	input, err := terminal.NewInput()
	if err != nil {
		engine.Close()
		return err
	}
	defer input.Close()

	refresh := time.Second / 60
	if maxFPS > 0 {
		refresh = time.Second / time.Duration(maxFPS)
	}

	pipe, err := shadertui.New(shadertui.Config{
		Engine:    engine,
		Presenter: terminal.NewRenderer(cols, rows, perf),
		Input:     input,
		Watcher:   watcher,
		Reload: func() (string, map[string]struct{}, error) {
			return loadProgram(entry)
		},
		Width:           gpuWidth,
		RefreshInterval: refresh,
		Perf:            perf,
	})
	if err != nil {
		engine.Close()
		return err
	}
	return pipe.Run()
}

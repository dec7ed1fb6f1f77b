package shader

import (
	_ "embed"
	"errors"
	"strings"
)

// Shell templates wrap the user's shader with the bindings and entry point
// the engine expects, so user files stay focused on one color function.

//go:embed shells/terminal.wgsl
var terminalShell string

//go:embed shells/window.wgsl
var windowShell string

// injectionMarker is the line in a shell template that the user program
// replaces.
const injectionMarker = "// USER_SHADER_INJECTION_POINT"

// computeColorSignature is the function every user shader must define.
const computeColorSignature = "fn compute_color(coords: vec2<f32>) -> vec3<f32>"

// ShellKind selects the output flavor of the shell template.
type ShellKind int

const (
	// ShellTerminal writes pixels into a storage buffer for readback.
	ShellTerminal ShellKind = iota
	// ShellWindow writes pixels into a storage texture for presentation
	// to a surface.
	ShellWindow
)

var (
	// ErrMissingComputeColor means the user shader does not define the
	// required entry function.
	ErrMissingComputeColor = errors.New(
		"shader: user shader must define 'fn compute_color(coords: vec2<f32>) -> vec3<f32>'")
	// ErrMissingMarker means a shell template has no injection point.
	ErrMissingMarker = errors.New("shader: shell template is missing the injection marker")
)

// Inject splices the user program into the shell template for kind and
// returns the complete WGSL source. The user program must define
// compute_color with the documented signature.
func Inject(userSource string, kind ShellKind) (string, error) {
	if !strings.Contains(userSource, computeColorSignature) {
		return "", ErrMissingComputeColor
	}
	shell := terminalShell
	if kind == ShellWindow {
		shell = windowShell
	}
	if !strings.Contains(shell, injectionMarker) {
		return "", ErrMissingMarker
	}
	return strings.Replace(shell, injectionMarker, userSource, 1), nil
}

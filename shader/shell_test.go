package shader

import (
	"errors"
	"strings"
	"testing"
)

const userShader = `fn compute_color(coords: vec2<f32>) -> vec3<f32> {
    return vec3<f32>(0.2, 0.4, 0.8);
}`

func TestInjectTerminal(t *testing.T) {
	program, err := Inject(userShader, ShellTerminal)
	if err != nil {
		t.Fatalf("Inject() = %v", err)
	}
	if !strings.Contains(program, "fn compute_color") {
		t.Error("injected program does not contain the user shader")
	}
	if strings.Contains(program, injectionMarker) {
		t.Error("injection marker survived in the output")
	}
	if !strings.Contains(program, "var<storage, read_write> output") {
		t.Error("terminal shell output binding missing")
	}
	if !strings.Contains(program, "@workgroup_size(8, 8)") {
		t.Error("terminal shell workgroup size missing")
	}
}

func TestInjectWindow(t *testing.T) {
	program, err := Inject(userShader, ShellWindow)
	if err != nil {
		t.Fatalf("Inject() = %v", err)
	}
	if !strings.Contains(program, "texture_storage_2d") {
		t.Error("window shell storage texture binding missing")
	}
	if !strings.Contains(program, "fn compute_color") {
		t.Error("injected program does not contain the user shader")
	}
}

func TestInjectRequiresComputeColor(t *testing.T) {
	_, err := Inject("fn something_else() {}", ShellTerminal)
	if !errors.Is(err, ErrMissingComputeColor) {
		t.Errorf("Inject() = %v, want ErrMissingComputeColor", err)
	}
}

func TestShellsCarryUniforms(t *testing.T) {
	for _, shell := range []string{terminalShell, windowShell} {
		for _, field := range []string{"resolution", "time", "delta_time", "cursor", "frame"} {
			if !strings.Contains(shell, field) {
				t.Errorf("shell missing uniform field %q", field)
			}
		}
	}
}

func TestInjectedProgramValidates(t *testing.T) {
	program, err := Inject(userShader, ShellTerminal)
	if err != nil {
		t.Fatalf("Inject() = %v", err)
	}
	if err := Validate(program); err != nil {
		t.Errorf("Validate() = %v for a well-formed program", err)
	}
}

func TestValidateRejectsBrokenProgram(t *testing.T) {
	program, err := Inject(userShader, ShellTerminal)
	if err != nil {
		t.Fatalf("Inject() = %v", err)
	}
	broken := strings.Replace(program, "return vec3<f32>", "return vec4<f32>", 1)
	if err := Validate(broken); err == nil {
		t.Error("Validate() accepted a shader returning the wrong type")
	}
}

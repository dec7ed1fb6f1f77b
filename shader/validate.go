package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate parses and validates a complete WGSL program. The program must
// already be shell-injected; user fragments on their own lack the bindings
// and entry point and will not validate.
//
// Compilation output is discarded: the engine compiles through its own HAL
// shader module, this pass exists to reject broken programs before the
// running pipeline is touched.
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("shader: %w", err)
	}
	return nil
}

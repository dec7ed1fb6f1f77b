// Package shadertui implements the hot-reload pipeline behind the shadertui
// command: a live WGSL shader previewer that executes a compute shader
// continuously on the GPU and presents each frame as truecolor half-block
// cells in the terminal, recompiling the shader whenever its source or any
// imported file changes on disk.
//
// # Architecture
//
// The pipeline runs two long-lived goroutines plus a coordinator:
//
//   - The producer owns the GPU engine. Each iteration it consumes a pending
//     shader reload (if any), renders one frame, and publishes it through a
//     FrameRelay.
//   - The consumer owns the terminal. It watches shader files, forwards key
//     input to the shared ControlState, reads the freshest frame from the
//     relay, and presents it.
//   - Run wires both loops to a Bus of Events and blocks until shutdown.
//
// The producer and consumer never block on each other: the relay overwrites
// unread frames (counting drops) and the control state is a small
// mutex-guarded record. GPU, terminal, and file-watching concerns live in
// the internal/gpu, term, and watch packages; this package defines the
// Engine, Presenter, and InputSource seams they plug into.
//
// # Logging
//
// By default shadertui produces no log output. Call SetLogger to enable
// structured logging for the whole module.
package shadertui

package gpu

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadertui"
	"github.com/gogpu/shadertui/shader"
)

// fenceTimeout bounds the per-frame wait on GPU completion.
const fenceTimeout = 5 * time.Second

// workgroupDim matches @workgroup_size(8, 8) in the shader shells.
const workgroupDim = 8

// Renderer executes the current shader program one frame at a time and
// reads the pixels back to the CPU. It implements shadertui.Engine and is
// driven from a single goroutine.
type Renderer struct {
	dev *Device

	pipeline *Pipeline
	output   hal.Buffer
	uniforms hal.Buffer
	staging  *Buffer

	width, height uint32
	outputSize    uint64
}

var _ shadertui.Engine = (*Renderer)(nil)

// NewRenderer builds a renderer for a fixed resolution. source must be a
// complete, shell-injected program; validate it first.
func NewRenderer(dev *Device, width, height uint32, source string) (*Renderer, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("gpu: invalid resolution %dx%d", width, height)
	}
	r := &Renderer{
		dev:    dev,
		width:  width,
		height: height,
		// One vec4<f32> per pixel.
		outputSize: uint64(width) * uint64(height) * 16,
	}

	pipeline, err := NewPipeline(dev.device, source)
	if err != nil {
		return nil, err
	}
	r.pipeline = pipeline

	output, err := dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "shadertui_output",
		Size:  r.outputSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("gpu: create output buffer: %w", err)
	}
	r.output = output

	uniforms, err := dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "shadertui_uniforms",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("gpu: create uniform buffer: %w", err)
	}
	r.uniforms = uniforms

	staging, err := CreateReadbackBuffer(dev.device, r.outputSize, "shadertui_readback")
	if err != nil {
		r.Close()
		return nil, err
	}
	r.staging = staging

	slogger().Debug("gpu: renderer ready", "width", width, "height", height)
	return r, nil
}

// SetLogger receives the module logger when shadertui.SetLogger propagates.
func (r *Renderer) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Size returns the render resolution in pixels.
func (r *Renderer) Size() (width, height uint32) {
	return r.width, r.height
}

// Reload validates the new program and swaps the compute pipeline. On any
// failure the previous pipeline keeps running untouched.
func (r *Renderer) Reload(source string) error {
	if err := shader.Validate(source); err != nil {
		return err
	}
	pipeline, err := NewPipeline(r.dev.device, source)
	if err != nil {
		return err
	}
	old := r.pipeline
	r.pipeline = pipeline
	if old != nil {
		old.Destroy()
	}
	slogger().Debug("gpu: pipeline swapped", "source_bytes", len(source))
	return nil
}

// Render runs one compute dispatch and blocks until the frame has been
// read back. The fence wait is the render loop's only suspension point.
func (r *Renderer) Render(in shadertui.FrameInput) ([]float32, error) {
	u := Uniforms{
		Width:     r.width,
		Height:    r.height,
		Time:      in.Time,
		DeltaTime: in.Delta,
		CursorX:   in.Cursor[0],
		CursorY:   in.Cursor[1],
		Frame:     in.Frame,
	}
	r.dev.queue.WriteBuffer(r.uniforms, 0, u.toBytes())

	// Offset 0 / size 0 binds each buffer in its entirety.
	bindGroup, err := r.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "shadertui_bind_group",
		Layout: r.pipeline.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: r.output.NativeHandle()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: r.uniforms.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer r.dev.device.DestroyBindGroup(bindGroup)

	encoder, err := r.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "shadertui_frame",
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("shadertui_frame"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "shadertui_compute"})
	pass.SetPipeline(r.pipeline.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(
		(r.width+workgroupDim-1)/workgroupDim,
		(r.height+workgroupDim-1)/workgroupDim,
		1,
	)
	pass.End()

	encoder.CopyBufferToBuffer(r.output, r.staging.Raw(), []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: r.outputSize},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer r.dev.device.FreeCommandBuffer(cmdBuf)

	submission, err := r.dev.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}
	deadline := time.Now().Add(fenceTimeout)
	for r.dev.queue.PollCompleted() < submission {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("gpu: frame timed out after %v", fenceTimeout)
		}
	}

	return r.readback()
}

// readback maps the staging buffer and decodes the frame into float32
// samples.
func (r *Renderer) readback() ([]float32, error) {
	var status BufferMapAsyncStatus
	err := r.staging.MapAsync(gputypes.MapModeRead, 0, r.outputSize, func(s BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: map readback buffer: %w", err)
	}
	for !r.staging.PollMapAsync() {
	}
	if status != BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("gpu: map readback buffer: %s", status)
	}

	raw, err := r.staging.GetMappedRange(0, r.outputSize)
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	if err := r.staging.Unmap(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Close releases the renderer's GPU resources. The device is the caller's
// to destroy.
func (r *Renderer) Close() {
	if r.staging != nil {
		r.staging.Destroy()
		r.staging = nil
	}
	if r.uniforms != nil {
		r.dev.device.DestroyBuffer(r.uniforms)
		r.uniforms = nil
	}
	if r.output != nil {
		r.dev.device.DestroyBuffer(r.output)
		r.output = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
}

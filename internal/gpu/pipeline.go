package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline is one compiled compute pipeline with the fixed binding layout
// the shader shells declare: binding 0 the output storage buffer, binding 1
// the uniforms.
type Pipeline struct {
	device hal.Device

	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline
}

// NewPipeline compiles a complete WGSL program into a compute pipeline.
// Partial resources are released on failure.
func NewPipeline(device hal.Device, source string) (*Pipeline, error) {
	p := &Pipeline{device: device}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "shadertui_shader",
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create shader module: %w", err)
	}
	p.module = module

	bgLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "shadertui_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	p.bgLayout = bgLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "shadertui_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	p.layout = layout

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "shadertui_pipeline",
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("gpu: create compute pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// Destroy releases the pipeline's resources in reverse creation order.
func (p *Pipeline) Destroy() {
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.bgLayout != nil {
		p.device.DestroyBindGroupLayout(p.bgLayout)
		p.bgLayout = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

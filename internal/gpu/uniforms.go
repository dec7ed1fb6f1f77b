package gpu

import (
	"encoding/binary"
	"math"
)

// Uniforms mirrors the Uniforms struct declared by the shader shells:
//
//	struct Uniforms {
//	    resolution: vec2<f32>,
//	    time: f32,
//	    delta_time: f32,
//	    cursor: vec2<i32>,
//	    frame: u32,
//	    _pad: u32,
//	};
//
// Eight 4-byte fields, 32 bytes total, 16-byte aligned.
type Uniforms struct {
	Width     uint32
	Height    uint32
	Time      float32
	DeltaTime float32
	CursorX   int32
	CursorY   int32
	Frame     uint32
}

// uniformSize is the serialized size in bytes.
const uniformSize = 32

// toBytes serializes the uniforms little-endian in shell declaration order.
// Resolution is carried as f32 so shaders can divide by it directly.
func (u Uniforms) toBytes() []byte {
	buf := make([]byte, uniformSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], math.Float32bits(float32(u.Width)))
	le.PutUint32(buf[4:8], math.Float32bits(float32(u.Height)))
	le.PutUint32(buf[8:12], math.Float32bits(u.Time))
	le.PutUint32(buf[12:16], math.Float32bits(u.DeltaTime))
	le.PutUint32(buf[16:20], uint32(u.CursorX))
	le.PutUint32(buf[20:24], uint32(u.CursorY))
	le.PutUint32(buf[24:28], u.Frame)
	// buf[28:32] stays zero: _pad.
	return buf
}

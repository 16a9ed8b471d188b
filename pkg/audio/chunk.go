package audio

import (
	"encoding/binary"
	"math"
)

// Chunk is one cadence worth of captured samples. Per the channel mode one
// or both sides are populated; ownership transfers to the receiver on send.
type Chunk struct {
	Mic     []float32
	Speaker []float32
}

// Interleave merges the chunk into the wire layout: two interleaved channels
// when both sides are present, the populated side verbatim otherwise.
func (c Chunk) Interleave() []float32 {
	switch {
	case c.Mic != nil && c.Speaker != nil:
		n := len(c.Mic)
		if len(c.Speaker) < n {
			n = len(c.Speaker)
		}
		out := make([]float32, 0, 2*n)
		for i := 0; i < n; i++ {
			out = append(out, c.Mic[i], c.Speaker[i])
		}
		return out
	case c.Mic != nil:
		return c.Mic
	default:
		return c.Speaker
	}
}

// MixMono folds the chunk down to one channel by averaging where both sides
// are present.
func (c Chunk) MixMono() []float32 {
	if c.Mic == nil || c.Speaker == nil {
		if c.Mic != nil {
			return c.Mic
		}
		return c.Speaker
	}
	n := len(c.Mic)
	if len(c.Speaker) < n {
		n = len(c.Speaker)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = (c.Mic[i] + c.Speaker[i]) / 2
	}
	return out
}

// EncodePCM16 converts float samples to little-endian signed 16-bit, the
// encoding every live backend here accepts. Values outside [-1, 1] clamp.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(v*32767))))
	}
	return out
}

// Silence returns n zero samples.
func Silence(n int) []float32 {
	return make([]float32, n)
}

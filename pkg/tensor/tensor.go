// Package tensor provides a flat float32 tensor used throughout the
// diffusion pipeline. Data is stored contiguously in row-major order with
// the batch dimension first.
package tensor

import "fmt"

// Tensor is a wrapper around a slice of float32 values and a list of dimensions.
type Tensor struct {
	Data []float32
	Dims []int
}

// New creates a zero-filled tensor with the given dimensions.
func New(dims ...int) *Tensor {
	s := 1
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension %d", d))
		}
		s *= d
	}
	return &Tensor{
		Data: make([]float32, s),
		Dims: append([]int(nil), dims...),
	}
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Batch returns the leading dimension.
func (t *Tensor) Batch() int {
	return t.Dims[0]
}

// LaneLen returns the number of elements per batch lane.
func (t *Tensor) LaneLen() int {
	return len(t.Data) / t.Dims[0]
}

// Lane returns the slice backing batch lane i.
func (t *Tensor) Lane(i int) []float32 {
	n := t.LaneLen()
	return t.Data[i*n : (i+1)*n]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.Dims...)
	copy(c.Data, t.Data)
	return c
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Dims) != len(o.Dims) {
		return false
	}
	for i, d := range t.Dims {
		if o.Dims[i] != d {
			return false
		}
	}
	return true
}

// ByteTensor holds quantized unsigned 8-bit pixel data with the same
// layout conventions as Tensor.
type ByteTensor struct {
	Data []uint8
	Dims []int
}

// Quantize clamps values to [-1, 1], rescales to [0, 1] and quantizes
// to unsigned 8-bit pixels in [0, 255].
func (t *Tensor) Quantize() *ByteTensor {
	out := &ByteTensor{
		Data: make([]uint8, len(t.Data)),
		Dims: append([]int(nil), t.Dims...),
	}
	for i, v := range t.Data {
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		out.Data[i] = uint8((v + 1) / 2 * 255)
	}
	return out
}

package diffusion

import (
	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

// Source is an explicit randomness source. Every operation that consumes
// entropy takes one; there is no package-level RNG. *math/rand.Rand
// satisfies it.
type Source interface {
	// NormFloat64 returns a standard-normal value.
	NormFloat64() float64
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// randn draws a tensor of independent standard-normal values.
func randn(rng Source, dims ...int) *tensor.Tensor {
	t := tensor.New(dims...)
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64())
	}
	return t
}

package diffusion

import (
	"fmt"
	"math"
	"sync"

	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

// Noise corrupts a batch of clean samples x0 to their respective
// timesteps t using the reparameterization trick:
//
//	x_t = sqrt(alphaHat[t]) * x0 + sqrt(1-alphaHat[t]) * eps
//
// It returns both the noised batch and the exact standard-normal noise
// drawn, the latter being the training target. Each call draws fresh
// randomness; no state is retained.
func (s *Schedule) Noise(x0 *tensor.Tensor, t []int, rng Source) (*tensor.Tensor, *tensor.Tensor, error) {
	if len(t) != x0.Batch() {
		return nil, nil, fmt.Errorf("%w: %d timesteps for batch of %d", ErrConfig, len(t), x0.Batch())
	}
	if err := s.checkTimesteps(t); err != nil {
		return nil, nil, err
	}

	eps := randn(rng, x0.Dims...)
	xt := tensor.New(x0.Dims...)

	// Batch lanes are independent; the two scalar coefficients broadcast
	// across all non-batch dimensions.
	var wg sync.WaitGroup
	for i := 0; i < x0.Batch(); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			signal := float32(math.Sqrt(s.alphaHat[t[i]]))
			noise := float32(math.Sqrt(1 - s.alphaHat[t[i]]))
			x0Lane, epsLane, xtLane := x0.Lane(i), eps.Lane(i), xt.Lane(i)
			for j := range xtLane {
				xtLane[j] = signal*x0Lane[j] + noise*epsLane[j]
			}
		}(i)
	}
	wg.Wait()
	return xt, eps, nil
}

// SampleTimesteps draws n training timesteps independently and uniformly
// from the inclusive range [1, T-1]. Timestep 0 is never produced.
func (s *Schedule) SampleTimesteps(n int, rng Source) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", ErrConfig, n)
	}
	if len(s.beta) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 noise steps to sample training timesteps", ErrConfig)
	}
	ts := make([]int, n)
	for i := range ts {
		ts[i] = 1 + rng.Intn(len(s.beta)-1)
	}
	return ts, nil
}

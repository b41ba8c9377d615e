package diffusion

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

// Mode is the predictor's execution mode.
type Mode int

const (
	// Trainable tracks whatever state the predictor needs for updates.
	Trainable Mode = iota
	// Inference disables gradient bookkeeping.
	Inference
)

// Predictor is the external noise-predicting capability driving the
// reverse process. Predict estimates the noise component present in x at
// the given per-sample timesteps. SetMode switches the execution mode
// and returns the previous one, so callers can scope the switch.
type Predictor interface {
	Predict(x *tensor.Tensor, t []int) (*tensor.Tensor, error)
	SetMode(m Mode) Mode
}

// Sampler runs the sequential denoising loop that turns pure noise into
// samples. The schedule is shared read-only; a Sampler is safe for
// concurrent use.
type Sampler struct {
	Schedule *Schedule
	Channels int
	ImgSize  int

	// SuppressNoiseForSingletonBatch disables injected noise at every
	// step when the batch size is exactly 1, instead of only at the
	// final step. This couples batch size to the noise policy and is
	// kept as an explicit switch.
	SuppressNoiseForSingletonBatch bool
}

// NewSampler returns a Sampler over the given schedule producing
// channels x imgSize x imgSize samples.
func NewSampler(s *Schedule, channels, imgSize int) (*Sampler, error) {
	if channels <= 0 || imgSize <= 0 {
		return nil, fmt.Errorf("%w: channels %d and image size %d must be positive", ErrConfig, channels, imgSize)
	}
	return &Sampler{
		Schedule:                       s,
		Channels:                       channels,
		ImgSize:                        imgSize,
		SuppressNoiseForSingletonBatch: true,
	}, nil
}

// Generate synthesizes n samples by running the reverse process from
// timestep T-1 down to 1. Each iteration queries the predictor with the
// current x and applies the posterior mean update
//
//	x = 1/sqrt(alpha[t]) * (x - (1-alpha[t])/sqrt(1-alphaHat[t]) * epsHat) + sqrt(beta[t]) * z
//
// The predictor is placed into inference mode for the duration of the
// loop and restored to its prior mode on every exit path, including
// predictor failure and context cancellation. Steps are strictly
// sequential; only the lanes within a step run in parallel.
//
// The result is quantized to unsigned 8-bit pixels in [0, 255].
func (g *Sampler) Generate(ctx context.Context, p Predictor, n int, rng Source) (*tensor.ByteTensor, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", ErrConfig, n)
	}

	x := randn(rng, n, g.Channels, g.ImgSize, g.ImgSize)
	injectNoise := n > 1 || !g.SuppressNoiseForSingletonBatch

	prev := p.SetMode(Inference)
	defer p.SetMode(prev)

	tBatch := make([]int, n)
	z := make([]float32, x.Len())
	for t := g.Schedule.Steps() - 1; t >= 1; t-- {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("diffusion: generation cancelled at step %d: %w", t, ctx.Err())
		default:
		}

		for i := range tBatch {
			tBatch[i] = t
		}
		epsHat, err := p.Predict(x, tBatch)
		if err != nil {
			return nil, fmt.Errorf("%w: predictor at step %d: %v", ErrComputation, t, err)
		}
		if !epsHat.SameShape(x) {
			return nil, fmt.Errorf("%w: predictor returned shape %v, want %v", ErrComputation, epsHat.Dims, x.Dims)
		}

		// Noise is drawn sequentially so a seeded Source reproduces the
		// exact trajectory regardless of lane scheduling.
		if injectNoise {
			for i := range z {
				z[i] = float32(rng.NormFloat64())
			}
		}

		g.step(x, epsHat, z, t)
	}

	return x.Quantize(), nil
}

// step applies one denoising update in place across all batch lanes.
func (g *Sampler) step(x, epsHat *tensor.Tensor, z []float32, t int) {
	invSqrtAlpha := float32(1 / math.Sqrt(g.Schedule.alpha[t]))
	epsCoef := float32((1 - g.Schedule.alpha[t]) / math.Sqrt(1-g.Schedule.alphaHat[t]))
	sqrtBeta := float32(math.Sqrt(g.Schedule.beta[t]))

	lane := x.LaneLen()
	var wg sync.WaitGroup
	for i := 0; i < x.Batch(); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			xLane, epsLane, zLane := x.Lane(i), epsHat.Lane(i), z[i*lane:(i+1)*lane]
			for j := range xLane {
				xLane[j] = invSqrtAlpha*(xLane[j]-epsCoef*epsLane[j]) + sqrtBeta*zLane[j]
			}
		}(i)
	}
	wg.Wait()
}

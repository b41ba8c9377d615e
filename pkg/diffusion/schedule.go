// Package diffusion implements the core of a Denoising Diffusion
// Probabilistic Model: a fixed linear noise schedule, the forward
// (noising) process, training timestep sampling, and the sequential
// reverse (denoising) sampler driven by an external noise predictor.
package diffusion

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Schedule holds the precomputed per-timestep variance parameters.
// It is immutable after construction and safe to share across any
// number of concurrent forward and reverse invocations.
type Schedule struct {
	beta     []float64
	alpha    []float64
	alphaHat []float64
}

// NewSchedule builds a linear beta schedule over [betaStart, betaEnd]
// with the given number of noise steps, together with alpha = 1-beta and
// the cumulative signal retention alphaHat[t] = prod(alpha[0..t]).
// The cumulative product is carried in float64 so alphaHat stays exact
// down to the denormal range even for very large step counts.
func NewSchedule(steps int, betaStart, betaEnd float64) (*Schedule, error) {
	switch {
	case steps <= 0:
		return nil, fmt.Errorf("%w: noise steps must be positive, got %d", ErrConfig, steps)
	case betaStart <= 0:
		return nil, fmt.Errorf("%w: beta start must lie in (0,1), got %g", ErrConfig, betaStart)
	case betaEnd <= betaStart:
		return nil, fmt.Errorf("%w: beta end %g must exceed beta start %g", ErrConfig, betaEnd, betaStart)
	case betaEnd >= 1:
		return nil, fmt.Errorf("%w: beta end must lie in (0,1), got %g", ErrConfig, betaEnd)
	}

	beta := make([]float64, steps)
	if steps == 1 {
		beta[0] = betaStart
	} else {
		floats.Span(beta, betaStart, betaEnd)
	}

	alpha := make([]float64, steps)
	for i, b := range beta {
		alpha[i] = 1 - b
	}
	alphaHat := make([]float64, steps)
	floats.CumProd(alphaHat, alpha)

	return &Schedule{beta: beta, alpha: alpha, alphaHat: alphaHat}, nil
}

// Steps returns the number of noise steps T.
func (s *Schedule) Steps() int {
	return len(s.beta)
}

// Beta returns the per-step variance at timestep t.
func (s *Schedule) Beta(t int) float64 {
	return s.beta[t]
}

// Alpha returns 1 - Beta(t).
func (s *Schedule) Alpha(t int) float64 {
	return s.alpha[t]
}

// AlphaHat returns the cumulative signal retention at timestep t.
func (s *Schedule) AlphaHat(t int) float64 {
	return s.alphaHat[t]
}

// checkTimesteps validates that every timestep lies in [0, T).
func (s *Schedule) checkTimesteps(ts []int) error {
	for i, t := range ts {
		if t < 0 || t >= len(s.beta) {
			return fmt.Errorf("%w: t[%d]=%d with %d noise steps", ErrTimestepRange, i, t, len(s.beta))
		}
	}
	return nil
}

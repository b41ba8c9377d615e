package diffusion

import "errors"

var (
	// ErrConfig indicates invalid schedule or sampler parameters.
	ErrConfig = errors.New("diffusion: invalid configuration")
	// ErrTimestepRange indicates a timestep outside [0, noise steps).
	ErrTimestepRange = errors.New("diffusion: timestep out of range")
	// ErrComputation wraps a failure raised by the predictor or the
	// random source during a generation call.
	ErrComputation = errors.New("diffusion: computation failed")
)

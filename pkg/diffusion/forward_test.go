package diffusion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

func TestNoiseMomentsMatchClosedForm(t *testing.T) {
	const (
		timestep = 300
		draws    = 4000
	)
	s, err := NewSchedule(1000, 1e-4, 0.02)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))

	x0 := tensor.New(1, 1, 4, 4)
	for i := range x0.Data {
		x0.Data[i] = 0.5
	}

	// Pool every element over many draws; all lanes share the same x0
	// value so they come from one distribution.
	values := make([]float64, 0, draws*x0.Len())
	for d := 0; d < draws; d++ {
		xt, eps, err := s.Noise(x0, []int{timestep}, rng)
		require.NoError(t, err)
		require.True(t, eps.SameShape(x0))
		for _, v := range xt.Data {
			values = append(values, float64(v))
		}
	}

	wantMean := math.Sqrt(s.AlphaHat(timestep)) * 0.5
	wantVar := 1 - s.AlphaHat(timestep)
	mean, variance := stat.MeanVariance(values, nil)
	assert.InDelta(t, wantMean, mean, 0.01)
	assert.InDelta(t, wantVar, variance, 0.02)
}

func TestNoiseReparameterization(t *testing.T) {
	s, err := NewSchedule(100, 1e-3, 0.1)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))

	x0 := randn(rng, 3, 2, 4, 4)
	ts := []int{0, 50, 99}
	xt, eps, err := s.Noise(x0, ts, rng)
	require.NoError(t, err)

	// xt must equal the closed-form combination of x0 and the returned noise.
	for i := 0; i < x0.Batch(); i++ {
		signal := float32(math.Sqrt(s.AlphaHat(ts[i])))
		noise := float32(math.Sqrt(1 - s.AlphaHat(ts[i])))
		x0Lane, epsLane, xtLane := x0.Lane(i), eps.Lane(i), xt.Lane(i)
		for j := range xtLane {
			assert.InDelta(t, float64(signal*x0Lane[j]+noise*epsLane[j]), float64(xtLane[j]), 1e-6)
		}
	}
}

func TestNoiseRejectsOutOfRangeTimesteps(t *testing.T) {
	s, err := NewSchedule(10, 0.1, 0.2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	x0 := tensor.New(2, 1, 2, 2)

	for _, ts := range [][]int{{0, 10}, {-1, 5}, {0, 11}} {
		_, _, err := s.Noise(x0, ts, rng)
		require.ErrorIs(t, err, ErrTimestepRange)
	}

	_, _, err = s.Noise(x0, []int{1}, rng)
	require.ErrorIs(t, err, ErrConfig, "timestep batch length mismatch")
}

func TestSampleTimestepsRange(t *testing.T) {
	s, err := NewSchedule(1000, 1e-4, 0.02)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	ts, err := s.SampleTimesteps(10000, rng)
	require.NoError(t, err)
	require.Len(t, ts, 10000)
	for _, v := range ts {
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 999)
	}
}

func TestSampleTimestepsUniform(t *testing.T) {
	const (
		steps = 50
		n     = 49000
	)
	s, err := NewSchedule(steps, 1e-4, 0.02)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))

	ts, err := s.SampleTimesteps(n, rng)
	require.NoError(t, err)

	counts := make([]float64, steps)
	for _, v := range ts {
		counts[v]++
	}
	require.Zero(t, counts[0], "timestep 0 must never be produced")

	// Chi-square goodness of fit against uniform over [1, steps-1].
	expected := float64(n) / float64(steps-1)
	var chi2 float64
	for _, c := range counts[1:] {
		d := c - expected
		chi2 += d * d / expected
	}
	crit := distuv.ChiSquared{K: float64(steps - 2)}.Quantile(0.999)
	assert.Less(t, chi2, crit, "timestep distribution deviates from uniform")
}

func TestSampleTimestepsRejectsBadArgs(t *testing.T) {
	s, err := NewSchedule(10, 0.1, 0.2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	_, err = s.SampleTimesteps(0, rng)
	require.ErrorIs(t, err, ErrConfig)

	single, err := NewSchedule(1, 0.1, 0.2)
	require.NoError(t, err)
	_, err = single.SampleTimesteps(4, rng)
	require.ErrorIs(t, err, ErrConfig, "a single-step schedule has no training timesteps")
}

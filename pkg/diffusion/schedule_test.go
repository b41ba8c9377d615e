package diffusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduleInvariants(t *testing.T) {
	cases := []struct {
		name      string
		steps     int
		betaStart float64
		betaEnd   float64
	}{
		{"defaults", 1000, 1e-4, 0.02},
		{"tiny", 2, 0.1, 0.2},
		{"large", 20000, 1e-5, 0.02},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSchedule(tc.steps, tc.betaStart, tc.betaEnd)
			require.NoError(t, err)
			require.Equal(t, tc.steps, s.Steps())

			assert.Equal(t, tc.betaStart, s.Beta(0), "beta[0] must be beta start exactly")
			assert.Equal(t, tc.betaEnd, s.Beta(tc.steps-1), "beta[T-1] must be beta end exactly")
			assert.Equal(t, s.Alpha(0), s.AlphaHat(0), "alphaHat[0] must equal alpha[0]")

			for i := 0; i < tc.steps; i++ {
				if i > 0 {
					assert.GreaterOrEqual(t, s.Beta(i), s.Beta(i-1), "beta must be non-decreasing at %d", i)
					assert.LessOrEqual(t, s.AlphaHat(i), s.AlphaHat(i-1), "alphaHat must be non-increasing at %d", i)
				}
				assert.Equal(t, 1-s.Beta(i), s.Alpha(i), "alpha[%d]", i)
				assert.Greater(t, s.AlphaHat(i), 0.0, "alphaHat[%d] must stay positive", i)
				assert.LessOrEqual(t, s.AlphaHat(i), 1.0, "alphaHat[%d] must not exceed 1", i)
			}
		})
	}
}

func TestNewScheduleConcreteValues(t *testing.T) {
	s, err := NewSchedule(10, 0.1, 0.2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		want := 0.1 + float64(i)*(0.2-0.1)/9
		assert.InDelta(t, want, s.Beta(i), 1e-12, "beta[%d]", i)
	}

	// alphaHat[9] against the explicit product, computed independently.
	product := 1.0
	for i := 0; i < 10; i++ {
		product *= 1 - s.Beta(i)
	}
	assert.InDelta(t, product, s.AlphaHat(9), 1e-15)
}

func TestNewScheduleDeterministic(t *testing.T) {
	a, err := NewSchedule(1000, 1e-4, 0.02)
	require.NoError(t, err)
	b, err := NewSchedule(1000, 1e-4, 0.02)
	require.NoError(t, err)

	require.Equal(t, a.beta, b.beta)
	require.Equal(t, a.alpha, b.alpha)
	require.Equal(t, a.alphaHat, b.alphaHat)
}

func TestNewScheduleRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name      string
		steps     int
		betaStart float64
		betaEnd   float64
	}{
		{"zero steps", 0, 1e-4, 0.02},
		{"negative steps", -5, 1e-4, 0.02},
		{"zero beta start", 1000, 0, 0.02},
		{"negative beta start", 1000, -1e-4, 0.02},
		{"beta end below start", 1000, 0.02, 1e-4},
		{"beta end equals start", 1000, 0.02, 0.02},
		{"beta end at one", 1000, 1e-4, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSchedule(tc.steps, tc.betaStart, tc.betaEnd)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

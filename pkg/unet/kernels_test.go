package unet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearForward(t *testing.T) {
	// 2x2 weight, batch of 2.
	inp := []float32{1, 2, 3, 4}
	weight := []float32{1, 0, 0, 1} // identity
	bias := []float32{10, 20}
	out := make([]float32, 4)

	linearForward(out, inp, weight, bias, 2, 2, 2)
	assert.Equal(t, []float32{11, 22, 13, 24}, out)

	linearForward(out, inp, weight, nil, 2, 2, 2)
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestGeluForwardFixedPoints(t *testing.T) {
	inp := []float32{0, 100, -100}
	out := make([]float32, 3)
	geluForward(out, inp, 3)

	assert.Equal(t, float32(0), out[0])
	assert.InDelta(t, 100, out[1], 1e-3, "large positive values pass through")
	assert.InDelta(t, 0, out[2], 1e-3, "large negative values map to zero")
}

func TestTimeEmbeddingDistinctAndBounded(t *testing.T) {
	const dim = 8
	a := make([]float32, dim)
	b := make([]float32, dim)
	timeEmbedding(a, 1, dim)
	timeEmbedding(b, 2, dim)

	require.NotEqual(t, a, b, "different timesteps must encode differently")
	for i := range a {
		assert.LessOrEqual(t, a[i], float32(1))
		assert.GreaterOrEqual(t, a[i], float32(-1))
	}

	// Component 0 carries the highest frequency: sin(t).
	assert.InDelta(t, 0.8415, a[0], 1e-3)
}

func TestMSEForwardBackward(t *testing.T) {
	pred := []float32{1, 2, 3}
	target := []float32{1, 1, 1}

	loss := mseForward(pred, target)
	assert.InDelta(t, (0.0+1+4)/3, float64(loss), 1e-6)

	dpred := make([]float32, 3)
	mseBackward(dpred, pred, target)
	assert.InDelta(t, 0, float64(dpred[0]), 1e-6)
	assert.InDelta(t, 2.0/3, float64(dpred[1]), 1e-6)
	assert.InDelta(t, 4.0/3, float64(dpred[2]), 1e-6)
}

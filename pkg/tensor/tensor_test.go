package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndLanes(t *testing.T) {
	x := New(2, 3, 4, 4)
	require.Equal(t, 96, x.Len())
	require.Equal(t, 2, x.Batch())
	require.Equal(t, 48, x.LaneLen())

	x.Lane(1)[0] = 7
	assert.Equal(t, float32(7), x.Data[48])
}

func TestCloneIsDeep(t *testing.T) {
	x := New(1, 2)
	x.Data[0] = 1
	c := x.Clone()
	c.Data[0] = 2
	assert.Equal(t, float32(1), x.Data[0])
	assert.True(t, x.SameShape(c))
}

func TestSameShape(t *testing.T) {
	a := New(2, 3)
	assert.True(t, a.SameShape(New(2, 3)))
	assert.False(t, a.SameShape(New(3, 2)))
	assert.False(t, a.SameShape(New(2, 3, 1)))
}

func TestQuantize(t *testing.T) {
	x := New(1, 1, 1, 6)
	copy(x.Data, []float32{-2, -1, 0, 1, 2, 0.5})
	q := x.Quantize()

	require.Equal(t, x.Dims, q.Dims)
	assert.Equal(t, uint8(0), q.Data[0], "values below -1 clamp to 0")
	assert.Equal(t, uint8(0), q.Data[1])
	assert.Equal(t, uint8(127), q.Data[2])
	assert.Equal(t, uint8(255), q.Data[3])
	assert.Equal(t, uint8(255), q.Data[4], "values above 1 clamp to 255")
	assert.Equal(t, uint8(191), q.Data[5])
}

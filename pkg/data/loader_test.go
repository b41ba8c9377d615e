package data

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDataset writes n constant-valued 1x2x2 images to a temp file.
func writeDataset(t *testing.T, n int) string {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		img := make([]float32, 4)
		for j := range img {
			img[j] = float32(i)
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, img))
	}
	path := filepath.Join(t.TempDir(), "dataset.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestNewImageLoader(t *testing.T) {
	path := writeDataset(t, 5)
	loader, err := NewImageLoader(path, 2, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.NumBatches)
}

func TestNewImageLoaderTooSmall(t *testing.T) {
	path := writeDataset(t, 1)
	_, err := NewImageLoader(path, 2, 1, 2)
	require.Error(t, err)
}

func TestNextBatchWrapsAround(t *testing.T) {
	path := writeDataset(t, 3)
	loader, err := NewImageLoader(path, 2, 1, 2)
	require.NoError(t, err)

	first := loader.NextBatch()
	require.Equal(t, []int{2, 1, 2, 2}, first.Dims)
	assert.Equal(t, float32(0), first.Lane(0)[0])
	assert.Equal(t, float32(1), first.Lane(1)[0])

	// Only one image left; the loader rewinds instead of short-reading.
	second := loader.NextBatch()
	assert.Equal(t, float32(0), second.Lane(0)[0])
	assert.Equal(t, float32(1), second.Lane(1)[0])
}

func TestNextBatchCopies(t *testing.T) {
	path := writeDataset(t, 2)
	loader, err := NewImageLoader(path, 2, 1, 2)
	require.NoError(t, err)

	batch := loader.NextBatch()
	batch.Data[0] = 99
	loader.Reset()
	assert.Equal(t, float32(0), loader.NextBatch().Data[0])
}

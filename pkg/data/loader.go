// Package data loads image batches for training the noise predictor.
// A dataset file is a raw little-endian stream of float32 pixel values,
// one channels x size x size image after another, already normalized to
// [-1, 1].
package data

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

const float32ByteLen = 4

// Loader is an interface for image batch loaders.
type Loader interface {
	NextBatch() *tensor.Tensor
	Reset()
}

// ImageLoader reads fixed-size image batches from an in-memory dataset,
// wrapping around when the end is reached.
type ImageLoader struct {
	batchSize  int
	channels   int
	imgSize    int
	curImage   int
	numImages  int
	NumBatches int
	data       []float32
}

// NewImageLoader returns an ImageLoader over the dataset at filename.
func NewImageLoader(filename string, batchSize, channels, imgSize int) (*ImageLoader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	imageLen := channels * imgSize * imgSize
	numImages := len(raw) / (imageLen * float32ByteLen)
	if numImages < batchSize {
		return nil, fmt.Errorf("data: dataset holds %d images, need at least one batch of %d", numImages, batchSize)
	}
	loader := &ImageLoader{
		batchSize:  batchSize,
		channels:   channels,
		imgSize:    imgSize,
		numImages:  numImages,
		NumBatches: numImages / batchSize,
		data:       make([]float32, numImages*imageLen),
	}
	if err := binary.Read(bytes.NewReader(raw[:numImages*imageLen*float32ByteLen]), binary.LittleEndian, loader.data); err != nil {
		return nil, err
	}
	return loader, nil
}

// Reset rewinds the loader to the first image.
func (loader *ImageLoader) Reset() {
	loader.curImage = 0
}

// NextBatch returns the next batch as a (batch, channels, size, size)
// tensor. The returned tensor copies out of the dataset, callers may
// mutate it freely.
func (loader *ImageLoader) NextBatch() *tensor.Tensor {
	if loader.curImage+loader.batchSize > loader.numImages {
		loader.Reset()
	}
	imageLen := loader.channels * loader.imgSize * loader.imgSize
	batch := tensor.New(loader.batchSize, loader.channels, loader.imgSize, loader.imgSize)
	start := loader.curImage * imageLen
	copy(batch.Data, loader.data[start:start+loader.batchSize*imageLen])
	loader.curImage += loader.batchSize
	return batch
}

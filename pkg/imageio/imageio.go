// Package imageio renders generated pixel batches to PNG.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

// EncodeGrid lays the batch out in a single horizontal strip and encodes
// it as PNG. The batch must have shape (n, channels, size, size) with 1
// (grayscale) or 3 (RGB) channels.
func EncodeGrid(batch *tensor.ByteTensor, w io.Writer) error {
	if len(batch.Dims) != 4 {
		return fmt.Errorf("imageio: want a 4-dimensional batch, got %v", batch.Dims)
	}
	n, channels, height, width := batch.Dims[0], batch.Dims[1], batch.Dims[2], batch.Dims[3]
	if channels != 1 && channels != 3 {
		return fmt.Errorf("imageio: want 1 or 3 channels, got %d", channels)
	}

	img := image.NewNRGBA(image.Rect(0, 0, n*width, height))
	plane := height * width
	for i := 0; i < n; i++ {
		lane := batch.Data[i*channels*plane : (i+1)*channels*plane]
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r := lane[y*width+x]
				g, b := r, r
				if channels == 3 {
					g = lane[plane+y*width+x]
					b = lane[2*plane+y*width+x]
				}
				img.SetNRGBA(i*width+x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return png.Encode(w, img)
}

// WriteGrid encodes the batch to a PNG file at path.
func WriteGrid(batch *tensor.ByteTensor, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeGrid(batch, f)
}

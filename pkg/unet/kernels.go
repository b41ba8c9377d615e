package unet

import (
	"math"
	"sync"
)

var geluScaleFactor = float32(math.Sqrt(2.0 / math.Pi))

// linearForward computes out = inp @ weight^T + bias for a batch of
// row vectors. weight is (Out, In) row-major.
//
// Parameters:
//   - out: output activations (B, Out)
//   - inp: input activations (B, In)
//   - weight: weight matrix (Out, In)
//   - bias: bias vector (Out), may be nil
//   - B: batch size
//   - In: input dimension
//   - Out: output dimension
func linearForward(out, inp, weight, bias []float32, B, In, Out int) {
	var wg sync.WaitGroup
	for b := 0; b < B; b++ {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			inpB := inp[b*In:]
			outB := out[b*Out:]
			for o := 0; o < Out; o++ {
				var val float32
				if bias != nil {
					val = bias[o]
				}
				wrow := weight[o*In:]
				for i := 0; i < In; i++ {
					val += inpB[i] * wrow[i]
				}
				outB[o] = val
			}
		}(b)
	}
	wg.Wait()
}

// linearBackward accumulates the gradients of linearForward.
//
// Parameters:
//   - dinp: gradient of the input (B, In), may be nil when the input is a leaf
//   - dweight: gradient of the weight matrix (Out, In)
//   - dbias: gradient of the bias (Out), may be nil
//   - dout: upstream gradient (B, Out)
//   - inp: input activations from the forward pass (B, In)
//   - weight: weight matrix (Out, In)
func linearBackward(dinp, dweight, dbias, dout, inp, weight []float32, B, In, Out int) {
	var wg sync.WaitGroup
	if dinp != nil {
		for b := 0; b < B; b++ {
			wg.Add(1)
			go func(b int) {
				defer wg.Done()
				doutB := dout[b*Out:]
				dinpB := dinp[b*In:]
				for o := 0; o < Out; o++ {
					wrow := weight[o*In:]
					d := doutB[o]
					for i := 0; i < In; i++ {
						dinpB[i] += wrow[i] * d
					}
				}
			}(b)
		}
		wg.Wait()
	}
	for o := 0; o < Out; o++ {
		wg.Add(1)
		go func(o int) {
			defer wg.Done()
			dwrow := dweight[o*In:]
			for b := 0; b < B; b++ {
				doutB := dout[b*Out:]
				inpB := inp[b*In:]
				d := doutB[o]
				if dbias != nil {
					dbias[o] += d
				}
				for i := 0; i < In; i++ {
					dwrow[i] += inpB[i] * d
				}
			}
		}(o)
	}
	wg.Wait()
}

// geluForward applies the tanh-approximated GELU non-linearity.
func geluForward(out, inp []float32, n int) {
	for i := 0; i < n; i++ {
		x := inp[i]
		cube := 0.044715 * x * x * x
		out[i] = 0.5 * x * (1.0 + tanhf(geluScaleFactor*(x+cube)))
	}
}

// geluBackward accumulates the backward pass of the GELU non-linearity.
func geluBackward(dinp, inp, dout []float32, n int) {
	for i := 0; i < n; i++ {
		x := inp[i]
		cube := 0.044715 * x * x * x
		tanhArg := geluScaleFactor * (x + cube)
		tanhOut := tanhf(tanhArg)
		coshOut := coshf(tanhArg)
		sechOut := 1.0 / (coshOut * coshOut)
		localGrad := 0.5*(1.0+tanhOut) + x*0.5*sechOut*geluScaleFactor*(1.0+3.0*0.044715*x*x)
		dinp[i] += localGrad * dout[i]
	}
}

// timeEmbedding writes a sinusoidal encoding of timestep t into dst.
// Paired sin/cos components with geometrically spaced frequencies give
// the predictor a smooth, unique code per timestep.
func timeEmbedding(dst []float32, t, dim int) {
	half := dim / 2
	for i := 0; i < half; i++ {
		freq := math.Pow(10000, -float64(i)/float64(half))
		angle := float64(t) * freq
		dst[i] = float32(math.Sin(angle))
		dst[half+i] = float32(math.Cos(angle))
	}
	if dim%2 == 1 {
		dst[dim-1] = 0
	}
}

// mseForward returns the mean squared error between pred and target.
func mseForward(pred, target []float32) float32 {
	var sum float32
	for i := range pred {
		d := pred[i] - target[i]
		sum += d * d
	}
	return sum / float32(len(pred))
}

// mseBackward accumulates the gradient of mseForward into dpred.
func mseBackward(dpred, pred, target []float32) {
	scale := 2.0 / float32(len(pred))
	for i := range pred {
		dpred[i] += scale * (pred[i] - target[i])
	}
}

func tanhf(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

func coshf(x float32) float32 {
	return float32(math.Cosh(float64(x)))
}

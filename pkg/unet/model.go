// Package unet provides the noise predictor used by the diffusion
// sampler: a small fully-connected network over the flattened image
// concatenated with a sinusoidal timestep embedding, trained to regress
// the noise component added by the forward process.
package unet

import (
	"fmt"
	"math"

	"github.com/Zakonildo/Diffusion-Model/pkg/diffusion"
	"github.com/Zakonildo/Diffusion-Model/pkg/tensor"
)

// Config describes the predictor's dimensions.
type Config struct {
	// Channels is the number of image channels.
	Channels int
	// ImgSize is the spatial side length.
	ImgSize int
	// Hidden is the width of the hidden layer.
	Hidden int
	// TimeEmbed is the dimension of the sinusoidal timestep embedding.
	TimeEmbed int
}

// DefaultConfig returns a predictor configuration for channels x size x
// size images.
func DefaultConfig(channels, imgSize int) Config {
	return Config{
		Channels:  channels,
		ImgSize:   imgSize,
		Hidden:    128,
		TimeEmbed: 32,
	}
}

func (c Config) inDim() int  { return c.Channels*c.ImgSize*c.ImgSize + c.TimeEmbed }
func (c Config) outDim() int { return c.Channels * c.ImgSize * c.ImgSize }

// ParameterTensors holds the network parameters in one contiguous
// allocation with named views into it.
type ParameterTensors struct {
	Memory []float32
	W1     []float32 // (Hidden, In)
	B1     []float32 // (Hidden)
	W2     []float32 // (Out, Hidden)
	B2     []float32 // (Out)
}

// Init allocates the backing memory and carves out the named views.
func (p *ParameterTensors) Init(cfg Config) {
	in, hidden, out := cfg.inDim(), cfg.Hidden, cfg.outDim()
	p.Memory = make([]float32, hidden*in+hidden+out*hidden+out)
	mem := p.Memory
	p.W1, mem = mem[:hidden*in], mem[hidden*in:]
	p.B1, mem = mem[:hidden], mem[hidden:]
	p.W2, mem = mem[:out*hidden], mem[out*hidden:]
	p.B2 = mem[:out]
}

// Len returns the total parameter count.
func (p *ParameterTensors) Len() int {
	return len(p.Memory)
}

// activations caches the intermediate values of the last trainable
// forward pass for the backward pass.
type activations struct {
	batch     int
	input     []float32 // (B, In)
	hidden    []float32 // (B, Hidden) pre-activation
	hiddenAct []float32 // (B, Hidden) post-GELU
	pred      []float32 // (B, Out)
	forwarded bool
}

// Model is a trainable noise predictor. It satisfies diffusion.Predictor.
type Model struct {
	Config    Config
	Params    ParameterTensors
	Gradients ParameterTensors

	firstMomentEstimates  []float32
	secondMomentEstimates []float32

	mode diffusion.Mode
	acts activations
}

var _ diffusion.Predictor = (*Model)(nil)

// New creates a predictor with small random initial weights drawn from
// the supplied source.
func New(cfg Config, rng diffusion.Source) (*Model, error) {
	if cfg.Channels <= 0 || cfg.ImgSize <= 0 || cfg.Hidden <= 0 || cfg.TimeEmbed <= 0 {
		return nil, fmt.Errorf("unet: all config dimensions must be positive, got %+v", cfg)
	}
	m := &Model{Config: cfg}
	m.Params.Init(cfg)
	m.Gradients.Init(cfg)

	scale1 := float32(1 / math.Sqrt(float64(cfg.inDim())))
	for i := range m.Params.W1 {
		m.Params.W1[i] = float32(rng.NormFloat64()) * scale1
	}
	scale2 := float32(1 / math.Sqrt(float64(cfg.Hidden)))
	for i := range m.Params.W2 {
		m.Params.W2[i] = float32(rng.NormFloat64()) * scale2
	}
	return m, nil
}

// SetMode switches the execution mode and returns the previous one.
func (m *Model) SetMode(mode diffusion.Mode) diffusion.Mode {
	prev := m.mode
	m.mode = mode
	return prev
}

// Predict estimates the noise component in x at the given per-sample
// timesteps. In trainable mode the forward activations are retained for
// a subsequent Backward call.
func (m *Model) Predict(x *tensor.Tensor, t []int) (*tensor.Tensor, error) {
	cfg := m.Config
	B := x.Batch()
	if len(t) != B {
		return nil, fmt.Errorf("unet: %d timesteps for batch of %d", len(t), B)
	}
	if x.LaneLen() != cfg.outDim() {
		return nil, fmt.Errorf("unet: input lane of %d elements, model expects %d", x.LaneLen(), cfg.outDim())
	}

	in, hidden, out := cfg.inDim(), cfg.Hidden, cfg.outDim()
	input := make([]float32, B*in)
	for i := 0; i < B; i++ {
		copy(input[i*in:], x.Lane(i))
		timeEmbedding(input[i*in+out:(i+1)*in], t[i], cfg.TimeEmbed)
	}

	hiddenPre := make([]float32, B*hidden)
	hiddenAct := make([]float32, B*hidden)
	pred := tensor.New(x.Dims...)

	linearForward(hiddenPre, input, m.Params.W1, m.Params.B1, B, in, hidden)
	geluForward(hiddenAct, hiddenPre, B*hidden)
	linearForward(pred.Data, hiddenAct, m.Params.W2, m.Params.B2, B, hidden, out)

	if m.mode == diffusion.Trainable {
		m.acts = activations{
			batch:     B,
			input:     input,
			hidden:    hiddenPre,
			hiddenAct: hiddenAct,
			pred:      pred.Data,
			forwarded: true,
		}
	}
	return pred, nil
}

// Backward computes the mean squared error between the last prediction
// and target, accumulates parameter gradients, and returns the loss.
func (m *Model) Backward(target *tensor.Tensor) (float32, error) {
	if m.mode != diffusion.Trainable {
		return 0, fmt.Errorf("unet: backward requires trainable mode")
	}
	if !m.acts.forwarded {
		return 0, fmt.Errorf("unet: must predict before backward")
	}
	cfg := m.Config
	B := m.acts.batch
	if target.Len() != B*cfg.outDim() {
		return 0, fmt.Errorf("unet: target of %d elements, want %d", target.Len(), B*cfg.outDim())
	}

	in, hidden, out := cfg.inDim(), cfg.Hidden, cfg.outDim()
	loss := mseForward(m.acts.pred, target.Data)

	dpred := make([]float32, B*out)
	mseBackward(dpred, m.acts.pred, target.Data)

	dhiddenAct := make([]float32, B*hidden)
	linearBackward(dhiddenAct, m.Gradients.W2, m.Gradients.B2, dpred, m.acts.hiddenAct, m.Params.W2, B, hidden, out)

	dhidden := make([]float32, B*hidden)
	geluBackward(dhidden, m.acts.hidden, dhiddenAct, B*hidden)

	// The input is a leaf, no gradient flows past the first layer.
	linearBackward(nil, m.Gradients.W1, m.Gradients.B1, dhidden, m.acts.input, m.Params.W1, B, in, hidden)

	m.acts.forwarded = false
	return loss, nil
}

// ZeroGradient clears the accumulated parameter gradients.
func (m *Model) ZeroGradient() {
	for i := range m.Gradients.Memory {
		m.Gradients.Memory[i] = 0.0
	}
}

// Update applies one AdamW step to the parameters. t is the 1-based
// update count used for bias correction.
func (m *Model) Update(learningRate, beta1, beta2, eps, weightDecay float32, t int) {
	if m.firstMomentEstimates == nil {
		m.firstMomentEstimates = make([]float32, m.Params.Len())
		m.secondMomentEstimates = make([]float32, m.Params.Len())
	}
	for i := 0; i < m.Params.Len(); i++ {
		parameter := m.Params.Memory[i]
		gradient := m.Gradients.Memory[i]
		// update the momentum (mom is the updated first moment estimate)
		mom := beta1*m.firstMomentEstimates[i] + (1.0-beta1)*gradient
		// RMSprop update (v is the updated second moment estimate)
		v := beta2*m.secondMomentEstimates[i] + (1.0-beta2)*gradient*gradient
		// correct the bias
		mHat := mom / (1.0 - powf(beta1, float32(t)))
		vHat := v / (1.0 - powf(beta2, float32(t)))
		// update the parameters
		m.firstMomentEstimates[i] = mom
		m.secondMomentEstimates[i] = v
		m.Params.Memory[i] -= learningRate * (mHat/(sqrtf(vHat)+eps) + weightDecay*parameter)
	}
}

func powf(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

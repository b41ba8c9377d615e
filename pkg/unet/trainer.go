package unet

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Zakonildo/Diffusion-Model/pkg/data"
	"github.com/Zakonildo/Diffusion-Model/pkg/diffusion"
)

// TrainConfig holds the optimizer hyperparameters.
type TrainConfig struct {
	LearningRate float32
	WeightDecay  float32
	Beta1        float32
	Beta2        float32
	Epsilon      float32
}

// DefaultTrainConfig returns the AdamW defaults used by the reference
// training setup.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: 3e-4,
		WeightDecay:  0.0,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Train runs the denoising objective for the given number of steps: per
// batch it draws training timesteps, corrupts the clean images with the
// forward process, and regresses the predictor's output against the
// exact noise that was added.
func (m *Model) Train(ctx context.Context, loader data.Loader, schedule *diffusion.Schedule, cfg TrainConfig, steps int, rng diffusion.Source) error {
	prev := m.SetMode(diffusion.Trainable)
	defer m.SetMode(prev)

	for step := 0; step < steps; step++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("unet: training cancelled at step %d: %w", step, ctx.Err())
		default:
		}
		start := time.Now()

		x0 := loader.NextBatch()
		ts, err := schedule.SampleTimesteps(x0.Batch(), rng)
		if err != nil {
			return err
		}
		xt, eps, err := schedule.Noise(x0, ts, rng)
		if err != nil {
			return err
		}
		if _, err := m.Predict(xt, ts); err != nil {
			return err
		}
		m.ZeroGradient()
		loss, err := m.Backward(eps)
		if err != nil {
			return err
		}
		m.Update(cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon, cfg.WeightDecay, step+1)

		log.Info("train step", "step", step, "mse", loss, "took", time.Since(start))
	}
	return nil
}

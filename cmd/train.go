package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Zakonildo/Diffusion-Model/pkg/data"
	"github.com/Zakonildo/Diffusion-Model/pkg/diffusion"
	"github.com/Zakonildo/Diffusion-Model/pkg/unet"
)

// NewTrainCommand returns a new train command.
func NewTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the noise predictor on an image dataset",
		Long: `
Train the noise predictor with the denoising objective: per batch, draw
random timesteps, corrupt the clean images with the forward process, and
regress the predictor against the exact noise that was added.
	`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := newScheduleFromArgs()
			if err != nil {
				return err
			}
			rng := newRNG()

			loader, err := data.NewImageLoader(
				RootArgs.datasetPath,
				RootArgs.batchSize,
				RootArgs.channels,
				RootArgs.imgSize,
			)
			if err != nil {
				return fmt.Errorf("failed to open dataset: %w", err)
			}

			model, err := loadOrInitModel(rng)
			if err != nil {
				return err
			}

			trainCfg := unet.TrainConfig{
				LearningRate: RootArgs.learningRate,
				WeightDecay:  RootArgs.weightDecay,
				Beta1:        RootArgs.beta1,
				Beta2:        RootArgs.beta2,
				Epsilon:      RootArgs.epsilon,
			}
			logScheduleParameters(schedule)
			log.Info("training", "dataset", RootArgs.datasetPath, "batches", loader.NumBatches, "steps", RootArgs.steps)

			if err := model.Train(cmd.Context(), loader, schedule, trainCfg, RootArgs.steps, rng); err != nil {
				return fmt.Errorf("failed to train model: %w", err)
			}
			if err := model.SaveFile(RootArgs.modelPath); err != nil {
				return fmt.Errorf("failed to save checkpoint: %w", err)
			}
			log.Info("saved checkpoint", "path", RootArgs.modelPath)
			return nil
		},
	}

	cmd.Flags().
		StringVarP(&RootArgs.datasetPath, "dataset-path", "d", "dataset.bin", "Path to the dataset file")
	cmd.Flags().
		IntVarP(&RootArgs.batchSize, "batch-size", "b", 12, "Batch size")
	cmd.Flags().
		IntVar(&RootArgs.steps, "steps", 500, "Number of training steps")
	cmd.Flags().
		Float32VarP(&RootArgs.learningRate, "learning-rate", "r", 3e-4, "Learning rate")
	cmd.Flags().
		Float32VarP(&RootArgs.weightDecay, "weight-decay", "w", 0.0, "Weight decay")
	cmd.Flags().
		Float32Var(&RootArgs.beta1, "beta1", 0.9, "AdamW beta1")
	cmd.Flags().
		Float32Var(&RootArgs.beta2, "beta2", 0.999, "AdamW beta2")
	cmd.Flags().
		Float32VarP(&RootArgs.epsilon, "epsilon", "e", 1e-8, "AdamW epsilon")
	cmd.Flags().
		IntVar(&RootArgs.hidden, "hidden", 128, "Predictor hidden width")
	cmd.Flags().
		IntVar(&RootArgs.timeEmbed, "time-embed", 32, "Timestep embedding dimension")
	return cmd
}

// newScheduleFromArgs builds the noise schedule from the root flags.
func newScheduleFromArgs() (*diffusion.Schedule, error) {
	return diffusion.NewSchedule(RootArgs.noiseSteps, RootArgs.betaStart, RootArgs.betaEnd)
}

// newRNG returns a seeded random source, time-based when no seed is given.
func newRNG() *rand.Rand {
	seed := RootArgs.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Debug("rng", "seed", seed)
	return rand.New(rand.NewSource(seed))
}

// loadOrInitModel resumes from the checkpoint at model-path when it
// exists, otherwise initializes fresh weights.
func loadOrInitModel(rng diffusion.Source) (*unet.Model, error) {
	if _, err := os.Stat(RootArgs.modelPath); err == nil {
		model, err := unet.LoadFile(RootArgs.modelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		log.Info("resumed from checkpoint", "path", RootArgs.modelPath)
		return model, nil
	}
	cfg := unet.Config{
		Channels:  RootArgs.channels,
		ImgSize:   RootArgs.imgSize,
		Hidden:    RootArgs.hidden,
		TimeEmbed: RootArgs.timeEmbed,
	}
	if cfg.Hidden == 0 || cfg.TimeEmbed == 0 {
		cfg = unet.DefaultConfig(RootArgs.channels, RootArgs.imgSize)
	}
	return unet.New(cfg, rng)
}

// logScheduleParameters logs the schedule setup once at command start.
func logScheduleParameters(s *diffusion.Schedule) {
	log.Info("noise schedule",
		"T", s.Steps(),
		"beta_start", s.Beta(0),
		"beta_end", s.Beta(s.Steps()-1),
		"img_size", RootArgs.imgSize,
		"channels", RootArgs.channels,
	)
}

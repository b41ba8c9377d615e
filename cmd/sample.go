package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Zakonildo/Diffusion-Model/pkg/diffusion"
	"github.com/Zakonildo/Diffusion-Model/pkg/imageio"
	"github.com/Zakonildo/Diffusion-Model/pkg/unet"
)

// NewSampleCommand returns a new sample command.
func NewSampleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate images by running the reverse diffusion process",
		Long: `
Generate images from pure noise by running the reverse diffusion
process, querying the trained noise predictor at every timestep from
T-1 down to 1, and write the result as a PNG strip.
	`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := newScheduleFromArgs()
			if err != nil {
				return err
			}
			model, err := unet.LoadFile(RootArgs.modelPath)
			if err != nil {
				return fmt.Errorf("failed to load checkpoint: %w", err)
			}
			sampler, err := diffusion.NewSampler(schedule, model.Config.Channels, model.Config.ImgSize)
			if err != nil {
				return err
			}
			sampler.SuppressNoiseForSingletonBatch = !RootArgs.withSingletonNoise

			logScheduleParameters(schedule)
			log.Info("sampling", "n", RootArgs.nSamples, "output", RootArgs.outputPath)

			batch, err := sampler.Generate(cmd.Context(), model, RootArgs.nSamples, newRNG())
			if err != nil {
				return fmt.Errorf("failed to generate: %w", err)
			}
			if err := imageio.WriteGrid(batch, RootArgs.outputPath); err != nil {
				return fmt.Errorf("failed to write images: %w", err)
			}
			log.Info("wrote images", "path", RootArgs.outputPath)
			return nil
		},
	}

	cmd.Flags().
		IntVarP(&RootArgs.nSamples, "n-samples", "n", 1, "Number of samples to generate")
	cmd.Flags().
		StringVarP(&RootArgs.outputPath, "output-path", "o", "samples.png", "Path for the generated PNG")
	cmd.Flags().
		BoolVar(&RootArgs.withSingletonNoise, "with-singleton-noise", false, "Inject noise at every step even for a batch of 1")
	return cmd
}

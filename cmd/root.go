// Package cmd contains the root command for the diffusion CLI.
package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// rootArgs is the root command arguments.
type rootArgs struct {
	verbose   bool
	configVal string

	noiseSteps int
	betaStart  float64
	betaEnd    float64
	imgSize    int
	channels   int

	seed               int64
	nSamples           int
	modelPath          string
	outputPath         string
	datasetPath        string
	batchSize          int
	steps              int
	learningRate       float32
	weightDecay        float32
	beta1              float32
	beta2              float32
	epsilon            float32
	hidden             int
	timeEmbed          int
	addr               string
	withSingletonNoise bool
}

// RootArgs is the root command arguments.
var RootArgs rootArgs

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ddpm",
	Short: "A CLI for a denoising diffusion probabilistic model",
	Long: `
A CLI for a denoising diffusion probabilistic model.

Train a noise predictor on an image dataset and sample new images by
running the reverse diffusion process.
	`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if RootArgs.verbose {
			log.SetLevel(log.DebugLevel)
		}
		return applyConfigFile(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&RootArgs.verbose, "verbose", "v", false, "Verbose output")
	pf.StringVar(&RootArgs.configVal, "config", "", "Path to a YAML config file (default is $XDG_CONFIG_HOME/ddpm/config.yaml)")
	pf.IntVar(&RootArgs.noiseSteps, "noise-steps", 1000, "Number of diffusion steps T")
	pf.Float64Var(&RootArgs.betaStart, "beta-start", 1e-4, "Schedule variance at t=0")
	pf.Float64Var(&RootArgs.betaEnd, "beta-end", 0.02, "Schedule variance at t=T-1")
	pf.IntVar(&RootArgs.imgSize, "img-size", 64, "Spatial side length of images")
	pf.IntVar(&RootArgs.channels, "channels", 3, "Number of image channels")
	pf.Int64VarP(&RootArgs.seed, "seed", "s", 0, "Seed for the random number generator (0 means time-based)")
	pf.StringVarP(&RootArgs.modelPath, "model-path", "m", "model.ckpt", "Path to the predictor checkpoint")

	rootCmd.AddCommand(NewTrainCommand())
	rootCmd.AddCommand(NewSampleCommand())
	rootCmd.AddCommand(NewServeCommand())
}

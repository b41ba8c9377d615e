package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig represents the optional YAML config file. All fields are
// pointers so "not set" can be told apart from zero values; a file value
// only applies when the matching flag was not passed on the command line.
type fileConfig struct {
	NoiseSteps *int     `yaml:"noise_steps"`
	BetaStart  *float64 `yaml:"beta_start"`
	BetaEnd    *float64 `yaml:"beta_end"`
	ImgSize    *int     `yaml:"img_size"`
	Channels   *int     `yaml:"channels"`
	Seed       *int64   `yaml:"seed"`
	ModelPath  *string  `yaml:"model_path"`
	Addr       *string  `yaml:"server_address"`
}

func configPath() string {
	if RootArgs.configVal != "" {
		return RootArgs.configVal
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ddpm", "config.yaml")
}

// applyConfigFile reads the config file, if any, and applies its values
// to flags the user did not set explicitly.
func applyConfigFile(cmd *cobra.Command) error {
	path := configPath()
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && RootArgs.configVal == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	flags := cmd.Flags()
	if cfg.NoiseSteps != nil && !flags.Changed("noise-steps") {
		RootArgs.noiseSteps = *cfg.NoiseSteps
	}
	if cfg.BetaStart != nil && !flags.Changed("beta-start") {
		RootArgs.betaStart = *cfg.BetaStart
	}
	if cfg.BetaEnd != nil && !flags.Changed("beta-end") {
		RootArgs.betaEnd = *cfg.BetaEnd
	}
	if cfg.ImgSize != nil && !flags.Changed("img-size") {
		RootArgs.imgSize = *cfg.ImgSize
	}
	if cfg.Channels != nil && !flags.Changed("channels") {
		RootArgs.channels = *cfg.Channels
	}
	if cfg.Seed != nil && !flags.Changed("seed") {
		RootArgs.seed = *cfg.Seed
	}
	if cfg.ModelPath != nil && !flags.Changed("model-path") {
		RootArgs.modelPath = *cfg.ModelPath
	}
	if cfg.Addr != nil && !flags.Changed("addr") {
		RootArgs.addr = *cfg.Addr
	}
	return nil
}

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"mixednb/pkg/model"
)

type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
}

type ModelConfig struct {
	VarSmoothing float64 `yaml:"var_smoothing"` // added to variances, as a fraction of the largest one
	Alpha        float64 `yaml:"alpha"`         // Laplace smoothing count
	ParallelFit  bool    `yaml:"parallel_fit"`
}

type TrainingConfig struct {
	ValidationFraction float64 `yaml:"validation_fraction"` // share of rows held out, 0 disables
	RandomSeed         int64   `yaml:"random_seed"`
}

func Default() *Config {
	return &Config{
		Model: ModelConfig{
			VarSmoothing: model.DefaultVarSmoothing,
			Alpha:        model.DefaultAlpha,
		},
		Training: TrainingConfig{
			RandomSeed: 42,
		},
	}
}

// Load reads the YAML file at configPath over the defaults. An empty path returns the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults replaces out of range values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Model.VarSmoothing < 0 {
		cfg.Model.VarSmoothing = model.DefaultVarSmoothing
	}
	if cfg.Model.Alpha < 0 {
		cfg.Model.Alpha = model.DefaultAlpha
	}
	if cfg.Training.ValidationFraction < 0 || cfg.Training.ValidationFraction >= 1 {
		cfg.Training.ValidationFraction = 0
	}
}

// MixedNBConfig returns the classifier configuration for a data set with numFeatures numeric columns.
func (c *Config) MixedNBConfig(numFeatures int) model.MixedNBConfig {
	return model.MixedNBConfig{
		VarSmoothing:     c.Model.VarSmoothing,
		Alpha:            c.Model.Alpha,
		NumFeaturesCount: numFeatures,
		ParallelFit:      c.Model.ParallelFit,
	}
}

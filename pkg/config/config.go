// Package config provides configuration loading and management for tpzcyx.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tpzcyx/pkg/format"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Generator parameters
	Generator struct {
		// PixelSizeUM is the physical pixel size written to generated descriptors
		PixelSizeUM float64 `yaml:"pixelSizeUm" validate:"gt=0"`

		// TimeIntervalS is the frame interval written to generated descriptors
		TimeIntervalS float64 `yaml:"timeIntervalS" validate:"gte=0"`

		// Seed is the base seed of the default mock patterns
		Seed uint64 `yaml:"seed"`

		// NoiseLevel is the half-width of the uniform noise added to every voxel
		NoiseLevel float64 `yaml:"noiseLevel" validate:"gte=0"`

		// Dimensions are used by the generate command when no size flag is given
		Dimensions struct {
			Time      int `yaml:"time" validate:"gt=0"`
			Positions int `yaml:"positions" validate:"gt=0"`
			ZSlices   int `yaml:"zSlices" validate:"gt=0"`
			Channels  int `yaml:"channels" validate:"gt=0"`
			Height    int `yaml:"height" validate:"gt=0"`
			Width     int `yaml:"width" validate:"gt=0"`
		} `yaml:"dimensions"`
	} `yaml:"generator"`

	// Inspection parameters
	Inspect struct {
		// SaturationThreshold is the value at or above which a pixel counts as saturated
		SaturationThreshold float64 `yaml:"saturationThreshold"`
	} `yaml:"inspect"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// Directory is prepended to relative dataset paths by the CLI
		Directory string `yaml:"directory"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Generator.PixelSizeUM = format.DefaultPixelSizeUM
	cfg.Generator.TimeIntervalS = format.DefaultTimeIntervalS
	cfg.Generator.Seed = 42
	cfg.Generator.NoiseLevel = 0

	cfg.Generator.Dimensions.Time = 3
	cfg.Generator.Dimensions.Positions = 1
	cfg.Generator.Dimensions.ZSlices = 2
	cfg.Generator.Dimensions.Channels = 2
	cfg.Generator.Dimensions.Height = 32
	cfg.Generator.Dimensions.Width = 32

	cfg.Inspect.SaturationThreshold = 1000

	cfg.Output.Verbose = false
	cfg.Output.Directory = ""

	return cfg
}

// Dimensions returns the default generation dimensions
func (c *Config) Dimensions() format.Dimensions {
	d := c.Generator.Dimensions
	return format.NewDimensions(d.Time, d.Positions, d.ZSlices, d.Channels, d.Height, d.Width)
}

// Validate checks every field constraint
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ResolvePath joins a relative dataset path onto Output.Directory
func (c *Config) ResolvePath(path string) string {
	if c.Output.Directory == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Output.Directory, path)
}

var validate = validator.New()

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

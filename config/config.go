// Package config loads smallcasm settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Urethramancer/smallcasm/artifact"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "smallcasm.yaml"

// Config holds the assembler driver settings. Command-line options override these.
type Config struct {
	// Output is the directory artifacts are written to.
	Output    string         `yaml:"output"`
	Artifacts artifact.Kinds `yaml:"artifacts"`
	// BundleABI writes a CompiledResult bundle when a sibling .abi file exists.
	BundleABI bool `yaml:"bundle_abi"`
	// Validate runs the syntax validator before assembling and stops on problems.
	Validate  bool `yaml:"validate"`
	Verbosity int  `yaml:"verbosity"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Output:    ".",
		Artifacts: artifact.All,
		BundleABI: true,
		Validate:  false,
		Verbosity: 0,
	}
}

// Load reads path over the defaults. A missing file is not an error when path is DefaultFile.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultFile {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their current values.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.Output == "" {
		cfg.Output = "."
	}
	if cfg.Verbosity < 0 {
		return fmt.Errorf("verbosity must not be negative: %d", cfg.Verbosity)
	}
	return nil
}

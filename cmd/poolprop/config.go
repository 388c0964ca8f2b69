package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the poolprop configuration file
// (~/.config/poolprop/config.yaml). All fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	Backend   *string `yaml:"backend"`
	GroupSize *int64  `yaml:"group_size"`
	Workers   *int64  `yaml:"workers"`
	Variant   *string `yaml:"variant"`

	InputBoardSize *int64 `yaml:"input_board_size"`
	PoolingSize    *int64 `yaml:"pooling_size"`
	PadZeros       *bool  `yaml:"pad_zeros"`
	NumPlanes      *int64 `yaml:"num_planes"`
	BatchSize      *int64 `yaml:"batch_size"`

	Repeat *int64 `yaml:"repeat"`
	Seed   *int64 `yaml:"seed"`

	LogLevel  *string `yaml:"log_level"`
	LogFormat *string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "poolprop", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// flagSetter reports whether a flag was given on the command line.
type flagSetter interface {
	IsSet(name string) bool
}

var _ flagSetter = (*cli.Command)(nil)

func applyString(c flagSetter, flag string, v *string, dst *string) {
	if v != nil && !c.IsSet(flag) {
		*dst = *v
	}
}

func applyInt(c flagSetter, flag string, v *int64, dst *int64) {
	if v != nil && !c.IsSet(flag) {
		*dst = *v
	}
}

// applyCommonConfig applies config file defaults to logging variables when
// the corresponding flag was not explicitly set.
func applyCommonConfig(c flagSetter, cfg Config) {
	applyString(c, "log-level", cfg.LogLevel, &logLevel)
	applyString(c, "log-format", cfg.LogFormat, &logFormat)
}

// applyLayerConfig applies config file defaults to layer and backend variables.
func applyLayerConfig(c flagSetter, cfg Config) {
	applyString(c, "backend", cfg.Backend, &backendName)
	applyInt(c, "group-size", cfg.GroupSize, &groupSize)
	applyInt(c, "workers", cfg.Workers, &workers)
	applyString(c, "variant", cfg.Variant, &variantName)
	applyInt(c, "input-size", cfg.InputBoardSize, &inputBoardSize)
	applyInt(c, "pool-size", cfg.PoolingSize, &poolingSize)
	applyInt(c, "planes", cfg.NumPlanes, &numPlanes)
	applyInt(c, "batch", cfg.BatchSize, &batchSize)
	if cfg.PadZeros != nil && !c.IsSet("pad-zeros") {
		padZeros = *cfg.PadZeros
	}
}

// applyRunConfig applies config file defaults to run-only variables.
func applyRunConfig(c flagSetter, cfg Config, repeat, seed *int64) {
	applyInt(c, "repeat", cfg.Repeat, repeat)
	applyInt(c, "seed", cfg.Seed, seed)
}

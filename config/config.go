// Package config loads the framesets TOML configuration: inputs, split
// ranges, frame windows, sampling policy, seeds and output locations.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/splits"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrMissingField is returned when a required setting is absent.
var ErrMissingField = errors.New("required")

// Input lists the root paths of each phase.
type Input struct {
	Train []string `toml:"train" yaml:"train"`
	// Val defaults to Train.
	Val []string `toml:"val" yaml:"val"`
}

// Discovery controls directory expansion.
type Discovery struct {
	Depth    int      `toml:"depth" yaml:"depth"`
	Suffixes []string `toml:"suffixes" yaml:"suffixes"`
}

// Split holds raw split values as written in the file: a flat list of
// fractions or a list of [start, end] pairs.
type Split struct {
	Train any `toml:"train" yaml:"train"`
	Val   any `toml:"val" yaml:"val"`
}

// Sampling selects the epoch sampler.
type Sampling struct {
	// Mode is random, permutation or sequential for the uniform sampler.
	Mode         string `toml:"mode" yaml:"mode"`
	TrainSamples int    `toml:"train_samples" yaml:"train_samples"`
	ValSamples   int    `toml:"val_samples" yaml:"val_samples"`
	Balanced     bool   `toml:"balanced" yaml:"balanced"`
	BalancedSize int    `toml:"balanced_size" yaml:"balanced_size"`
	EpochSeeded  bool   `toml:"epoch_seeded" yaml:"epoch_seeded"`
	// LabelPolicy is reject or drop for labels below zero.
	LabelPolicy string `toml:"label_policy" yaml:"label_policy"`
	// VisualSamples caps each visual dataset; 0 disables them.
	VisualSamples int `toml:"visual_samples" yaml:"visual_samples"`
}

// Seeds are the two independent generation seeds.
type Seeds struct {
	Data  uint64 `toml:"data" yaml:"data"`
	Model uint64 `toml:"model" yaml:"model"`
}

// DataSplit holds the ratios used to divide a labelled sample list.
type DataSplit struct {
	TrainRatio float64 `toml:"train_ratio" yaml:"train_ratio"`
	ValidRatio float64 `toml:"valid_ratio" yaml:"valid_ratio"`
}

// Loader configures parallel sample retrieval.
type Loader struct {
	Workers   int `toml:"workers" yaml:"workers"`
	BatchSize int `toml:"batch_size" yaml:"batch_size"`
	Prefetch  int `toml:"prefetch" yaml:"prefetch"`
}

// Output configures where runs are written.
type Output struct {
	Dir  string `toml:"dir" yaml:"dir"`
	Name string `toml:"name" yaml:"name"`
	// Timestamp prefixes run directory names with the start time.
	Timestamp bool `toml:"timestamp" yaml:"timestamp"`
	// Store is the SQLite database holding persisted splits.
	Store string `toml:"store" yaml:"store"`
}

// Logging selects log level and format.
type Logging struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Config is the complete run configuration.
type Config struct {
	Input     Input            `toml:"input" yaml:"input"`
	Discovery Discovery        `toml:"discovery" yaml:"discovery"`
	Split     Split            `toml:"split" yaml:"split"`
	Frames    datasets.Options `toml:"frames" yaml:"frames"`
	Sampling  Sampling         `toml:"sampling" yaml:"sampling"`
	Seeds     Seeds            `toml:"seeds" yaml:"seeds"`
	DataSplit DataSplit        `toml:"data_split" yaml:"data_split"`
	Loader    Loader           `toml:"loader" yaml:"loader"`
	Output    Output           `toml:"output" yaml:"output"`
	Logging   Logging          `toml:"logging" yaml:"logging"`
}

// Read parses the file at path over Default and normalizes it without
// validating, so callers can apply overrides first. An empty path yields the
// defaults.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(expanded)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize re-applies defaults after overrides and validates.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// TrainRanges resolves split.train.
func (c *Config) TrainRanges() ([]splits.Range, error) {
	return resolveRanges("split.train", c.Split.Train)
}

// ValRanges resolves split.val.
func (c *Config) ValRanges() ([]splits.Range, error) {
	return resolveRanges("split.val", c.Split.Val)
}

func resolveRanges(field string, raw any) ([]splits.Range, error) {
	groups, err := splits.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%s is %w", field, ErrMissingField)
	}
	ranges, err := splits.Resolve(groups)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return ranges, nil
}

// DatasetOptions returns the frame options seeded with the data seed.
func (c *Config) DatasetOptions() datasets.Options {
	opts := c.Frames
	opts.Deltas = append([]int(nil), c.Frames.Deltas...)
	opts.Seed = c.Seeds.Data
	return opts
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	return filepath.Clean(pathValue), nil
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

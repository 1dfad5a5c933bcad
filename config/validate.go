package config

import (
	"fmt"

	"github.com/Noofbiz/framesets/logging"
	"github.com/Noofbiz/framesets/sampling"
)

// Validate ensures the configuration is usable. Errors name the offending
// field.
func (c *Config) Validate() error {
	if err := c.validateInputs(); err != nil {
		return err
	}
	if err := c.validateSplits(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateDataSplit(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateInputs() error {
	if len(c.Input.Train) == 0 {
		return fmt.Errorf("input.train is %w", ErrMissingField)
	}
	if c.Discovery.Depth < 0 {
		return fmt.Errorf("discovery.depth must be >= 0, got %d", c.Discovery.Depth)
	}
	return nil
}

func (c *Config) validateSplits() error {
	train, err := c.TrainRanges()
	if err != nil {
		return err
	}
	val, err := c.ValRanges()
	if err != nil {
		return err
	}
	for i, r := range train {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("split.train[%d]: %w", i, err)
		}
	}
	for i, r := range val {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("split.val[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateFrames() error {
	f := c.Frames
	if f.NFrames < 1 {
		return fmt.Errorf("frames.n_frames must be positive, got %d", f.NFrames)
	}
	for _, d := range f.Deltas {
		if d < 1 {
			return fmt.Errorf("frames.deltas must be positive, got %v", f.Deltas)
		}
	}
	if f.Size < 0 {
		return fmt.Errorf("frames.size must be >= 0, got %d", f.Size)
	}
	if f.Subsample < 1 {
		return fmt.Errorf("frames.subsample must be positive, got %d", f.Subsample)
	}
	if f.Augment < 0 || f.Augment > 2 {
		return fmt.Errorf("frames.augment must be 0, 1 or 2, got %d", f.Augment)
	}
	return nil
}

func (c *Config) validateSampling() error {
	s := c.Sampling
	if _, err := sampling.ParseMode(s.Mode); err != nil {
		return fmt.Errorf("sampling.mode: %w", err)
	}
	if s.TrainSamples < 0 || s.ValSamples < 0 {
		return fmt.Errorf("sampling.train_samples and sampling.val_samples must be >= 0")
	}
	if s.Balanced && s.BalancedSize <= 0 {
		return fmt.Errorf("sampling.balanced_size must be positive when sampling.balanced is set")
	}
	if _, err := c.LabelPolicy(); err != nil {
		return err
	}
	if s.VisualSamples < 0 {
		return fmt.Errorf("sampling.visual_samples must be >= 0, got %d", s.VisualSamples)
	}
	return nil
}

func (c *Config) validateDataSplit() error {
	d := c.DataSplit
	if d.TrainRatio < 0 || d.TrainRatio > 1 || d.ValidRatio < 0 || d.ValidRatio > 1 {
		return fmt.Errorf("data_split ratios must be between 0 and 1")
	}
	if d.TrainRatio+d.ValidRatio > 1 {
		return fmt.Errorf("data_split.train_ratio + data_split.valid_ratio must not exceed 1")
	}
	return nil
}

// LabelPolicy maps sampling.label_policy onto the sampler setting.
func (c *Config) LabelPolicy() (sampling.LabelPolicy, error) {
	switch c.Sampling.LabelPolicy {
	case "reject":
		return sampling.Reject, nil
	case "drop":
		return sampling.Drop, nil
	}
	return 0, fmt.Errorf("sampling.label_policy must be reject or drop, got %q", c.Sampling.LabelPolicy)
}

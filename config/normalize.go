package config

import (
	"path/filepath"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if len(c.Input.Val) == 0 {
		c.Input.Val = append([]string(nil), c.Input.Train...)
	}

	if c.Frames.NFrames == 0 {
		c.Frames.NFrames = 2
	}
	if len(c.Frames.Deltas) == 0 {
		c.Frames.Deltas = []int{1}
	}
	if c.Frames.Subsample == 0 {
		c.Frames.Subsample = 1
	}

	c.Sampling.Mode = strings.ToLower(strings.TrimSpace(c.Sampling.Mode))
	if c.Sampling.Mode == "" {
		c.Sampling.Mode = "random"
	}
	c.Sampling.LabelPolicy = strings.ToLower(strings.TrimSpace(c.Sampling.LabelPolicy))
	if c.Sampling.LabelPolicy == "" {
		c.Sampling.LabelPolicy = "reject"
	}

	if c.Loader.Workers <= 0 {
		c.Loader.Workers = runtime.NumCPU()
	}
	if c.Loader.BatchSize <= 0 {
		c.Loader.BatchSize = DefaultBatchSize
	}
	if c.Loader.Prefetch <= 0 {
		c.Loader.Prefetch = DefaultPrefetch
	}

	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	for _, list := range []*[]string{&c.Input.Train, &c.Input.Val} {
		for i, p := range *list {
			if (*list)[i], err = expandPath(strings.TrimSpace(p)); err != nil {
				return err
			}
		}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return err
	}
	if c.Output.Store == "" {
		c.Output.Store = filepath.Join(c.Output.Dir, DefaultStoreName)
	}
	c.Output.Store, err = expandPath(c.Output.Store)
	return err
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
}

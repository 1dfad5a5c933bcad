package main

import (
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Noofbiz/framesets/config"
	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/discover"
	"github.com/Noofbiz/framesets/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	train     []string
	val       []string
	depth     int
}

type commandContext struct {
	flags *globalFlags
	fs    afero.Fs
	// logOut defaults to os.Stderr.
	logOut io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     zerolog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{
		flags:  flags,
		fs:     afero.NewOsFs(),
		logOut: os.Stderr,
		logger: zerolog.Nop(),
	}
}

// ensureConfig loads the file named by --config, applies flag overrides and
// builds the logger. It runs once per process.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Read(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.applyOverrides(cfg)
		if err := cfg.Finalize(); err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: c.logOut,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) {
	f := c.flags
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	if len(f.train) > 0 {
		// val was defaulted from train; let it follow the override.
		if slices.Equal(cfg.Input.Val, cfg.Input.Train) {
			cfg.Input.Val = nil
		}
		cfg.Input.Train = f.train
	}
	if len(f.val) > 0 {
		cfg.Input.Val = f.val
	}
	if f.depth >= 0 {
		cfg.Discovery.Depth = f.depth
	}
}

// checkRoots fails on the first missing train or val root. Commands call it
// before composing either phase.
func (c *commandContext) checkRoots(cfg *config.Config) error {
	d := discover.New(c.fs, cfg.Discovery.Suffixes, c.logger)
	if err := d.CheckExist("train", cfg.Input.Train); err != nil {
		return err
	}
	return d.CheckExist("val", cfg.Input.Val)
}

// phase is one composed dataset with the sources it was built from.
type phase struct {
	name    string
	sources []datasets.Source
	data    *datasets.Concat
}

// compose discovers and opens the sources of one phase and builds its
// dataset over the phase's split ranges.
func (c *commandContext) compose(cfg *config.Config, name string) (*phase, error) {
	roots, ranges := cfg.Input.Train, cfg.TrainRanges
	if name == "val" {
		roots, ranges = cfg.Input.Val, cfg.ValRanges
	}
	splitRanges, err := ranges()
	if err != nil {
		return nil, err
	}

	d := discover.New(c.fs, cfg.Discovery.Suffixes, c.logger)
	paths, err := d.Discover(roots, cfg.Discovery.Depth)
	if err != nil {
		return nil, err
	}
	srcs, err := datasets.OpenSources(c.fs, paths, c.logger)
	if err != nil {
		return nil, err
	}
	data, err := datasets.Build(srcs, splitRanges, cfg.DatasetOptions(), c.logger.With().Str("phase", name).Logger())
	if err != nil {
		return nil, err
	}
	return &phase{name: name, sources: srcs, data: data}, nil
}

func sourcePaths(srcs []datasets.Source) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = s.Path()
	}
	return out
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

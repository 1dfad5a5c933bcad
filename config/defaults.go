package config

import (
	"runtime"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/discover"
)

// Default values applied before a file is decoded.
const (
	DefaultDepth        = 0
	DefaultTrainSamples = 1000
	DefaultValSamples   = 200
	DefaultBalancedSize = 100
	DefaultBatchSize    = 32
	DefaultPrefetch     = 2
	DefaultTrainRatio   = 0.6
	DefaultValidRatio   = 0.2
	DefaultOutputDir    = "runs"
	DefaultStoreName    = "splits.db"
)

// Default returns a Config holding every default except inputs and splits,
// which have none.
func Default() Config {
	return Config{
		Discovery: Discovery{
			Depth:    DefaultDepth,
			Suffixes: append([]string(nil), discover.DefaultSuffixes...),
		},
		Frames: datasets.DefaultOptions(),
		Sampling: Sampling{
			Mode:         "random",
			TrainSamples: DefaultTrainSamples,
			ValSamples:   DefaultValSamples,
			BalancedSize: DefaultBalancedSize,
			LabelPolicy:  "reject",
		},
		Seeds: Seeds{Data: 42, Model: 42},
		DataSplit: DataSplit{
			TrainRatio: DefaultTrainRatio,
			ValidRatio: DefaultValidRatio,
		},
		Loader: Loader{
			Workers:   runtime.NumCPU(),
			BatchSize: DefaultBatchSize,
			Prefetch:  DefaultPrefetch,
		},
		Output: Output{
			Dir:       DefaultOutputDir,
			Timestamp: true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

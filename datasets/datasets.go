// Package datasets composes image-sequence sources into one lazily decoded,
// globally indexed dataset.
//
// A Concat is built from the cross product of sources and split ranges. Each
// (source, range) pair becomes a SubDataset whose samples are frame windows
// at a base index plus a per-sample offset. Nothing but the sequence index
// (page table or file list) and the small events sidecar is read at
// construction; pixels are decoded only by Get.
//
// Get and Label are pure functions of the sample identity: every random
// choice (offset, crop, time-arrow flip, augmentation) comes from a PCG
// generator seeded by Options.Seed and the sample's (source, range, index).
// That makes them safe to call from many goroutines and makes a persisted
// Ref reproduce exactly the same sample later.
package datasets

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Noofbiz/framesets/frames"
)

// ErrInvalidRange is returned when a split range lies outside [0, 1] or is
// reversed.
var ErrInvalidRange = errors.New("invalid split range")

// Dataset is the read side shared by Concat and Subset.
type Dataset interface {
	Len() int
	Get(i int) (*Sample, error)
	Label(i int) (int, error)
	Ref(i int) (Ref, error)
}

// Sample is one frame window with its metadata.
type Sample struct {
	Source string
	// Base is the absolute frame index of the first frame in the source.
	Base  int
	Delta int
	// Frames are in presentation order, reversed when Arrow is 1.
	Frames []*frames.Frame
	// Event is 1 when an annotated event falls inside the window and crop.
	Event int
	// Arrow is the time-arrow label: 1 when Frames were reversed.
	Arrow int
	CropY int
	CropX int
}

// Options control how samples are cut from a source.
type Options struct {
	// NFrames is the number of frames per sample.
	NFrames int `toml:"n_frames" yaml:"n_frames"`
	// Deltas are the candidate offsets between consecutive frames.
	Deltas []int `toml:"deltas" yaml:"deltas"`
	// Size is the square crop edge in subsampled pixels; 0 keeps the full frame.
	Size int `toml:"size" yaml:"size"`
	// Subsample keeps every k-th row and column before cropping.
	Subsample  int  `toml:"subsample" yaml:"subsample"`
	RandomCrop bool `toml:"random_crop" yaml:"random_crop"`
	// Permute reverses the frame order of about half the samples.
	Permute bool `toml:"permute" yaml:"permute"`
	// Augment is 0 for none, 1 for flips, 2 for flips and quarter turns.
	Augment int    `toml:"augment" yaml:"augment"`
	Seed    uint64 `toml:"-" yaml:"-"`
}

// DefaultOptions returns two-frame windows with offset 1 and no crop.
func DefaultOptions() Options {
	return Options{NFrames: 2, Deltas: []int{1}, Subsample: 1}
}

func (o Options) normalized() (Options, error) {
	if o.NFrames == 0 {
		o.NFrames = 2
	}
	if len(o.Deltas) == 0 {
		o.Deltas = []int{1}
	}
	if o.Subsample == 0 {
		o.Subsample = 1
	}
	o.Deltas = slices.Clone(o.Deltas)

	switch {
	case o.NFrames < 1:
		return o, fmt.Errorf("n_frames must be positive, got %d", o.NFrames)
	case o.Subsample < 1:
		return o, fmt.Errorf("subsample must be positive, got %d", o.Subsample)
	case o.Size < 0:
		return o, fmt.Errorf("size must be >= 0, got %d", o.Size)
	case o.Augment < 0 || o.Augment > 2:
		return o, fmt.Errorf("augment must be 0, 1 or 2, got %d", o.Augment)
	}
	for _, d := range o.Deltas {
		if d < 1 {
			return o, fmt.Errorf("deltas must be positive, got %v", o.Deltas)
		}
	}
	return o, nil
}

func (o Options) maxDelta() int {
	return slices.Max(o.Deltas)
}

package sampling

import (
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/rs/zerolog"
)

// shuffleSeedOffset separates the shuffle generator from the draw generator.
const shuffleSeedOffset = 123

// Labeled is a dataset whose samples carry a scalar label.
type Labeled interface {
	Len() int
	Label(i int) (int, error)
}

// LabelPolicy decides what happens to labels below zero.
type LabelPolicy int

const (
	// Reject fails construction with ErrNonBinaryLabel.
	Reject LabelPolicy = iota
	// Drop leaves the sample out of both classes and logs a warning.
	Drop
)

// BalancedOptions configure NewBalanced.
type BalancedOptions struct {
	Seed uint64
	// Sequential emits the first M positives then the first M negatives.
	Sequential bool
	// EpochSeeded adds the epoch number to the seeds so each epoch differs.
	// Without it every epoch repeats the same draw.
	EpochSeeded bool
	Policy      LabelPolicy
	// Progress receives a progress bar during the label scan when set.
	Progress io.Writer
	Log      zerolog.Logger
}

// Balanced draws M positives and M negatives per epoch.
//
// The class partition is computed once by NewBalanced and never recomputed:
// later changes to the dataset's labels do not affect the sampler.
type Balanced struct {
	pos, neg []int
	m        int
	opts     BalancedOptions

	mu    sync.Mutex
	epoch uint64
}

// NewBalanced scans every label of ds once. Labels above zero are positive,
// zero is negative. The per-class count is min(size/2, |P|, |N|).
func NewBalanced(ds Labeled, size int, opts BalancedOptions) (*Balanced, error) {
	if size < 0 {
		return nil, fmt.Errorf("balanced sampler: size must be >= 0, got %d", size)
	}
	n := ds.Len()
	bar := newProgress(opts.Progress, n, "scanning labels")

	b := &Balanced{opts: opts}
	dropped := 0
	for i := range n {
		label, err := ds.Label(i)
		if err != nil {
			return nil, fmt.Errorf("balanced sampler: label %d: %w", i, err)
		}
		switch {
		case label > 0:
			b.pos = append(b.pos, i)
		case label == 0:
			b.neg = append(b.neg, i)
		case opts.Policy == Drop:
			dropped++
		default:
			return nil, fmt.Errorf("balanced sampler: %w: index %d has label %d", ErrNonBinaryLabel, i, label)
		}
		if bar != nil {
			if err := bar.Add(1); err != nil {
				return nil, fmt.Errorf("balanced sampler: progress: %w", err)
			}
		}
	}
	if bar != nil {
		if err := bar.Finish(); err != nil {
			return nil, fmt.Errorf("balanced sampler: progress: %w", err)
		}
	}
	if dropped > 0 {
		opts.Log.Warn().Int("dropped", dropped).Msg("samples with negative labels left out of both classes")
	}

	b.m = min(size/2, len(b.pos), len(b.neg))
	log := opts.Log.With().
		Int("positives", len(b.pos)).
		Int("negatives", len(b.neg)).
		Int("per_class", b.m).
		Logger()
	switch {
	case b.m == 0:
		log.Warn().Msg("balanced sampler is empty")
	case b.m < size/2:
		log.Warn().Int("requested", size).Msg("balanced size clamped to minority class")
	default:
		log.Debug().Msg("balanced sampler ready")
	}
	return b, nil
}

// Len returns 2M.
func (b *Balanced) Len() int { return 2 * b.m }

// PerClass returns M.
func (b *Balanced) PerClass() int { return b.m }

// Positives returns a copy of the positive indices in scan order.
func (b *Balanced) Positives() []int { return append([]int(nil), b.pos...) }

// Negatives returns a copy of the negative indices in scan order.
func (b *Balanced) Negatives() []int { return append([]int(nil), b.neg...) }

// Indices returns one epoch of 2M indices.
func (b *Balanced) Indices() []int {
	if b.opts.Sequential {
		out := make([]int, 0, 2*b.m)
		out = append(out, b.pos[:b.m]...)
		return append(out, b.neg[:b.m]...)
	}

	seed := b.opts.Seed
	if b.opts.EpochSeeded {
		b.mu.Lock()
		seed += b.epoch
		b.epoch++
		b.mu.Unlock()
	}

	out := make([]int, 2*b.m)
	if b.m == 0 {
		return out
	}
	draw := newRand(seed)
	for i := range b.m {
		out[i] = b.pos[draw.IntN(len(b.pos))]
	}
	for i := range b.m {
		out[b.m+i] = b.neg[draw.IntN(len(b.neg))]
	}
	newRand(seed+shuffleSeedOffset).Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// All iterates one epoch.
func (b *Balanced) All() iter.Seq[int] { return All(b) }

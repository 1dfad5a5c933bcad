package datasets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/Noofbiz/framesets/splits"
)

// Concat is the ordered concatenation of sub-datasets. Its length is fixed
// at construction.
type Concat struct {
	subs []*SubDataset

	// Cumulative counts for fast index mapping
	cumCounts []int
}

// Build composes one sub-dataset per (range, source) pair. Pairs are ordered
// range-major: every source for ranges[0], then every source for ranges[1].
// Ranges outside [0, 1] fail with ErrInvalidRange; ranges too short for the
// window yield empty sub-datasets and a warning.
func Build(srcs []Source, ranges []splits.Range, opts Options, log zerolog.Logger) (*Concat, error) {
	if len(srcs) == 0 {
		return nil, errors.New("build dataset: no sources")
	}
	if len(ranges) == 0 {
		return nil, errors.New("build dataset: no split ranges")
	}
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}
	for i, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: range %d: %v", ErrInvalidRange, i, err)
		}
	}

	subs := make([]*SubDataset, 0, len(srcs)*len(ranges))
	for _, r := range ranges {
		for _, src := range srcs {
			sub, err := newSubDataset(src, r, opts)
			if err != nil {
				return nil, err
			}
			if sub.Len() == 0 {
				lo, hi := sub.Frames()
				log.Warn().
					Str("source", src.Path()).
					Stringer("split", r).
					Int("frames", hi-lo).
					Int("window", (opts.NFrames-1)*opts.maxDelta()+1).
					Msg("split range too short for window, contributes no samples")
			}
			subs = append(subs, sub)
		}
	}

	c := newConcat(subs)
	log.Info().
		Int("sources", len(srcs)).
		Int("splits", len(ranges)).
		Str("samples", humanize.Comma(int64(c.Len()))).
		Msg("dataset built")
	return c, nil
}

// BuildVisual builds one full-range dataset per distinct source for
// inspection passes: last delta only, centre crop, no time-arrow flips and
// no augmentation.
func BuildVisual(srcs []Source, opts Options, log zerolog.Logger) ([]*Concat, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}
	opts.Deltas = opts.Deltas[len(opts.Deltas)-1:]
	opts.Permute = false
	opts.RandomCrop = false
	opts.Augment = 0

	seen := make(map[string]bool)
	var out []*Concat
	for _, src := range srcs {
		if seen[src.Path()] {
			continue
		}
		seen[src.Path()] = true
		c, err := Build([]Source{src}, []splits.Range{splits.Full}, opts, log)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func newConcat(subs []*SubDataset) *Concat {
	c := &Concat{subs: subs, cumCounts: make([]int, len(subs)+1)}
	for i, s := range subs {
		c.cumCounts[i+1] = c.cumCounts[i] + s.Len()
	}
	return c
}

// Len returns the sum of the sub-dataset lengths.
func (c *Concat) Len() int {
	return c.cumCounts[len(c.subs)]
}

// Subs returns the sub-datasets in index order.
func (c *Concat) Subs() []*SubDataset {
	return append([]*SubDataset(nil), c.subs...)
}

// Locate maps a global index to (sub-dataset index, local index).
func (c *Concat) Locate(i int) (sub, local int, err error) {
	if i < 0 || i >= c.Len() {
		return 0, 0, fmt.Errorf("index %d out of range [0, %d)", i, c.Len())
	}
	// Binary search for the first sub-dataset whose end is past i
	sub = sort.Search(len(c.subs), func(j int) bool { return c.cumCounts[j+1] > i })
	return sub, i - c.cumCounts[sub], nil
}

// Get decodes sample i.
func (c *Concat) Get(i int) (*Sample, error) {
	sub, local, err := c.Locate(i)
	if err != nil {
		return nil, err
	}
	return c.subs[sub].Get(local)
}

// Label returns the event label of sample i.
func (c *Concat) Label(i int) (int, error) {
	sub, local, err := c.Locate(i)
	if err != nil {
		return 0, err
	}
	return c.subs[sub].Label(local)
}

// Ref returns the persistent identity of sample i.
func (c *Concat) Ref(i int) (Ref, error) {
	sub, local, err := c.Locate(i)
	if err != nil {
		return Ref{}, err
	}
	s := c.subs[sub]
	label, err := s.Label(local)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Source: s.Source(), Range: s.Range(), Index: local, Label: label}, nil
}

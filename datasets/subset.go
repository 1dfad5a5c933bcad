package datasets

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/splits"
)

// Ref identifies a sample independently of the dataset it was drawn from.
// Rebuilding the same source and range with the same Options reproduces it.
type Ref struct {
	Source string       `json:"source" yaml:"source"`
	Range  splits.Range `json:"range" yaml:"range"`
	Index  int          `json:"index" yaml:"index"`
	Label  int          `json:"label" yaml:"label"`
}

// Subset is a view of chosen indices of another dataset.
type Subset struct {
	ds      Dataset
	indices []int
}

// NewSubset checks every index against ds and returns the view.
func NewSubset(ds Dataset, indices []int) (*Subset, error) {
	n := ds.Len()
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("subset index %d out of range [0, %d)", i, n)
		}
	}
	return &Subset{ds: ds, indices: append([]int(nil), indices...)}, nil
}

// Stride keeps every (1 + Len/n)-th sample of ds, at most about n of them.
func Stride(ds Dataset, n int) *Subset {
	step := 1
	if n > 0 {
		step = 1 + ds.Len()/n
	}
	var idx []int
	for i := 0; i < ds.Len(); i += step {
		idx = append(idx, i)
	}
	return &Subset{ds: ds, indices: idx}
}

func (s *Subset) Len() int { return len(s.indices) }

func (s *Subset) Get(i int) (*Sample, error) {
	if i < 0 || i >= len(s.indices) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(s.indices))
	}
	return s.ds.Get(s.indices[i])
}

func (s *Subset) Label(i int) (int, error) {
	if i < 0 || i >= len(s.indices) {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, len(s.indices))
	}
	return s.ds.Label(s.indices[i])
}

func (s *Subset) Ref(i int) (Ref, error) {
	if i < 0 || i >= len(s.indices) {
		return Ref{}, fmt.Errorf("index %d out of range [0, %d)", i, len(s.indices))
	}
	return s.ds.Ref(s.indices[i])
}

// Refs returns the identity of every sample of ds in order.
func Refs(ds Dataset) ([]Ref, error) {
	out := make([]Ref, ds.Len())
	for i := range out {
		r, err := ds.Ref(i)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// FromRefs rebuilds a dataset from a persisted sample list. Each distinct
// (source, range) is opened once; the result preserves the order of refs.
func FromRefs(fsys afero.Fs, refs []Ref, opts Options, log zerolog.Logger) (*Subset, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}

	type key struct {
		source string
		rng    splits.Range
	}
	subIdx := make(map[key]int)
	opened := make(map[string]Source)
	var subs []*SubDataset
	for _, r := range refs {
		k := key{r.Source, r.Range}
		if _, ok := subIdx[k]; ok {
			continue
		}
		if err := r.Range.Validate(); err != nil {
			return nil, fmt.Errorf("%w: ref %s: %v", ErrInvalidRange, r.Source, err)
		}
		src, ok := opened[r.Source]
		if !ok {
			srcs, err := OpenSources(fsys, []string{r.Source}, log)
			if err != nil {
				return nil, err
			}
			src = srcs[0]
			opened[r.Source] = src
		}
		sub, err := newSubDataset(src, r.Range, opts)
		if err != nil {
			return nil, err
		}
		subIdx[k] = len(subs)
		subs = append(subs, sub)
	}

	c := newConcat(subs)
	indices := make([]int, len(refs))
	for i, r := range refs {
		j := subIdx[key{r.Source, r.Range}]
		if r.Index < 0 || r.Index >= subs[j].Len() {
			return nil, fmt.Errorf("ref %s %s index %d out of range [0, %d)", r.Source, r.Range, r.Index, subs[j].Len())
		}
		indices[i] = c.cumCounts[j] + r.Index
	}
	log.Info().Int("samples", len(refs)).Int("sources", len(opened)).Msg("dataset rebuilt from sample list")
	return &Subset{ds: c, indices: indices}, nil
}

// CountEvents returns how many samples of ds carry an event label.
func CountEvents(ds Dataset) (int, error) {
	n := 0
	for i := range ds.Len() {
		l, err := ds.Label(i)
		if err != nil {
			return 0, err
		}
		if l > 0 {
			n++
		}
	}
	return n, nil
}

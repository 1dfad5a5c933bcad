// Package splitstore divides sample lists into train, validation and test
// phases and persists them so a later run can reuse the exact same split.
package splitstore

import (
	"fmt"
	"math/rand/v2"

	"github.com/Noofbiz/framesets/datasets"
)

// MinSplittable is the largest sample count that is not split: such lists go
// whole to train and test and validation stays empty.
const MinSplittable = 2

// Phase names used in storage and exports.
const (
	PhaseTrain = "train"
	PhaseValid = "valid"
	PhaseTest  = "test"
)

// Phases holds one split of a sample list.
type Phases struct {
	Train []datasets.Ref `json:"train"`
	Valid []datasets.Ref `json:"valid"`
	Test  []datasets.Ref `json:"test"`
	// Fallback is set when the list was too small to split.
	Fallback bool `json:"fallback,omitempty"`
}

// ByName returns the refs of the named phase.
func (p Phases) ByName(phase string) ([]datasets.Ref, error) {
	switch phase {
	case PhaseTrain:
		return p.Train, nil
	case PhaseValid:
		return p.Valid, nil
	case PhaseTest:
		return p.Test, nil
	}
	return nil, fmt.Errorf("unknown phase %q", phase)
}

// Positives counts refs with a positive label in each phase.
func (p Phases) Positives() (train, valid, test int) {
	count := func(refs []datasets.Ref) int {
		n := 0
		for _, r := range refs {
			if r.Label > 0 {
				n++
			}
		}
		return n
	}
	return count(p.Train), count(p.Valid), count(p.Test)
}

// Split shuffles a copy of refs with seed and cuts it into the first
// int(train*n), the next int(valid*n) and the rest.
func Split(refs []datasets.Ref, train, valid float64, seed uint64) (Phases, error) {
	if train < 0 || valid < 0 || train+valid > 1 {
		return Phases{}, fmt.Errorf("split ratios train=%g valid=%g must be >= 0 and sum to at most 1", train, valid)
	}
	if len(refs) <= MinSplittable {
		all := append([]datasets.Ref(nil), refs...)
		return Phases{Train: all, Test: append([]datasets.Ref(nil), refs...), Fallback: true}, nil
	}

	shuffled := append([]datasets.Ref(nil), refs...)
	rand.New(rand.NewPCG(seed, 0)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	trainEnd := int(train * float64(n))
	validEnd := trainEnd + int(valid*float64(n))
	return Phases{
		Train: shuffled[:trainEnd:trainEnd],
		Valid: shuffled[trainEnd:validEnd:validEnd],
		Test:  shuffled[validEnd:],
	}, nil
}

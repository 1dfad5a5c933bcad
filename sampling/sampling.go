// Package sampling draws per-epoch index sequences over a dataset.
//
// Uniform draws a fixed epoch budget uniformly from [0, n). Balanced draws an
// equal number of positive and negative samples for rare-event training.
// Both are safe to iterate from one goroutine while others consume the
// indices; the generator state is guarded by a mutex.
package sampling

import (
	"errors"
	"io"
	"iter"
	"math/rand/v2"

	"github.com/schollz/progressbar/v3"
)

var (
	// ErrEmptyDataset is returned when indices are requested from nothing.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrNonBinaryLabel is returned for labels that are neither positive nor zero.
	ErrNonBinaryLabel = errors.New("non-binary label")
)

// Sampler yields one epoch of dataset indices per call.
type Sampler interface {
	Len() int
	Indices() []int
}

// All iterates one epoch of s.
func All(s Sampler) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, i := range s.Indices() {
			if !yield(i) {
				return
			}
		}
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func newProgress(w io.Writer, n int, desc string) *progressbar.ProgressBar {
	if w == nil || n <= 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

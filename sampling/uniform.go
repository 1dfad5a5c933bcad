package sampling

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"sync"
)

// Mode selects how Uniform draws an epoch.
type Mode int

const (
	// Random draws every index independently with replacement, fresh each epoch.
	Random Mode = iota
	// Permutation emits whole shuffled passes over [0, n), truncated to the budget.
	Permutation
	// Sequential draws once at construction and replays that list every epoch.
	Sequential
)

func (m Mode) String() string {
	switch m {
	case Random:
		return "random"
	case Permutation:
		return "permutation"
	case Sequential:
		return "sequential"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "random":
		return Random, nil
	case "permutation":
		return Permutation, nil
	case "sequential":
		return Sequential, nil
	}
	return 0, fmt.Errorf("unknown sampling mode %q", s)
}

// UniformOptions configure NewUniform.
type UniformOptions struct {
	Mode Mode
	// Rand is the generator to draw from. When nil one is seeded from Seed.
	Rand *rand.Rand
	Seed uint64
}

// Uniform emits k indices in [0, n) per epoch. k may exceed n.
type Uniform struct {
	n, k int
	mode Mode

	mu  sync.Mutex
	rng *rand.Rand

	fixed []int
}

// NewUniform validates n and k and, in Sequential mode, makes the single draw.
func NewUniform(n, k int, opts UniformOptions) (*Uniform, error) {
	if n < 0 || k < 0 {
		return nil, fmt.Errorf("uniform sampler: n and k must be >= 0, got n=%d k=%d", n, k)
	}
	if n == 0 && k > 0 {
		return nil, fmt.Errorf("uniform sampler: %w: cannot draw %d indices", ErrEmptyDataset, k)
	}
	rng := opts.Rand
	if rng == nil {
		rng = newRand(opts.Seed)
	}
	u := &Uniform{n: n, k: k, mode: opts.Mode, rng: rng}
	if u.mode == Sequential {
		u.fixed = u.draw()
	}
	return u, nil
}

// Len returns the epoch budget k.
func (u *Uniform) Len() int { return u.k }

// Indices returns the next epoch.
func (u *Uniform) Indices() []int {
	switch u.mode {
	case Sequential:
		return append([]int(nil), u.fixed...)
	case Permutation:
		return u.permutations()
	default:
		return u.draw()
	}
}

func (u *Uniform) draw() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]int, u.k)
	for i := range out {
		out[i] = u.rng.IntN(u.n)
	}
	return out
}

func (u *Uniform) permutations() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]int, 0, u.k)
	for len(out) < u.k {
		p := u.rng.Perm(u.n)
		out = append(out, p[:min(len(p), u.k-len(out))]...)
	}
	return out
}

// All iterates the next epoch.
func (u *Uniform) All() iter.Seq[int] { return All(u) }

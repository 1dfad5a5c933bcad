// Package loader retrieves samples in parallel and groups them into batches.
//
// A Loader pairs a dataset with a sampler. Each epoch the sampler's indices
// are cut into batches; samples of a batch are decoded on an ants worker
// pool and written into pre-allocated slots, so batch order always follows
// sampler order. Epoch pipelines batch production against consumption with
// an errgroup, and Yield/Reset/Name let the loader drive a gomlx training
// loop directly.
package loader

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/sampling"
)

// Options configure a Loader.
type Options struct {
	Name      string
	BatchSize int
	// Workers defaults to runtime.NumCPU.
	Workers int
	// Prefetch is how many batches Epoch may prepare ahead of the consumer.
	Prefetch int
	// DropLast discards a final batch smaller than BatchSize.
	DropLast bool
	Log      zerolog.Logger
}

// Loader turns sampler epochs into batches.
type Loader struct {
	ds      datasets.Dataset
	sampler sampling.Sampler
	opts    Options
	pool    *ants.Pool

	// decoded counts samples retrieved since construction.
	decoded atomic.Int64

	mu      sync.Mutex
	started bool
	pending []int
}

// New creates a Loader and its worker pool. Call Close to release the pool.
func New(ds datasets.Dataset, s sampling.Sampler, opts Options) (*Loader, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("loader: batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	if opts.Name == "" {
		opts.Name = "framesets"
	}
	pool, err := ants.NewPool(opts.Workers, ants.WithPreAlloc(false))
	if err != nil {
		return nil, fmt.Errorf("loader: create worker pool: %w", err)
	}
	return &Loader{ds: ds, sampler: s, opts: opts, pool: pool}, nil
}

// Close releases the worker pool.
func (l *Loader) Close() {
	l.pool.Release()
}

// Decoded returns how many samples have been retrieved so far.
func (l *Loader) Decoded() int64 { return l.decoded.Load() }

// Batches returns the number of batches in one epoch.
func (l *Loader) Batches() int {
	n := l.sampler.Len()
	if l.opts.DropLast {
		return n / l.opts.BatchSize
	}
	return (n + l.opts.BatchSize - 1) / l.opts.BatchSize
}

// Load retrieves the samples at indices on the worker pool and returns them
// as one batch in the given order. The first retrieval error is returned.
func (l *Loader) Load(ctx context.Context, indices []int) (*Batch, error) {
	samples := make([]*datasets.Sample, len(indices))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	for pos, idx := range indices {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		wg.Add(1)
		submitErr := l.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			s, err := l.ds.Get(idx)
			if err != nil {
				fail(fmt.Errorf("read sample %d: %w", idx, err))
				return
			}
			samples[pos] = s
			l.decoded.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit sample %d: %w", idx, submitErr))
			break
		}
	}
	wg.Wait()
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return MakeBatch(indices, samples)
}

// split cuts an epoch into batch-sized chunks.
func (l *Loader) split(indices []int) [][]int {
	var out [][]int
	for start := 0; start < len(indices); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(indices))
		if l.opts.DropLast && end-start < l.opts.BatchSize {
			break
		}
		out = append(out, indices[start:end])
	}
	return out
}

// Epoch draws one epoch from the sampler and calls fn with each batch in
// order. Up to Prefetch batches are decoded ahead of fn. Returning an error
// from fn, or cancelling ctx, stops the epoch.
func (l *Loader) Epoch(ctx context.Context, fn func(*Batch) error) error {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan *Batch, l.opts.Prefetch)
	chunks := l.split(l.sampler.Indices())

	g.Go(func() error {
		defer close(batches)
		for _, chunk := range chunks {
			b, err := l.Load(ctx, chunk)
			if err != nil {
				return err
			}
			select {
			case batches <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		n := 0
		for b := range batches {
			if err := fn(b); err != nil {
				return err
			}
			n++
		}
		l.opts.Log.Debug().Str("loader", l.opts.Name).Int("batches", n).Msg("epoch done")
		return nil
	})

	return g.Wait()
}

// Name implements gomlx's train.Dataset.
func (l *Loader) Name() string { return l.opts.Name }

// Reset starts a new epoch for Yield.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = l.sampler.Indices()
	l.started = true
}

// Yield returns the next batch of the current epoch as gomlx tensors:
// inputs are the frames and labels are the event and time-arrow labels.
// It returns io.EOF when the epoch is exhausted; call Reset to start another.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	l.mu.Lock()
	if !l.started {
		l.pending = l.sampler.Indices()
		l.started = true
	}
	if len(l.pending) == 0 || (l.opts.DropLast && len(l.pending) < l.opts.BatchSize) {
		l.pending = nil
		l.mu.Unlock()
		return nil, nil, nil, io.EOF
	}
	n := min(l.opts.BatchSize, len(l.pending))
	chunk := l.pending[:n]
	l.pending = l.pending[n:]
	l.mu.Unlock()

	b, err := l.Load(context.Background(), chunk)
	if err != nil {
		return nil, nil, nil, err
	}
	frames, events, arrows := b.ToGomlxTensors()
	return l, []*tensors.Tensor{frames}, []*tensors.Tensor{events, arrows}, nil
}

package loader

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/frames"
	"github.com/Noofbiz/framesets/sampling"
)

// fake yields 2-frame 2x3 samples whose pixels all equal the index.
type fake struct {
	n     int
	fail  int
	calls atomic.Int64
}

func (f *fake) Len() int { return f.n }

func (f *fake) Get(i int) (*datasets.Sample, error) {
	f.calls.Add(1)
	if i == f.fail {
		return nil, errors.New("boom")
	}
	s := &datasets.Sample{Source: "fake", Base: i, Delta: 1, Event: i % 2, Arrow: 1 - i%2}
	for range 2 {
		fr := frames.NewFrame(2, 3)
		for p := range fr.Pix {
			fr.Pix[p] = float32(i)
		}
		s.Frames = append(s.Frames, fr)
	}
	return s, nil
}

func (f *fake) Label(i int) (int, error) { return i % 2, nil }

func (f *fake) Ref(i int) (datasets.Ref, error) {
	return datasets.Ref{Source: "fake", Index: i, Label: i % 2}, nil
}

type fixed []int

func (s fixed) Len() int       { return len(s) }
func (s fixed) Indices() []int { return slices.Clone(s) }

func newLoader(t *testing.T, ds datasets.Dataset, s sampling.Sampler, opts Options) *Loader {
	t.Helper()
	l, err := New(ds, s, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func TestLoadKeepsOrder(t *testing.T) {
	l := newLoader(t, &fake{n: 20, fail: -1}, fixed{}, Options{BatchSize: 4, Workers: 3})
	idx := []int{7, 3, 19, 0, 12}
	b, err := l.Load(context.Background(), idx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Size != 5 || b.NFrames != 2 || b.Height != 2 || b.Width != 3 {
		t.Fatalf("unexpected batch shape %d/%d/%d/%d", b.Size, b.NFrames, b.Height, b.Width)
	}
	per := b.NFrames * b.Height * b.Width
	for i, want := range idx {
		if got := b.Frames[i*per]; got != float32(want) {
			t.Errorf("sample %d: pixel %v, want %d", i, got, want)
		}
		if got := b.Frames[(i+1)*per-1]; got != float32(want) {
			t.Errorf("sample %d: last pixel %v, want %d", i, got, want)
		}
		if b.Events[i] != int32(want%2) || b.Arrows[i] != int32(1-want%2) {
			t.Errorf("sample %d: labels %d/%d", i, b.Events[i], b.Arrows[i])
		}
	}
	if l.Decoded() != int64(len(idx)) {
		t.Errorf("Decoded = %d, want %d", l.Decoded(), len(idx))
	}
}

func TestLoadError(t *testing.T) {
	l := newLoader(t, &fake{n: 10, fail: 4}, fixed{}, Options{BatchSize: 4, Workers: 2})
	if _, err := l.Load(context.Background(), []int{1, 4, 5}); err == nil {
		t.Fatal("expected error from failing sample")
	}
}

func TestLoadCancelled(t *testing.T) {
	l := newLoader(t, &fake{n: 10, fail: -1}, fixed{}, Options{BatchSize: 4, Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, []int{1, 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEpochBatches(t *testing.T) {
	order := fixed{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	for _, tc := range []struct {
		dropLast bool
		sizes    []int
	}{
		{false, []int{4, 4, 2}},
		{true, []int{4, 4}},
	} {
		l := newLoader(t, &fake{n: 10, fail: -1}, order, Options{BatchSize: 4, Workers: 4, Prefetch: 2, DropLast: tc.dropLast})
		if l.Batches() != len(tc.sizes) {
			t.Errorf("dropLast=%v: Batches = %d, want %d", tc.dropLast, l.Batches(), len(tc.sizes))
		}
		var sizes, seen []int
		err := l.Epoch(context.Background(), func(b *Batch) error {
			sizes = append(sizes, b.Size)
			seen = append(seen, b.Indices...)
			return nil
		})
		if err != nil {
			t.Fatalf("Epoch: %v", err)
		}
		if !slices.Equal(sizes, tc.sizes) {
			t.Errorf("dropLast=%v: sizes %v, want %v", tc.dropLast, sizes, tc.sizes)
		}
		if !slices.Equal(seen, order[:len(seen)]) {
			t.Errorf("dropLast=%v: order %v", tc.dropLast, seen)
		}
	}
}

func TestEpochStopsOnConsumerError(t *testing.T) {
	stop := errors.New("stop")
	ds := &fake{n: 100, fail: -1}
	order := make(fixed, 100)
	for i := range order {
		order[i] = i
	}
	l := newLoader(t, ds, order, Options{BatchSize: 2, Workers: 2, Prefetch: 1})

	calls := 0
	err := l.Epoch(context.Background(), func(*Batch) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected consumer error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("consumer called %d times", calls)
	}
	if ds.calls.Load() >= 100 {
		t.Errorf("producer decoded the whole epoch after the consumer stopped")
	}
}

func TestYield(t *testing.T) {
	l := newLoader(t, &fake{n: 10, fail: -1}, fixed{1, 2, 3, 4, 5}, Options{Name: "train", BatchSize: 2})
	if l.Name() != "train" {
		t.Errorf("Name = %q", l.Name())
	}
	for epoch := range 2 {
		var n int
		for {
			_, inputs, labels, err := l.Yield()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("Yield: %v", err)
			}
			if len(inputs) != 1 || len(labels) != 2 {
				t.Fatalf("got %d inputs and %d labels", len(inputs), len(labels))
			}
			dims := inputs[0].Shape().Dimensions
			if len(dims) != 4 || dims[1] != 2 || dims[2] != 2 || dims[3] != 3 {
				t.Fatalf("frames shape %v", dims)
			}
			n += dims[0]
		}
		if n != 5 {
			t.Errorf("epoch %d yielded %d samples, want 5", epoch, n)
		}
		l.Reset()
	}
}

func TestMakeBatchMismatch(t *testing.T) {
	ds := &fake{n: 3, fail: -1}
	a, _ := ds.Get(0)
	b, _ := ds.Get(1)
	b.Frames = b.Frames[:1]
	if _, err := MakeBatch([]int{0, 1}, []*datasets.Sample{a, b}); err == nil {
		t.Fatal("expected frame count mismatch error")
	}
	if _, err := MakeBatch([]int{0}, []*datasets.Sample{a, b}); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

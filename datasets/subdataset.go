package datasets

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/Noofbiz/framesets/frames"
	"github.com/Noofbiz/framesets/splits"
)

// SubDataset holds every valid window of one source over one split range.
type SubDataset struct {
	src  Source
	rng  splits.Range
	opts Options

	lo, n         int
	height, width int // after subsampling
	cropH, cropW  int
	key           uint64
}

// plan is every random choice made for one sample.
type plan struct {
	delta        int
	cropY, cropX int
	arrow        bool
	flipH, flipV bool
	turns        int
}

func newSubDataset(src Source, r splits.Range, opts Options) (*SubDataset, error) {
	lo, hi := r.Bounds(src.Seq.Len())
	n := (hi - lo) - (opts.NFrames-1)*opts.maxDelta()
	if n < 0 {
		n = 0
	}

	h, w := src.Seq.Dims()
	h = (h + opts.Subsample - 1) / opts.Subsample
	w = (w + opts.Subsample - 1) / opts.Subsample
	cropH, cropW := h, w
	if opts.Size > 0 {
		if opts.Size > h || opts.Size > w {
			return nil, fmt.Errorf("size %d exceeds %dx%d frames of %s", opts.Size, h, w, src.Path())
		}
		cropH, cropW = opts.Size, opts.Size
	}

	hash := fnv.New64a()
	fmt.Fprintf(hash, "%s\x00%s", src.Path(), r)

	return &SubDataset{
		src:    src,
		rng:    r,
		opts:   opts,
		lo:     lo,
		n:      n,
		height: h,
		width:  w,
		cropH:  cropH,
		cropW:  cropW,
		key:    hash.Sum64(),
	}, nil
}

// Len returns the number of valid base indices in the range.
func (s *SubDataset) Len() int { return s.n }

// Source returns the path of the underlying sequence.
func (s *SubDataset) Source() string { return s.src.Path() }

// Range returns the split range the sub-dataset covers.
func (s *SubDataset) Range() splits.Range { return s.rng }

// Frames returns the absolute frame interval [lo, hi) of the range.
func (s *SubDataset) Frames() (lo, hi int) {
	return s.rng.Bounds(s.src.Seq.Len())
}

func (s *SubDataset) plan(i int) plan {
	r := rand.New(rand.NewPCG(s.opts.Seed^s.key, uint64(i)))
	p := plan{delta: s.opts.Deltas[r.IntN(len(s.opts.Deltas))]}
	if s.opts.RandomCrop {
		p.cropY = r.IntN(s.height - s.cropH + 1)
		p.cropX = r.IntN(s.width - s.cropW + 1)
	} else {
		p.cropY = (s.height - s.cropH) / 2
		p.cropX = (s.width - s.cropW) / 2
	}
	if s.opts.Permute {
		p.arrow = r.IntN(2) == 1
	}
	if s.opts.Augment >= 1 {
		p.flipH = r.IntN(2) == 1
		p.flipV = r.IntN(2) == 1
	}
	if s.opts.Augment >= 2 && s.cropH == s.cropW {
		p.turns = r.IntN(4)
	}
	return p
}

func (s *SubDataset) check(i int) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("index %d out of range [0, %d)", i, s.n)
	}
	return nil
}

func (s *SubDataset) event(base int, p plan) int {
	for k := 0; k < s.opts.NFrames; k++ {
		if s.src.Events.Any(base+k*p.delta, p.cropY, p.cropX, s.cropH, s.cropW, s.opts.Subsample) {
			return 1
		}
	}
	return 0
}

// Label returns the event label of sample i without decoding any frame.
func (s *SubDataset) Label(i int) (int, error) {
	if err := s.check(i); err != nil {
		return 0, err
	}
	return s.event(s.lo+i, s.plan(i)), nil
}

// Get decodes sample i.
func (s *SubDataset) Get(i int) (*Sample, error) {
	if err := s.check(i); err != nil {
		return nil, err
	}
	p := s.plan(i)
	base := s.lo + i

	out := make([]*frames.Frame, s.opts.NFrames)
	for k := range out {
		f, err := s.src.Seq.Frame(base + k*p.delta)
		if err != nil {
			return nil, err
		}
		f, err = f.Subsample(s.opts.Subsample).Crop(p.cropY, p.cropX, s.cropH, s.cropW)
		if err != nil {
			return nil, fmt.Errorf("%s frame %d: %w", s.Source(), base+k*p.delta, err)
		}
		if p.flipH {
			f = f.FlipH()
		}
		if p.flipV {
			f = f.FlipV()
		}
		for range p.turns {
			f = f.Rot90()
		}
		out[k] = f
	}

	smp := &Sample{
		Source: s.Source(),
		Base:   base,
		Delta:  p.delta,
		Frames: out,
		Event:  s.event(base, p),
		CropY:  p.cropY,
		CropX:  p.cropX,
	}
	if p.arrow {
		for a, b := 0, len(out)-1; a < b; a, b = a+1, b-1 {
			out[a], out[b] = out[b], out[a]
		}
		smp.Arrow = 1
	}
	return smp, nil
}

package loader

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/Noofbiz/framesets/datasets"
)

// Batch stores samples in flat contiguous buffers.
type Batch struct {
	// Indices are the dataset indices in batch order.
	Indices []int
	// Frames holds Size x NFrames x Height x Width values.
	Frames  []float32
	Size    int
	NFrames int
	Height  int
	Width   int
	// Events and Arrows are the per-sample labels.
	Events []int32
	Arrows []int32
}

// MakeBatch flattens samples into a Batch. Every sample must have the same
// number of frames and frame size.
func MakeBatch(indices []int, samples []*datasets.Sample) (*Batch, error) {
	if len(indices) != len(samples) {
		return nil, fmt.Errorf("indices and samples batch sizes don't match: %d != %d", len(indices), len(samples))
	}
	b := &Batch{Indices: append([]int(nil), indices...), Size: len(samples)}
	if len(samples) == 0 {
		return b, nil
	}

	first := samples[0]
	if len(first.Frames) == 0 {
		return nil, fmt.Errorf("sample %d has no frames", indices[0])
	}
	b.NFrames = len(first.Frames)
	b.Height = first.Frames[0].Height
	b.Width = first.Frames[0].Width
	frameLen := b.Height * b.Width

	b.Frames = make([]float32, b.Size*b.NFrames*frameLen)
	b.Events = make([]int32, b.Size)
	b.Arrows = make([]int32, b.Size)
	for i, s := range samples {
		if len(s.Frames) != b.NFrames {
			return nil, fmt.Errorf("inconsistent frame counts at example %d: expected %d, got %d",
				indices[i], b.NFrames, len(s.Frames))
		}
		for t, f := range s.Frames {
			if f.Height != b.Height || f.Width != b.Width {
				return nil, fmt.Errorf("inconsistent frame size at example %d: expected %dx%d, got %dx%d",
					indices[i], b.Height, b.Width, f.Height, f.Width)
			}
			copy(b.Frames[(i*b.NFrames+t)*frameLen:], f.Pix)
		}
		b.Events[i] = int32(s.Event)
		b.Arrows[i] = int32(s.Arrow)
	}
	return b, nil
}

// ToGomlxTensors converts the batch into a float32 frames tensor shaped
// [Size, NFrames, Height, Width] and int32 event and arrow label tensors
// shaped [Size].
func (b *Batch) ToGomlxTensors() (frames, events, arrows *tensors.Tensor) {
	frames = tensors.FromShape(shapes.Make(dtypes.Float32, b.Size, b.NFrames, b.Height, b.Width))
	if len(b.Frames) > 0 {
		tensors.MutableFlatData[float32](frames, func(flat []float32) {
			copy(flat, b.Frames)
		})
	}
	events = tensors.FromShape(shapes.Make(dtypes.Int32, b.Size))
	arrows = tensors.FromShape(shapes.Make(dtypes.Int32, b.Size))
	if b.Size > 0 {
		tensors.MutableFlatData[int32](events, func(flat []int32) { copy(flat, b.Events) })
		tensors.MutableFlatData[int32](arrows, func(flat []int32) { copy(flat, b.Arrows) })
	}
	return frames, events, arrows
}

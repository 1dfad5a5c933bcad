package frames

import (
	"fmt"
	"image"
	"image/color"
)

// Frame is a single grayscale image with intensities scaled to [0, 1].
type Frame struct {
	Width  int
	Height int
	// Pix holds Height rows of Width values.
	Pix []float32
}

// NewFrame allocates a zeroed frame.
func NewFrame(height, width int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]float32, width*height)}
}

// At returns the value at row y, column x.
func (f *Frame) At(y, x int) float32 {
	return f.Pix[y*f.Width+x]
}

// FromImage converts a decoded image into a Frame. 8 and 16 bit grayscale
// images are converted directly; anything else goes through color.Gray16Model.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dy(), b.Dx())
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < f.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+f.Width]
			for x, v := range row {
				f.Pix[y*f.Width+x] = float32(v) / 255
			}
		}
	case *image.Gray16:
		for y := 0; y < f.Height; y++ {
			off := y * src.Stride
			for x := 0; x < f.Width; x++ {
				v := uint16(src.Pix[off+2*x])<<8 | uint16(src.Pix[off+2*x+1])
				f.Pix[y*f.Width+x] = float32(v) / 65535
			}
		}
	default:
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				f.Pix[y*f.Width+x] = float32(g.Y) / 65535
			}
		}
	}
	return f
}

// Crop returns a copy of the h x w window whose top-left corner is (y, x).
func (f *Frame) Crop(y, x, h, w int) (*Frame, error) {
	if y < 0 || x < 0 || h <= 0 || w <= 0 || y+h > f.Height || x+w > f.Width {
		return nil, fmt.Errorf("crop %dx%d at (%d,%d) outside frame %dx%d", h, w, y, x, f.Height, f.Width)
	}
	out := NewFrame(h, w)
	for r := 0; r < h; r++ {
		copy(out.Pix[r*w:(r+1)*w], f.Pix[(y+r)*f.Width+x:(y+r)*f.Width+x+w])
	}
	return out, nil
}

// Subsample keeps every k-th row and column.
func (f *Frame) Subsample(k int) *Frame {
	if k <= 1 {
		return f
	}
	h := (f.Height + k - 1) / k
	w := (f.Width + k - 1) / k
	out := NewFrame(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*w+x] = f.At(y*k, x*k)
		}
	}
	return out
}

// FlipH mirrors the frame left to right.
func (f *Frame) FlipH() *Frame {
	out := NewFrame(f.Height, f.Width)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			out.Pix[y*f.Width+x] = f.At(y, f.Width-1-x)
		}
	}
	return out
}

// FlipV mirrors the frame top to bottom.
func (f *Frame) FlipV() *Frame {
	out := NewFrame(f.Height, f.Width)
	for y := 0; y < f.Height; y++ {
		copy(out.Pix[y*f.Width:(y+1)*f.Width], f.Pix[(f.Height-1-y)*f.Width:(f.Height-y)*f.Width])
	}
	return out
}

// Rot90 rotates the frame a quarter turn clockwise.
func (f *Frame) Rot90() *Frame {
	out := NewFrame(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			out.Pix[x*out.Width+(f.Height-1-y)] = f.At(y, x)
		}
	}
	return out
}

// Gray converts the frame back to an 8 bit image, clamping to [0, 1].
func (f *Frame) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for i, v := range f.Pix {
		switch {
		case v <= 0:
			img.Pix[i] = 0
		case v >= 1:
			img.Pix[i] = 255
		default:
			img.Pix[i] = uint8(v*255 + 0.5)
		}
	}
	return img
}

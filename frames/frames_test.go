package frames

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/spf13/afero"
)

func ramp(h, w int, base float32) *Frame {
	f := NewFrame(h, w)
	for i := range f.Pix {
		f.Pix[i] = base + float32(i)/255
	}
	return f
}

func TestStackRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	pages := []*Frame{ramp(4, 5, 0), ramp(4, 5, 0.2), ramp(4, 5, 0.4)}
	if err := SaveStack(fs, "/s.tif", pages); err != nil {
		t.Fatalf("SaveStack: %v", err)
	}

	seq, err := Open(fs, "/s.tif")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seq.Len() != 3 {
		t.Fatalf("Len = %d, want 3", seq.Len())
	}
	if h, w := seq.Dims(); h != 4 || w != 5 {
		t.Fatalf("Dims = %dx%d, want 4x5", h, w)
	}
	for i, want := range pages {
		got, err := seq.Frame(i)
		if err != nil {
			t.Fatalf("Frame(%d): %v", i, err)
		}
		if got.Width != 5 || got.Height != 4 {
			t.Fatalf("Frame(%d) size %dx%d", i, got.Height, got.Width)
		}
		for j := range want.Pix {
			if d := got.Pix[j] - want.Pix[j]; d > 1.0/255 || d < -1.0/255 {
				t.Fatalf("Frame(%d) pix %d = %v, want %v", i, j, got.Pix[j], want.Pix[j])
			}
		}
	}
	if _, err := seq.Frame(3); err == nil {
		t.Error("expected error for page past the end")
	}
}

func TestOpenStackRejectsGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/bad.tif", []byte("not a tiff at all"), 0o644)
	if _, err := OpenStack(fs, "/bad.tif"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i, name := range []string{"/f/002.png", "/f/001.png"} {
		img := image.NewGray(image.Rect(0, 0, 3, 2))
		img.Pix[0] = uint8(10 * (i + 1))
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		afero.WriteFile(fs, name, buf.Bytes(), 0o644)
	}
	afero.WriteFile(fs, "/f/events.csv", []byte("frame,y,x\n"), 0o644)

	seq, err := Open(fs, "/f")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seq.Len() != 2 {
		t.Fatalf("Len = %d, want 2", seq.Len())
	}
	if h, w := seq.Dims(); h != 2 || w != 3 {
		t.Fatalf("Dims = %dx%d, want 2x3", h, w)
	}
	first, err := seq.Frame(0)
	if err != nil {
		t.Fatal(err)
	}
	// 001.png was written second.
	if want := float32(20) / 255; first.Pix[0] != want {
		t.Errorf("first frame pix = %v, want %v", first.Pix[0], want)
	}
}

func TestFolderOfTiffFrames(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i, name := range []string{"/t/0001.tif", "/t/0002.tif"} {
		if err := SaveStack(fs, name, []*Frame{ramp(2, 3, float32(i)*0.5)}); err != nil {
			t.Fatalf("SaveStack: %v", err)
		}
	}

	seq, err := Open(fs, "/t")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := seq.(*Folder); !ok || seq.Len() != 2 {
		t.Fatalf("got %T with %d frames, want a 2 frame folder", seq, seq.Len())
	}
	second, err := seq.Frame(1)
	if err != nil {
		t.Fatalf("Frame(1): %v", err)
	}
	if d := second.Pix[0] - 0.5; d > 1.0/255 || d < -1.0/255 {
		t.Errorf("second frame pix = %v, want 0.5", second.Pix[0])
	}
}

func TestEmptyFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/empty", 0o755)
	afero.WriteFile(fs, "/empty/readme.txt", []byte("x"), 0o644)
	if _, err := OpenFolder(fs, "/empty"); err == nil {
		t.Fatal("expected error for folder without frames")
	}
}

func TestFrameOps(t *testing.T) {
	f := NewFrame(2, 3)
	copy(f.Pix, []float32{1, 2, 3, 4, 5, 6})

	c, err := f.Crop(0, 1, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float32{2, 3, 5, 6}; !equal(c.Pix, want) {
		t.Errorf("Crop = %v, want %v", c.Pix, want)
	}
	if _, err := f.Crop(1, 1, 2, 2); err == nil {
		t.Error("expected out of bounds crop error")
	}
	if want := []float32{3, 2, 1, 6, 5, 4}; !equal(f.FlipH().Pix, want) {
		t.Errorf("FlipH = %v", f.FlipH().Pix)
	}
	if want := []float32{4, 5, 6, 1, 2, 3}; !equal(f.FlipV().Pix, want) {
		t.Errorf("FlipV = %v", f.FlipV().Pix)
	}
	r := f.Rot90()
	if r.Height != 3 || r.Width != 2 {
		t.Fatalf("Rot90 size %dx%d", r.Height, r.Width)
	}
	if want := []float32{4, 1, 5, 2, 6, 3}; !equal(r.Pix, want) {
		t.Errorf("Rot90 = %v, want %v", r.Pix, want)
	}
	if want := []float32{1, 3}; !equal(f.Subsample(2).Pix, want) {
		t.Errorf("Subsample = %v", f.Subsample(2).Pix)
	}
}

func equal(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

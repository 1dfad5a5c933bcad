// Package frames reads image sequences: multi-page TIFF stacks and folders
// holding one image file per frame.
package frames

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Sequence is an ordered run of equally sized frames.
type Sequence interface {
	Path() string
	Len() int
	// Dims reports the frame size without decoding pixel data.
	Dims() (height, width int)
	Frame(i int) (*Frame, error)
}

// FrameSuffixes are the files a Folder treats as frames.
var FrameSuffixes = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}

// Open returns a Folder when path is a directory and a Stack otherwise.
func Open(fsys afero.Fs, path string) (Sequence, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return OpenFolder(fsys, path)
	}
	return OpenStack(fsys, path)
}

// Folder is a directory of single-frame images ordered by file name.
type Folder struct {
	fs    afero.Fs
	path  string
	files []string
	cfg   image.Config
}

// OpenFolder lists the frame files of dir. It fails when there are none.
func OpenFolder(fsys afero.Fs, dir string) (*Folder, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read frame folder %s", dir)
	}
	f := &Folder{fs: fsys, path: dir}
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e.Name()) {
			continue
		}
		f.files = append(f.files, filepath.Join(dir, e.Name()))
	}
	if len(f.files) == 0 {
		return nil, fmt.Errorf("frame folder %s has no image files", dir)
	}
	sort.Strings(f.files)

	first, err := fsys.Open(f.files[0])
	if err != nil {
		return nil, errors.Wrapf(err, "open frame %s", f.files[0])
	}
	defer first.Close()
	if f.cfg, _, err = image.DecodeConfig(first); err != nil {
		return nil, errors.Wrapf(err, "read frame config %s", f.files[0])
	}
	return f, nil
}

func isFrameFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range FrameSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}

func (f *Folder) Path() string { return f.path }

func (f *Folder) Len() int { return len(f.files) }

func (f *Folder) Dims() (height, width int) { return f.cfg.Height, f.cfg.Width }

func (f *Folder) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(f.files) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(f.files))
	}
	file, err := f.fs.Open(f.files[i])
	if err != nil {
		return nil, errors.Wrapf(err, "open frame %s", f.files[i])
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode frame %s", f.files[i])
	}
	return FromImage(img), nil
}

// Files returns the frame file paths in order.
func (f *Folder) Files() []string {
	return append([]string(nil), f.files...)
}

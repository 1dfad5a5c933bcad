package frames

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/image/tiff"
)

// maxPages bounds the IFD walk so a corrupt chain cannot loop forever.
const maxPages = 1 << 20

// ErrUnsupportedTIFF is returned for BigTIFF files and anything without a
// classic TIFF header.
var ErrUnsupportedTIFF = errors.New("unsupported tiff")

// Stack is a multi-page TIFF read one page at a time.
type Stack struct {
	fs      afero.Fs
	path    string
	header  [8]byte
	order   binary.ByteOrder
	offsets []uint32
	height  int
	width   int
}

// OpenStack reads the page table of a multi-page TIFF. Pixel data is only
// decoded by Frame.
func OpenStack(fsys afero.Fs, path string) (*Stack, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open stack %s", path)
	}
	defer f.Close()

	s := &Stack{fs: fsys, path: path}
	if _, err := io.ReadFull(f, s.header[:]); err != nil {
		return nil, errors.Wrapf(err, "read tiff header %s", path)
	}
	switch string(s.header[:2]) {
	case "II":
		s.order = binary.LittleEndian
	case "MM":
		s.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s: %w: bad byte order mark", path, ErrUnsupportedTIFF)
	}
	if magic := s.order.Uint16(s.header[2:4]); magic != 42 {
		return nil, fmt.Errorf("%s: %w: magic %d", path, ErrUnsupportedTIFF, magic)
	}

	ra, ok := f.(io.ReaderAt)
	if !ok {
		return nil, fmt.Errorf("%s: file does not support random access", path)
	}
	seen := make(map[uint32]bool)
	buf := make([]byte, 4)
	for off := s.order.Uint32(s.header[4:8]); off != 0; {
		if seen[off] || len(s.offsets) >= maxPages {
			return nil, fmt.Errorf("%s: %w: cyclic ifd chain", path, ErrUnsupportedTIFF)
		}
		seen[off] = true
		s.offsets = append(s.offsets, off)

		if _, err := ra.ReadAt(buf[:2], int64(off)); err != nil {
			return nil, errors.Wrapf(err, "read ifd %d of %s", len(s.offsets)-1, path)
		}
		n := int64(s.order.Uint16(buf[:2]))
		if _, err := ra.ReadAt(buf, int64(off)+2+12*n); err != nil {
			return nil, errors.Wrapf(err, "read next ifd pointer of %s", path)
		}
		off = s.order.Uint32(buf)
	}
	if len(s.offsets) == 0 {
		return nil, fmt.Errorf("%s: %w: no pages", path, ErrUnsupportedTIFF)
	}

	cfg, err := tiff.DecodeConfig(newPageReader(ra, s.header, s.order, s.offsets[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "read first page config of %s", path)
	}
	s.height, s.width = cfg.Height, cfg.Width
	return s, nil
}

// Path returns the file the stack was opened from.
func (s *Stack) Path() string { return s.path }

// Len returns the number of pages.
func (s *Stack) Len() int { return len(s.offsets) }

// Dims returns the height and width of the first page.
func (s *Stack) Dims() (height, width int) { return s.height, s.width }

// Frame decodes page i.
func (s *Stack) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(s.offsets) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", i, len(s.offsets))
	}
	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open stack %s", s.path)
	}
	defer f.Close()

	ra, ok := f.(io.ReaderAt)
	if !ok {
		return nil, fmt.Errorf("%s: file does not support random access", s.path)
	}
	img, err := tiff.Decode(newPageReader(ra, s.header, s.order, s.offsets[i]))
	if err != nil {
		return nil, errors.Wrapf(err, "decode page %d of %s", i, s.path)
	}
	return FromImage(img), nil
}

// pageReader presents a TIFF whose first-IFD pointer names a chosen page,
// which is how tiff.Decode is pointed at pages other than the first.
type pageReader struct {
	ra     io.ReaderAt
	header [8]byte
	pos    int64
}

func newPageReader(ra io.ReaderAt, header [8]byte, order binary.ByteOrder, ifd uint32) *pageReader {
	order.PutUint32(header[4:8], ifd)
	return &pageReader{ra: ra, header: header}
}

func (p *pageReader) ReadAt(b []byte, off int64) (int, error) {
	n, err := p.ra.ReadAt(b, off)
	for i := int64(0); i < int64(n); i++ {
		if at := off + i; at < int64(len(p.header)) {
			b[i] = p.header[at]
		} else {
			break
		}
	}
	return n, err
}

func (p *pageReader) Read(b []byte) (int, error) {
	n, err := p.ReadAt(b, p.pos)
	p.pos += int64(n)
	return n, err
}

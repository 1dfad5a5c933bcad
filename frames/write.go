package frames

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// TIFF tags written by WriteStack, in ascending order.
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279

	typeShort = 3
	typeLong  = 4

	ifdEntries = 9
	ifdSize    = 2 + ifdEntries*12 + 4
)

// WriteStack encodes frames as an uncompressed 8 bit grayscale multi-page
// TIFF. All frames must share the same size.
func WriteStack(w io.Writer, pages []*Frame) error {
	if len(pages) == 0 {
		return errors.New("write stack: no frames")
	}
	width, height := pages[0].Width, pages[0].Height
	for i, p := range pages {
		if p.Width != width || p.Height != height {
			return fmt.Errorf("write stack: frame %d is %dx%d, want %dx%d", i, p.Height, p.Width, height, width)
		}
	}

	le := binary.LittleEndian
	pageSize := uint32(width * height)
	header := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "write tiff header")
	}

	off := uint32(8)
	for i, p := range pages {
		data := off + ifdSize
		next := uint32(0)
		if i < len(pages)-1 {
			next = data + pageSize
		}
		buf := make([]byte, 0, ifdSize)
		buf = le.AppendUint16(buf, ifdEntries)
		entry := func(tag, typ uint16, val uint32) {
			buf = le.AppendUint16(buf, tag)
			buf = le.AppendUint16(buf, typ)
			buf = le.AppendUint32(buf, 1)
			if typ == typeShort {
				buf = le.AppendUint16(buf, uint16(val))
				buf = le.AppendUint16(buf, 0)
			} else {
				buf = le.AppendUint32(buf, val)
			}
		}
		entry(tagImageWidth, typeLong, uint32(width))
		entry(tagImageLength, typeLong, uint32(height))
		entry(tagBitsPerSample, typeShort, 8)
		entry(tagCompression, typeShort, 1)
		entry(tagPhotometricInterpretation, typeShort, 1)
		entry(tagStripOffsets, typeLong, data)
		entry(tagSamplesPerPixel, typeShort, 1)
		entry(tagRowsPerStrip, typeLong, uint32(height))
		entry(tagStripByteCounts, typeLong, pageSize)
		buf = le.AppendUint32(buf, next)

		if _, err := w.Write(buf); err != nil {
			return errors.Wrapf(err, "write ifd %d", i)
		}
		if _, err := w.Write(p.Gray().Pix); err != nil {
			return errors.Wrapf(err, "write page %d", i)
		}
		off = data + pageSize
	}
	return nil
}

// SaveStack writes frames to path on fsys with WriteStack.
func SaveStack(fsys afero.Fs, path string, pages []*Frame) error {
	f, err := fsys.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteStack(f, pages); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

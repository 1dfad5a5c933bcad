package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/frames"
)

// Event is one annotated occurrence at a frame and pixel position of the
// full-resolution source.
type Event struct {
	Frame int
	Y     int
	X     int
}

// Events indexes a source's annotations by frame.
type Events struct {
	byFrame map[int][]Event
	n       int
}

// Column names accepted for each field of an events file.
var eventColumns = map[string][]string{
	"frame": {"frame", "t", "time", "frame_id", "index"},
	"y":     {"y", "row"},
	"x":     {"x", "col", "column"},
}

// ReadEvents parses CSV with a header naming frame, y and x columns.
// Header names are matched case-insensitively and extra columns are ignored.
func ReadEvents(r io.Reader) (*Events, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}
	cols := make(map[string]int, len(eventColumns))
	for field, names := range eventColumns {
		cols[field] = -1
		for _, name := range names {
			if idx, ok := colIndex[name]; ok {
				cols[field] = idx
				break
			}
		}
		if cols[field] == -1 {
			return nil, fmt.Errorf("required column %q not found in events header %v", field, header)
		}
	}

	ev := &Events{byFrame: make(map[int][]Event)}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read events row %d: %w", line, err)
		}
		var e Event
		for field, dst := range map[string]*int{"frame": &e.Frame, "y": &e.Y, "x": &e.X} {
			v, err := parseCoord(record[cols[field]])
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s on row %d: %w", field, line, err)
			}
			*dst = v
		}
		ev.byFrame[e.Frame] = append(ev.byFrame[e.Frame], e)
		ev.n++
	}
	return ev, nil
}

// parseCoord accepts integer or fractional values and truncates toward zero.
func parseCoord(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Len returns the number of events.
func (e *Events) Len() int {
	if e == nil {
		return 0
	}
	return e.n
}

// Any reports whether an event lies on frame within the window of h x w
// subsampled pixels at (y, x). Event coordinates are divided by subsample.
func (e *Events) Any(frame, y, x, h, w, subsample int) bool {
	if e == nil {
		return false
	}
	for _, ev := range e.byFrame[frame] {
		ey, ex := ev.Y/subsample, ev.X/subsample
		if ey >= y && ey < y+h && ex >= x && ex < x+w {
			return true
		}
	}
	return false
}

// EventsPath returns where the events sidecar of a sequence lives:
// events.csv inside a frame folder, or <name>.events.csv next to <name>.tif.
func EventsPath(seq frames.Sequence) string {
	if _, ok := seq.(*frames.Folder); ok {
		return filepath.Join(seq.Path(), "events.csv")
	}
	p := seq.Path()
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".events.csv"
}

// LoadEvents reads the events sidecar of seq. A missing sidecar yields nil
// and no error: the source simply has no annotations.
func LoadEvents(fsys afero.Fs, seq frames.Sequence) (*Events, error) {
	path := EventsPath(seq)
	f, err := fsys.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open events %s", path)
	}
	defer f.Close()

	ev, err := ReadEvents(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "events %s", path)
	}
	return ev, nil
}

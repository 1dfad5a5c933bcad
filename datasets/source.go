package datasets

import (
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/frames"
)

// Source is an opened sequence with its optional annotations.
type Source struct {
	Seq    frames.Sequence
	Events *Events
}

// Path returns the sequence path.
func (s Source) Path() string { return s.Seq.Path() }

// OpenSources opens every path as a sequence and loads its events sidecar.
func OpenSources(fsys afero.Fs, paths []string, log zerolog.Logger) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		seq, err := frames.Open(fsys, p)
		if err != nil {
			return nil, err
		}
		ev, err := LoadEvents(fsys, seq)
		if err != nil {
			return nil, err
		}
		h, w := seq.Dims()
		log.Debug().
			Str("source", p).
			Int("frames", seq.Len()).
			Int("height", h).
			Int("width", w).
			Int("events", ev.Len()).
			Msg("opened source")
		out = append(out, Source{Seq: seq, Events: ev})
	}
	return out, nil
}

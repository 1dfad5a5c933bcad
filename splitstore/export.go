package splitstore

import (
	"io"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/datasets"
)

// WriteJSON encodes refs as an indented JSON array.
func WriteJSON(w io.Writer, refs []datasets.Ref) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if refs == nil {
		refs = []datasets.Ref{}
	}
	return errors.Wrap(enc.Encode(refs), "encode sample list")
}

// ReadJSON decodes a list written by WriteJSON.
func ReadJSON(r io.Reader) ([]datasets.Ref, error) {
	var refs []datasets.Ref
	if err := json.NewDecoder(r).Decode(&refs); err != nil {
		return nil, errors.Wrap(err, "decode sample list")
	}
	return refs, nil
}

// Export writes train.json, valid.json and test.json into dir.
func Export(fsys afero.Fs, dir string, p Phases) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	for _, phase := range []string{PhaseTrain, PhaseValid, PhaseTest} {
		refs, _ := p.ByName(phase)
		path := filepath.Join(dir, phase+".json")
		f, err := fsys.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		if err := WriteJSON(f, refs); err != nil {
			f.Close()
			return errors.WithMessagef(err, "write %s", path)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "close %s", path)
		}
	}
	return nil
}

// Import reads the three phase files written by Export.
func Import(fsys afero.Fs, dir string) (Phases, error) {
	var p Phases
	for _, dst := range []struct {
		phase string
		refs  *[]datasets.Ref
	}{
		{PhaseTrain, &p.Train},
		{PhaseValid, &p.Valid},
		{PhaseTest, &p.Test},
	} {
		path := filepath.Join(dir, dst.phase+".json")
		f, err := fsys.Open(path)
		if err != nil {
			return Phases{}, errors.Wrapf(err, "open %s", path)
		}
		refs, err := ReadJSON(f)
		f.Close()
		if err != nil {
			return Phases{}, errors.WithMessagef(err, "read %s", path)
		}
		*dst.refs = refs
	}
	return p, nil
}

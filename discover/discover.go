// Package discover resolves root paths into the flat list of leaf sources
// (TIFF stacks or frame folders) that datasets are built from.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrPathNotFound is returned when a configured root does not exist.
var ErrPathNotFound = errors.New("path not found")

// DefaultSuffixes are the sequence-file extensions recognised when expanding directories.
var DefaultSuffixes = []string{".tif", ".tiff"}

// Discoverer expands directories into leaf sources.
type Discoverer struct {
	fs       afero.Fs
	suffixes map[string]struct{}
	log      zerolog.Logger
}

// New creates a Discoverer over fsys. A nil fsys uses the OS filesystem and
// empty suffixes fall back to DefaultSuffixes.
func New(fsys afero.Fs, suffixes []string, log zerolog.Logger) *Discoverer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	set := make(map[string]struct{}, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		set[s] = struct{}{}
	}
	return &Discoverer{fs: fsys, suffixes: set, log: log}
}

// CheckExist fails on the first path that does not exist. field names the
// configuration entry the paths came from and is included in the error.
func (d *Discoverer) CheckExist(field string, paths []string) error {
	for _, p := range paths {
		if _, err := d.fs.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s %w: %s", field, ErrPathNotFound, p)
			}
			return fmt.Errorf("stat %s path %s: %w", field, p, err)
		}
	}
	return nil
}

// Discover expands roots depth times. At depth 0 the roots are returned
// unchanged. Each step replaces a directory by its immediate children that are
// directories or recognised sequence files, in lexical order, and keeps leaf
// files as they are.
func (d *Discoverer) Discover(roots []string, depth int) ([]string, error) {
	if depth < 0 {
		return nil, fmt.Errorf("recursion depth must be >= 0, got %d", depth)
	}
	if err := d.CheckExist("input", roots); err != nil {
		return nil, err
	}

	current := append([]string(nil), roots...)
	for level := 0; level < depth; level++ {
		next := make([]string, 0, len(current))
		for _, p := range current {
			info, err := d.fs.Stat(p)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", p, err)
			}
			if !info.IsDir() {
				next = append(next, p)
				continue
			}
			children, err := d.children(p)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				d.log.Warn().Str("dir", p).Int("level", level+1).Msg("directory has no sequence entries")
			}
			next = append(next, children...)
		}
		current = next
	}

	d.log.Debug().Int("depth", depth).Int("sources", len(current)).Msg("discovered sources")
	return current, nil
}

func (d *Discoverer) children(dir string) ([]string, error) {
	entries, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || d.IsSequenceFile(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// IsSequenceFile reports whether name carries a recognised suffix.
func (d *Discoverer) IsSequenceFile(name string) bool {
	_, ok := d.suffixes[strings.ToLower(filepath.Ext(name))]
	return ok
}

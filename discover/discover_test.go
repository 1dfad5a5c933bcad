package discover

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/logging"
)

// buildTree lays out:
//
//	/data/a.tif
//	/data/notes.txt
//	/data/exp1/b.tif
//	/data/exp1/c.TIFF
//	/data/exp1/frames/0001.tif
//	/data/exp2/
func buildTree(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, p := range []string{
		"/data/a.tif",
		"/data/notes.txt",
		"/data/exp1/b.tif",
		"/data/exp1/c.TIFF",
		"/data/exp1/frames/0001.tif",
	} {
		if err := afero.WriteFile(fsys, p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	if err := fsys.MkdirAll("/data/exp2", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return fsys
}

func TestDiscoverDepthZeroReturnsRoots(t *testing.T) {
	d := New(buildTree(t), nil, logging.Nop())
	roots := []string{"/data", "/data/notes.txt"}
	got, err := d.Discover(roots, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !reflect.DeepEqual(got, roots) {
		t.Fatalf("expected roots unchanged, got %v", got)
	}
}

func TestDiscoverExpandsDirectories(t *testing.T) {
	d := New(buildTree(t), nil, logging.Nop())

	got, err := d.Discover([]string{"/data"}, 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join("/data", "a.tif"),
		filepath.Join("/data", "exp1"),
		filepath.Join("/data", "exp2"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("depth 1: got %v want %v", got, want)
	}

	got, err = d.Discover([]string{"/data"}, 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want = []string{
		filepath.Join("/data", "a.tif"),
		filepath.Join("/data", "exp1", "b.tif"),
		filepath.Join("/data", "exp1", "c.TIFF"),
		filepath.Join("/data", "exp1", "frames"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("depth 2: got %v want %v", got, want)
	}
}

func TestDiscoverIsIdempotentAtDepthZero(t *testing.T) {
	d := New(buildTree(t), nil, logging.Nop())
	first, err := d.Discover([]string{"/data"}, 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	second, err := d.Discover(first, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rediscovery changed the set: %v vs %v", first, second)
	}
}

func TestDiscoverMissingRootFailsFast(t *testing.T) {
	d := New(buildTree(t), nil, logging.Nop())
	_, err := d.Discover([]string{"/data", "/missing"}, 1)
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
	if err := d.CheckExist("train", []string{"/nope"}); err == nil || err.Error() != "train path not found: /nope" {
		t.Fatalf("unexpected CheckExist error: %v", err)
	}
}

func TestDiscoverRejectsNegativeDepth(t *testing.T) {
	d := New(buildTree(t), nil, logging.Nop())
	if _, err := d.Discover([]string{"/data"}, -1); err == nil {
		t.Fatalf("expected error for negative depth")
	}
}

func TestCustomSuffixes(t *testing.T) {
	d := New(buildTree(t), []string{"txt"}, logging.Nop())
	got, err := d.Discover([]string{"/data"}, 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join("/data", "exp1"),
		filepath.Join("/data", "exp2"),
		filepath.Join("/data", "notes.txt"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

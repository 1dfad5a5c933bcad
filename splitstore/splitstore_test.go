package splitstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/splits"
)

func makeRefs(n int) []datasets.Ref {
	refs := make([]datasets.Ref, n)
	for i := range refs {
		refs[i] = datasets.Ref{
			Source: fmt.Sprintf("/data/movie%d.tif", i%3),
			Range:  splits.Range{Start: 0, End: 0.8},
			Index:  i,
			Label:  i % 7 / 6,
		}
	}
	return refs
}

func mustOpen(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "splits.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSplitRatios(t *testing.T) {
	refs := makeRefs(10)
	p, err := Split(refs, 0.6, 0.2, 1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(p.Train) != 6 || len(p.Valid) != 2 || len(p.Test) != 2 {
		t.Fatalf("sizes = %d/%d/%d, want 6/2/2", len(p.Train), len(p.Valid), len(p.Test))
	}
	if p.Fallback {
		t.Error("unexpected fallback")
	}

	var all []int
	for _, r := range slices.Concat(p.Train, p.Valid, p.Test) {
		all = append(all, r.Index)
	}
	slices.Sort(all)
	for i, idx := range all {
		if idx != i {
			t.Fatalf("split lost or duplicated samples: %v", all)
		}
	}

	again, _ := Split(refs, 0.6, 0.2, 1)
	if !slices.Equal(p.Train, again.Train) {
		t.Error("same seed produced a different split")
	}
	if refs[0].Index != 0 || refs[9].Index != 9 {
		t.Error("Split reordered its input")
	}
}

func TestSplitSmallFallback(t *testing.T) {
	p, err := Split(makeRefs(2), 0.6, 0.2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Fallback || len(p.Train) != 2 || len(p.Valid) != 0 || len(p.Test) != 2 {
		t.Errorf("fallback split = %d/%d/%d fallback=%v", len(p.Train), len(p.Valid), len(p.Test), p.Fallback)
	}
	if _, err := Split(makeRefs(5), 0.9, 0.2, 1); err == nil {
		t.Error("expected error for ratios above 1")
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	p, err := Split(makeRefs(20), 0.6, 0.2, 3)
	if err != nil {
		t.Fatal(err)
	}
	run := Run{
		ID:         "run-1",
		Name:       "fine-tune",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Seed:       3,
		TrainRatio: 0.6,
		ValidRatio: 0.2,
		Options:    datasets.Options{NFrames: 2, Deltas: []int{1, 2}, Size: 48, Seed: 1 << 63},
	}
	if err := store.Save(ctx, run, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotRun, got, err := store.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !gotRun.CreatedAt.Equal(run.CreatedAt) || gotRun.Name != run.Name || gotRun.Seed != run.Seed {
		t.Errorf("run = %+v, want %+v", gotRun, run)
	}
	if gotRun.Options.Seed != run.Options.Seed || !slices.Equal(gotRun.Options.Deltas, run.Options.Deltas) {
		t.Errorf("options = %+v, want %+v", gotRun.Options, run.Options)
	}
	if !slices.Equal(got.Train, p.Train) || !slices.Equal(got.Valid, p.Valid) || !slices.Equal(got.Test, p.Test) {
		t.Error("loaded phases differ from saved phases")
	}

	if err := store.Save(ctx, run, p); err == nil {
		t.Error("expected duplicate id error")
	}
	if _, _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("got %v, want ErrRunNotFound", err)
	}
}

func TestStoreRunsAndDelete(t *testing.T) {
	store := mustOpen(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, n := range []int{2, 10} {
		p, err := Split(makeRefs(n), 0.6, 0.2, 1)
		if err != nil {
			t.Fatal(err)
		}
		run := Run{ID: fmt.Sprintf("run-%d", i), CreatedAt: base.Add(time.Duration(i) * time.Hour), TrainRatio: 0.6, ValidRatio: 0.2}
		if err := store.Save(ctx, run, p); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-1" {
		t.Fatalf("runs = %+v, want run-1 first", runs)
	}
	if runs[0].Train != 6 || runs[0].Valid != 2 || runs[0].Test != 2 {
		t.Errorf("run-1 counts = %d/%d/%d", runs[0].Train, runs[0].Valid, runs[0].Test)
	}
	// makeRefs labels index 6 positive.
	if runs[0].Positives != 1 {
		t.Errorf("run-1 positives = %d, want 1", runs[0].Positives)
	}
	if !runs[1].Fallback {
		t.Error("run-0 should be a fallback split")
	}

	if err := store.Delete(ctx, "run-0"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "run-0"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second Delete = %v, want ErrRunNotFound", err)
	}
	runs, _ = store.Runs(ctx)
	if len(runs) != 1 {
		t.Errorf("runs after delete = %d, want 1", len(runs))
	}
}

func TestExportImport(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Split(makeRefs(12), 0.5, 0.25, 9)
	if err != nil {
		t.Fatal(err)
	}
	if err := Export(fs, "/out/split", p); err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := Import(fs, "/out/split")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !slices.Equal(got.Train, p.Train) || !slices.Equal(got.Valid, p.Valid) || !slices.Equal(got.Test, p.Test) {
		t.Error("imported phases differ")
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if refs, err := ReadJSON(&buf); err != nil || len(refs) != 0 {
		t.Errorf("empty list round trip = %v, %v", refs, err)
	}
}

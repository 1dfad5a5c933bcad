package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Noofbiz/framesets/frames"
	"github.com/Noofbiz/framesets/logging"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, out)
	}
}

// setupMovies writes two 30 frame stacks under base/movies, with events at
// frames 5 and 12 of the first, and a config pointing at them.
func setupMovies(t *testing.T) (base, configPath string) {
	t.Helper()
	base = t.TempDir()
	fs := afero.NewOsFs()
	movies := filepath.Join(base, "movies")
	if err := os.MkdirAll(movies, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"a.tif", "b.tif"} {
		pages := make([]*frames.Frame, 30)
		for k := range pages {
			pages[k] = frames.NewFrame(8, 8)
			for i := range pages[k].Pix {
				pages[k].Pix[i] = float32(k) / 255
			}
		}
		if err := frames.SaveStack(fs, filepath.Join(movies, name), pages); err != nil {
			t.Fatalf("SaveStack: %v", err)
		}
	}
	events := "frame,y,x\n5,3,3\n12,4,4\n"
	if err := os.WriteFile(filepath.Join(movies, "a.events.csv"), []byte(events), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}

	configPath = filepath.Join(base, "framesets.toml")
	cfg := fmt.Sprintf(`[input]
train = [%q]

[discovery]
depth = 1

[split]
train = [0.0, 0.8]
val = [0.8, 1.0]

[frames]
n_frames = 2
deltas = [1]
size = 0

[sampling]
train_samples = 50
val_samples = 10
balanced_size = 10
visual_samples = 3

[loader]
workers = 2
batch_size = 8

[output]
dir = %q
timestamp = false

[logging]
level = "error"
format = "json"
`, movies, filepath.Join(base, "runs"))
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return base, configPath
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "framesets.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}

	_, configPath := setupMovies(t)
	out, err = runCLI(t, "config", "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "(0, 0.8)")
}

func TestMissingTrainPath(t *testing.T) {
	_, configPath := setupMovies(t)
	_, err := runCLI(t, "build", "-c", configPath, "--train", "/does/not/exist")
	if err == nil || !strings.Contains(err.Error(), "train path not found") {
		t.Fatalf("expected train path error, got %v", err)
	}
}

func TestMissingValPathFailsBeforeBuilding(t *testing.T) {
	_, configPath := setupMovies(t)
	out, err := runCLI(t, "build", "-c", configPath, "--val", "/does/not/exist", "--log-level", "info")
	if err == nil || !strings.Contains(err.Error(), "val path not found") {
		t.Fatalf("expected val path error, got %v", err)
	}
	if strings.Contains(out, "dataset built") || strings.Contains(out, "TRAIN") {
		t.Fatalf("train dataset composed before the val root was checked:\n%s", out)
	}

	_, err = runCLI(t, "split", "-c", configPath, "--val", "/does/not/exist")
	if err == nil || !strings.Contains(err.Error(), "val path not found") {
		t.Fatalf("split: expected val path error, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	base, configPath := setupMovies(t)
	out, err := runCLI(t, "build", "-c", configPath, "--out", "--plot", "--visual")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	requireContains(t, out, "TRAIN")
	requireContains(t, out, "VAL")
	// 24 frames in (0, 0.8) give 23 two-frame windows per source.
	requireContains(t, out, "46")
	requireContains(t, out, "Wrote 2 visual stacks")

	runDir := filepath.Join(base, "runs", "framesets_build")
	for _, name := range []string{"config.yaml", "labels.png", filepath.Join("visual", "000_a.tif"), filepath.Join("visual", "001_b.tif")} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("expected %s in run dir: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, runLockName)); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}

	stack, err := frames.OpenStack(afero.NewOsFs(), filepath.Join(runDir, "visual", "000_a.tif"))
	if err != nil {
		t.Fatalf("OpenStack visual: %v", err)
	}
	if stack.Len() == 0 || stack.Len()%2 != 0 {
		t.Errorf("visual stack has %d frames, want a positive multiple of 2", stack.Len())
	}

	// A second build must not reuse the existing directory.
	if _, err := runCLI(t, "build", "-c", configPath, "--out"); err != nil {
		t.Fatalf("second build: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(base, "runs"))
	if err != nil {
		t.Fatalf("read runs: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 run directories, got %d", len(entries))
	}
}

func TestSample(t *testing.T) {
	base, configPath := setupMovies(t)
	plot := filepath.Join(base, "draws.png")
	out, err := runCLI(t, "sample", "-c", configPath, "--epochs", "2", "--plot", plot, "--load")
	if err != nil {
		t.Fatalf("sample: %v\n%s", err, out)
	}
	requireContains(t, out, "train epoch 1")
	requireContains(t, out, "Decoded 100 samples")
	if _, err := os.Stat(plot); err != nil {
		t.Errorf("expected histogram: %v", err)
	}

	// Events at frames 5 and 12 make four positive windows; balanced_size 10
	// clamps to four per class.
	out, err = runCLI(t, "sample", "-c", configPath, "--balanced")
	if err != nil {
		t.Fatalf("balanced sample: %v\n%s", err, out)
	}
	requireContains(t, out, "draws")
	if !regexp.MustCompile(`positives\s*│\s*4 \(50\.0%\)`).MatchString(out) {
		t.Errorf("expected 4 positives out of 8 draws:\n%s", out)
	}

	if _, err := runCLI(t, "sample", "-c", configPath, "--phase", "test"); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestSplitAndRuns(t *testing.T) {
	base, configPath := setupMovies(t)
	out, err := runCLI(t, "split", "-c", configPath)
	if err != nil {
		t.Fatalf("split: %v\n%s", err, out)
	}
	m := regexp.MustCompile(`Stored split (\S+) in`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no run id in output:\n%s", out)
	}
	id := m[1]
	for _, name := range []string{"train.json", "valid.json", "test.json", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(base, "runs", "framesets_split", name)); err != nil {
			t.Errorf("expected export %s: %v", name, err)
		}
	}

	out, err = runCLI(t, "runs", "list", "-c", configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, id)
	// 46 samples: 27 train, 9 valid, 10 test.
	requireContains(t, out, "27/9/10")

	out, err = runCLI(t, "runs", "check", id, "-c", configPath)
	if err != nil {
		t.Fatalf("runs check: %v\n%s", err, out)
	}
	requireContains(t, out, "train: 27 samples, 0 label mismatches")

	exportDir := filepath.Join(base, "exported")
	if _, err := runCLI(t, "runs", "export", id, exportDir, "-c", configPath); err != nil {
		t.Fatalf("runs export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportDir, "train.json")); err != nil {
		t.Errorf("expected exported train list: %v", err)
	}

	if _, err := runCLI(t, "runs", "delete", id, "-c", configPath); err != nil {
		t.Fatalf("runs delete: %v", err)
	}
	out, err = runCLI(t, "runs", "list", "-c", configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No stored splits")
	if _, err := runCLI(t, "runs", "delete", id, "-c", configPath); err == nil {
		t.Error("expected error deleting a missing run")
	}
}

func TestRunDirNaming(t *testing.T) {
	now := time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC)
	if got := runDirName("movies", "build", false, now); got != "movies_build" {
		t.Errorf("runDirName = %q", got)
	}
	if got := runDirName("movies", "build", true, now); got != "03-07-09-05-01_movies_build" {
		t.Errorf("runDirName stamped = %q", got)
	}

	fs := afero.NewMemMapFs()
	path, name, err := resolveRunDir(fs, "/runs", "movies_build", now, logging.Nop())
	if err != nil || path != "/runs/movies_build" || name != "movies_build" {
		t.Fatalf("resolveRunDir fresh = %q %q %v", path, name, err)
	}
	if err := fs.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	path, name, err = resolveRunDir(fs, "/runs", "movies_build", now, logging.Nop())
	if err != nil || name != "03-07-09-05-01_movies_build" || path != "/runs/03-07-09-05-01_movies_build" {
		t.Fatalf("resolveRunDir collision = %q %q %v", path, name, err)
	}
}

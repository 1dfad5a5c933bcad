package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	runStampLayout = "01-02-15-04-05"
	runLockName    = ".framesets.lock"
)

// runDir is an output directory held under an exclusive lock.
type runDir struct {
	Path string
	Name string
	lock *flock.Flock
}

// runDirName builds the directory name for a run: name plus suffix,
// prefixed by a timestamp when stamp is set.
func runDirName(name, suffix string, stamp bool, now time.Time) string {
	out := name
	if suffix != "" {
		out = fmt.Sprintf("%s_%s", name, suffix)
	}
	if stamp {
		out = fmt.Sprintf("%s_%s", now.Format(runStampLayout), out)
	}
	return out
}

// resolveRunDir picks the run directory under base. An existing directory is
// never reused: the time stamp is prepended again.
func resolveRunDir(fsys afero.Fs, base, name string, now time.Time, log zerolog.Logger) (string, string, error) {
	path := filepath.Join(base, name)
	_, err := fsys.Stat(path)
	switch {
	case err == nil:
		log.Info().Str("run", name).Msg("run name already exists, prepending timestamp")
		name = fmt.Sprintf("%s_%s", now.Format(runStampLayout), name)
		path = filepath.Join(base, name)
		if _, err := fsys.Stat(path); err == nil {
			return "", "", fmt.Errorf("run directory %s already exists", path)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("run", name).Msg("run name")
	default:
		return "", "", fmt.Errorf("stat run directory: %w", err)
	}
	return path, name, nil
}

// createRunDir creates the run directory on the OS filesystem and locks it.
func createRunDir(base, name string, log zerolog.Logger) (*runDir, error) {
	fsys := afero.NewOsFs()
	path, name, err := resolveRunDir(fsys, base, name, time.Now(), log)
	if err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory %q: %w", path, err)
	}

	lock := flock.New(filepath.Join(path, runLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("run directory %s is in use by another process", path)
	}
	return &runDir{Path: path, Name: name, lock: lock}, nil
}

func (r *runDir) file(name string) string {
	return filepath.Join(r.Path, name)
}

// Close releases the lock and removes the lock file.
func (r *runDir) Close() error {
	if err := r.lock.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return afero.NewOsFs().Remove(r.lock.Path())
}

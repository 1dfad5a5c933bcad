package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// RunRecord is the effective configuration of one run plus provenance.
type RunRecord struct {
	RunID     string    `yaml:"run_id"`
	Command   string    `yaml:"command"`
	StartedAt time.Time `yaml:"started_at"`
	GoVersion string    `yaml:"go_version"`
	Revision  string    `yaml:"revision,omitempty"`
	Modified  bool      `yaml:"modified,omitempty"`
	Sources   []string  `yaml:"sources,omitempty"`
	Config    *Config   `yaml:"config"`
}

// NewRunRecord fills provenance from the running binary.
func NewRunRecord(runID, command string, cfg *Config) RunRecord {
	rec := RunRecord{
		RunID:     runID,
		Command:   command,
		StartedAt: time.Now().UTC(),
		GoVersion: runtime.Version(),
		Config:    cfg,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				rec.Revision = s.Value
			case "vcs.modified":
				rec.Modified = s.Value == "true"
			}
		}
	}
	return rec
}

// SaveRunRecord writes rec as YAML to path on fsys. The file is written to a
// temporary name and renamed into place.
func SaveRunRecord(fsys afero.Fs, path string, rec RunRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmpFile, err := afero.TempFile(fsys, dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp run record: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		_ = fsys.Remove(tmpName)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp run record: %w", err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename run record: %w", err)
	}
	return nil
}

// LoadRunRecord reads a record written by SaveRunRecord.
func LoadRunRecord(fsys afero.Fs, path string) (RunRecord, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run record: %w", err)
	}
	var rec RunRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return RunRecord{}, fmt.Errorf("parse run record %s: %w", path, err)
	}
	return rec, nil
}

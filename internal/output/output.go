// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes a run's buckets to a timestamped directory and
// reads them back.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// File names inside a run directory. The top bucket is written to
// <name>.yaml.
const (
	FilteredFile  = "filtered_data.yaml"
	RunConfigFile = "run_config.yaml"
)

const dirTimeFmt = "2006-01-02_15-04-05"

// now is replaced in tests.
var now = time.Now

// Filtered is the on-disk layout of filtered_data.yaml: every item that
// did not make the top bucket, grouped by why.
type Filtered struct {
	DataWithoutContent  *store.Store `yaml:"data_without_content"`
	LessRelevantData    *store.Store `yaml:"less_relevant_data"`
	RejectedByRelevance *store.Store `yaml:"rejected_by_relevance"`

	// LegacyWithoutContent reads the misspelled key written by older runs.
	// ReadFiltered folds it into DataWithoutContent; Write never sets it.
	LegacyWithoutContent *store.Store `yaml:"data_witout_content,omitempty"`
}

// Run describes a written run directory.
type Run struct {
	Name string
	Dir  string
}

// TopFile returns the path of the top bucket file.
func (r Run) TopFile() string {
	return filepath.Join(r.Dir, r.Name+".yaml")
}

// CreateRunDir creates <runsDir>/<timestamp>_<name>/ and returns it.
func CreateRunDir(runsDir, name string) (Run, error) {
	dir := filepath.Join(runsDir, now().Format(dirTimeFmt)+"_"+name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Run{}, fmt.Errorf("creating run directory: %w", err)
	}
	return Run{Name: name, Dir: dir}, nil
}

// Write saves res and the run configuration into run's directory.
func Write(run Run, res pipeline.Result, cfg types.RunConfig) error {
	if err := writeYAML(run.TopFile(), res.Top); err != nil {
		return err
	}
	filtered := Filtered{
		DataWithoutContent:  res.NoContent,
		LessRelevantData:    res.LowRelevance,
		RejectedByRelevance: res.Rejected,
	}
	if err := writeYAML(filepath.Join(run.Dir, FilteredFile), &filtered); err != nil {
		return err
	}
	return writeYAML(filepath.Join(run.Dir, RunConfigFile), &cfg)
}

// ReadStore loads a store written by Write, such as the top bucket file.
func ReadStore(path string) (*store.Store, error) {
	s := store.New()
	if err := readYAML(path, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFiltered loads filtered_data.yaml. Missing sections come back as
// empty stores, and the legacy data_witout_content key is merged into
// DataWithoutContent.
func ReadFiltered(path string) (*Filtered, error) {
	var f Filtered
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	for _, s := range []**store.Store{&f.DataWithoutContent, &f.LessRelevantData, &f.RejectedByRelevance} {
		if *s == nil {
			*s = store.New()
		}
	}
	f.DataWithoutContent.Merge(f.LegacyWithoutContent)
	f.LegacyWithoutContent = nil
	return &f, nil
}

// ReadRunConfig loads run_config.yaml.
func ReadRunConfig(path string) (*types.RunConfig, error) {
	var cfg types.RunConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Result reassembles the four buckets from a run directory.
func (r Run) Result() (pipeline.Result, error) {
	top, err := ReadStore(r.TopFile())
	if err != nil {
		return pipeline.Result{}, err
	}
	f, err := ReadFiltered(filepath.Join(r.Dir, FilteredFile))
	if err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{
		Top:          top,
		NoContent:    f.DataWithoutContent,
		LowRelevance: f.LessRelevantData,
		Rejected:     f.RejectedByRelevance,
	}, nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

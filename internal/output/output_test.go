// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/pkg/types"
)

func fixedNow(t *testing.T) {
	t.Helper()
	orig := now
	now = func() time.Time { return time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC) }
	t.Cleanup(func() { now = orig })
}

func sampleResult() pipeline.Result {
	res := pipeline.NewResult()

	top := types.NewItem()
	top.Set(types.FieldURL, "https://github.com/acme/widget")
	top.Set(types.FieldStars, 120)
	top.Set(types.FieldSummary, "A widget toolkit.")
	top.AddAnswer("Does it support Docker?", "Yes, it ships a Dockerfile.")
	res.Top.Add("github", "acme/widget", top)

	second := types.NewItem()
	second.Set(types.FieldURL, "https://github.com/acme/gadget")
	res.Top.Add("github", "acme/gadget", second)

	empty := types.NewItem()
	empty.Set(types.FieldContent, "")
	res.NoContent.Add("github", "acme/empty", empty)

	low := types.NewItem()
	low.Set(types.FieldSummary, "Unrelated.")
	res.LowRelevance.Add("arxiv", "Some Paper", low)

	res.Rejected.Add("github", "acme/extra", types.NewItem())
	return res
}

func TestCreateRunDir(t *testing.T) {
	fixedNow(t)
	root := t.TempDir()

	run, err := CreateRunDir(root, "docker_tools")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "2025-03-07_09-05-01_docker_tools"), run.Dir)
	assert.Equal(t, filepath.Join(run.Dir, "docker_tools.yaml"), run.TopFile())
	info, err := os.Stat(run.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteCreatesThreeFiles(t *testing.T) {
	fixedNow(t)
	run, err := CreateRunDir(t.TempDir(), "tools")
	require.NoError(t, err)

	cfg := types.RunConfig{
		SearchPhrases:         []string{"docker tools"},
		Platforms:             []string{"github", "arxiv"},
		MaxOutputsPerPlatform: 2,
		TimeHorizon:           "last year",
		SpecificQuestions:     []string{"Does it support Docker?"},
	}
	require.NoError(t, Write(run, sampleResult(), cfg))

	for _, name := range []string{"tools.yaml", FilteredFile, RunConfigFile} {
		_, err := os.Stat(filepath.Join(run.Dir, name))
		assert.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(run.Dir, FilteredFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "data_without_content:")
	assert.NotContains(t, string(raw), "data_witout_content")
	assert.Contains(t, string(raw), "less_relevant_data:")
	assert.Contains(t, string(raw), "rejected_by_relevance:")

	back, err := ReadRunConfig(filepath.Join(run.Dir, RunConfigFile))
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, *back); diff != "" {
		t.Errorf("run config mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteThenReadResult(t *testing.T) {
	fixedNow(t)
	run, err := CreateRunDir(t.TempDir(), "tools")
	require.NoError(t, err)
	want := sampleResult()
	require.NoError(t, Write(run, want, types.RunConfig{}))

	got, err := run.Result()
	require.NoError(t, err)

	for _, b := range pipeline.Buckets {
		if diff := cmp.Diff(want.Store(b).Serialize(), got.Store(b).Serialize()); diff != "" {
			t.Errorf("bucket %s mismatch (-want +got):\n%s", b, diff)
		}
	}
	assert.Equal(t, []string{"acme/widget", "acme/gadget"}, got.Top.Titles("github"))

	widget, ok := got.Top.Get("github", "acme/widget")
	require.True(t, ok)
	answer, ok := widget.QA().Answer("Does it support Docker?")
	require.True(t, ok)
	assert.Equal(t, "Yes, it ships a Dockerfile.", answer)
}

func TestReadFilteredFillsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), FilteredFile)
	require.NoError(t, os.WriteFile(path, []byte("less_relevant_data:\n  arxiv:\n    P:\n      summary: s\n"), 0o644))

	f, err := ReadFiltered(path)
	require.NoError(t, err)
	assert.True(t, f.DataWithoutContent.IsEmpty())
	assert.True(t, f.RejectedByRelevance.IsEmpty())
	assert.Equal(t, []string{"P"}, f.LessRelevantData.Titles("arxiv"))
}

func TestReadFilteredAcceptsLegacyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), FilteredFile)
	body := "data_witout_content:\n  github:\n    Old:\n      url: u1\n" +
		"data_without_content:\n  github:\n    New:\n      url: u2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	f, err := ReadFiltered(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Old"}, f.DataWithoutContent.Titles("github"))
	assert.Nil(t, f.LegacyWithoutContent)
}

func TestReadStoreErrors(t *testing.T) {
	_, err := ReadStore(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading missing.yaml")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- just\n- a list\n"), 0o644))
	_, err = ReadStore(bad)
	assert.ErrorContains(t, err, "parsing bad.yaml")
}

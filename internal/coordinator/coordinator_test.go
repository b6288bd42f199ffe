// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/internal/source"
	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// fixedAdapter returns the same candidates for every query; each item's
// content is its title unless listed in empty.
type fixedAdapter struct {
	name   string
	titles []string
	empty  map[string]bool
}

func (a *fixedAdapter) Name() string { return a.name }

func (a *fixedAdapter) Fetch(_ context.Context, _ string, limit int) ([]source.RawItem, error) {
	var out []source.RawItem
	for _, t := range a.titles {
		if len(out) == limit {
			break
		}
		meta := types.NewItem()
		meta.Set(types.FieldURL, "https://"+a.name+"/"+t)
		out = append(out, source.RawItem{ID: t, Title: t, Meta: meta})
	}
	return out, nil
}

func (a *fixedAdapter) FilterLowQuality(items []source.RawItem) []source.RawItem { return items }

func (a *fixedAdapter) CollectDetails(ctx context.Context, items []source.RawItem) (*store.Store, error) {
	return source.CollectDetails(ctx, a, items, source.DetailOptions{})
}

func (a *fixedAdapter) FetchDetailContent(_ context.Context, id string) (string, error) {
	if a.empty[id] {
		return "", nil
	}
	return "content of " + id, nil
}

// yesSummarizer accepts every answer.
type yesSummarizer struct{}

func (yesSummarizer) Summarize(_ context.Context, c string) (string, bool, error) {
	return "summary: " + c, false, nil
}
func (yesSummarizer) OrganizeIntoOne(_ context.Context, s string) (string, error) { return s, nil }
func (yesSummarizer) AskQuestion(_ context.Context, q, _, _ string) (string, error) {
	return "yes to " + q, nil
}
func (yesSummarizer) ValidateAgainstContent(context.Context, string, string) (bool, error) {
	return true, nil
}
func (yesSummarizer) ValidateAgainstKnowledge(context.Context, string, string) (bool, error) {
	return true, nil
}
func (yesSummarizer) NameRun(context.Context, []string, []string) (string, error) { return "run", nil }

func factory(adapters ...*fixedAdapter) AdapterFactory {
	return func(name string) (source.Adapter, error) {
		for _, a := range adapters {
			if a.name == name {
				return a, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", source.ErrUnknownPlatform, name)
	}
}

func params() pipeline.Params {
	return pipeline.Params{
		Queries:               []string{"q"},
		SourcesPerQuery:       3,
		Questions:             []string{"useful?"},
		MaxOutputsPerPlatform: 2,
	}
}

func TestRunSkipsUnknownPlatform(t *testing.T) {
	gh := &fixedAdapter{name: "github", titles: []string{"a/a", "b/b", "c/c"}, empty: map[string]bool{"c/c": true}}
	ax := &fixedAdapter{name: "arxiv", titles: []string{"paper"}}
	c := New(factory(gh, ax), yesSummarizer{}, pipeline.Options{})

	out := c.Run(context.Background(), []string{"GitHub", "myspace", "arxiv"}, params())

	assert.Equal(t, []string{"github", "arxiv"}, out.Platforms)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "myspace", out.Skipped[0].Platform)
	assert.Contains(t, out.Skipped[0].Reason, "unknown platform")

	assert.Equal(t, []string{"github", "arxiv"}, out.Top.Platforms())
	assert.Equal(t, []string{"a/a", "b/b"}, out.Top.Titles("github"))
	assert.Equal(t, []string{"paper"}, out.Top.Titles("arxiv"))
	assert.Equal(t, []string{"c/c"}, out.NoContent.Titles("github"))
	assert.True(t, out.Rejected.IsEmpty())
}

func TestRunRejectedOverQuota(t *testing.T) {
	gh := &fixedAdapter{name: "github", titles: []string{"1", "2", "3"}}
	c := New(factory(gh), yesSummarizer{}, pipeline.Options{})

	p := params()
	p.MaxOutputsPerPlatform = 1
	out := c.Run(context.Background(), []string{"github"}, p)

	assert.Equal(t, []string{"1"}, out.Top.Titles("github"))
	assert.Equal(t, []string{"2", "3"}, out.Rejected.Titles("github"))
	it, _ := out.Top.Get("github", "1")
	answer, ok := it.QA().Answer("useful?")
	require.True(t, ok)
	assert.Equal(t, "yes to useful?", answer)
}

func TestRunRepeatedPlatformRunsOnce(t *testing.T) {
	calls := 0
	gh := &fixedAdapter{name: "github", titles: []string{"x"}}
	f := func(name string) (source.Adapter, error) {
		calls++
		return gh, nil
	}
	out := New(f, yesSummarizer{}, pipeline.Options{}).Run(context.Background(), []string{"github", " GITHUB ", ""}, params())
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"github"}, out.Platforms)
}

func TestRunInvalidParamsSkipsPlatform(t *testing.T) {
	gh := &fixedAdapter{name: "github", titles: []string{"x"}}
	p := params()
	p.SourcesPerQuery = 0
	out := New(factory(gh), yesSummarizer{}, pipeline.Options{}).Run(context.Background(), []string{"github"}, p)

	require.Len(t, out.Skipped, 1)
	assert.Contains(t, out.Skipped[0].Reason, "sources_per_query")
	assert.True(t, out.Top.IsEmpty())
}

func TestRunCancelledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gh := &fixedAdapter{name: "github", titles: []string{"x"}}
	out := New(factory(gh), yesSummarizer{}, pipeline.Options{}).Run(ctx, []string{"github"}, params())
	require.Len(t, out.Skipped, 1)
	assert.Empty(t, out.Platforms)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pdiddy/source-scout/internal/source"
	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// mockAdapter serves canned candidates per query and detail content per ID.
type mockAdapter struct {
	name       string
	results    map[string][]source.RawItem
	fetchErr   map[string]error
	content    map[string]string
	collectErr error

	mu          sync.Mutex
	fetchLimits []int
	collected   [][]string
}

func (m *mockAdapter) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockAdapter) Fetch(_ context.Context, query string, limit int) ([]source.RawItem, error) {
	m.mu.Lock()
	m.fetchLimits = append(m.fetchLimits, limit)
	m.mu.Unlock()
	if err := m.fetchErr[query]; err != nil {
		return nil, err
	}
	items := m.results[query]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *mockAdapter) FilterLowQuality(items []source.RawItem) []source.RawItem {
	var out []source.RawItem
	for _, it := range items {
		if !it.Hint("low_quality") {
			out = append(out, it)
		}
	}
	return out
}

func (m *mockAdapter) CollectDetails(ctx context.Context, items []source.RawItem) (*store.Store, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	m.mu.Lock()
	m.collected = append(m.collected, ids)
	m.mu.Unlock()
	if m.collectErr != nil {
		return nil, m.collectErr
	}
	return source.CollectDetails(ctx, m, items, source.DetailOptions{Parallelism: 2})
}

func (m *mockAdapter) FetchDetailContent(_ context.Context, id string) (string, error) {
	text, ok := m.content[id]
	if !ok {
		return "", fmt.Errorf("no detail for %s", id)
	}
	return text, nil
}

// rawItem builds a candidate whose title and ID are both id.
func rawItem(id string, lowQuality bool) source.RawItem {
	meta := types.NewItem()
	meta.Set(types.FieldURL, "https://example.com/"+id)
	meta.Set(types.FieldDescription, "about "+id)
	return source.RawItem{ID: id, Title: id, Meta: meta, Hints: map[string]any{"low_quality": lowQuality}}
}

// mockSummarizer answers "<question> @ <content>". Content validation
// passes unless the content appears in rejectContent for that question;
// knowledge validation passes unless the question is in rejectKnowledge.
type mockSummarizer struct {
	combine         map[string]bool
	failSummarize   map[string]bool
	failOrganize    bool
	failAsk         map[string]bool
	rejectContent   map[string]map[string]bool // question -> content -> reject
	rejectKnowledge map[string]bool

	mu         sync.Mutex
	summarized []string
	askedWith  []string
}

func (m *mockSummarizer) Summarize(_ context.Context, content string) (string, bool, error) {
	m.mu.Lock()
	m.summarized = append(m.summarized, content)
	m.mu.Unlock()
	if m.failSummarize[content] {
		return "", false, errors.New("model unavailable")
	}
	if m.combine[content] {
		return "Part 1: " + content + "\n\nPart 2: more", true, nil
	}
	return "summary of " + content, false, nil
}

func (m *mockSummarizer) OrganizeIntoOne(_ context.Context, sectioned string) (string, error) {
	if m.failOrganize {
		return "", errors.New("organize failed")
	}
	return fmt.Sprintf("organized %d parts", strings.Count(sectioned, "Part ")), nil
}

func (m *mockSummarizer) AskQuestion(_ context.Context, question, content, summary string) (string, error) {
	m.mu.Lock()
	m.askedWith = append(m.askedWith, summary)
	m.mu.Unlock()
	if m.failAsk[question] {
		return "", errors.New("ask failed")
	}
	return question + " @ " + content, nil
}

func (m *mockSummarizer) ValidateAgainstContent(_ context.Context, question, answer string) (bool, error) {
	_, content, _ := strings.Cut(answer, " @ ")
	return !m.rejectContent[question][content], nil
}

func (m *mockSummarizer) ValidateAgainstKnowledge(_ context.Context, question, _ string) (bool, error) {
	if m.rejectKnowledge[question] {
		return false, nil
	}
	return true, nil
}

func (m *mockSummarizer) NameRun(context.Context, []string, []string) (string, error) {
	return "mock_run", nil
}

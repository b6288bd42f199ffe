// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/source-scout/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// fakeModel answers each prompt with reply(prompt) and records prompts.
type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string, call int) (string, error)
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	prompt := input[len(input)-1].Content
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()

	text, err := f.reply(prompt, call)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func testLLMConfig() types.LLMConfig {
	return types.LLMConfig{AIConfig: types.AIConfig{MaxRetries: 2}, ChunkSize: 100}
}

func TestSummarizeShortContent(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "  A chat UI.  ", nil }}
	s := NewChatSummarizer(fm, testLLMConfig())

	summary, combined, err := s.Summarize(context.Background(), "README text")
	require.NoError(t, err)
	assert.False(t, combined)
	assert.Equal(t, "A chat UI.", summary)
	require.Len(t, fm.prompts, 1)
	assert.Contains(t, fm.prompts[0], "README text")
}

func TestSummarizeLongContentIsSectioned(t *testing.T) {
	fm := &fakeModel{reply: func(_ string, call int) (string, error) {
		return map[int]string{1: "first", 2: "second", 3: "third"}[call], nil
	}}
	s := NewChatSummarizer(fm, testLLMConfig())

	line := strings.Repeat("x", 60) + "\n"
	summary, combined, err := s.Summarize(context.Background(), line+line+line)
	require.NoError(t, err)
	assert.True(t, combined)
	assert.Equal(t, "Part 1: first\n\nPart 2: second\n\nPart 3: third", summary)
}

func TestSummarizeRetriesThenSucceeds(t *testing.T) {
	fm := &fakeModel{reply: func(_ string, call int) (string, error) {
		if call < 3 {
			return "", errors.New("429 too many requests")
		}
		return "ok", nil
	}}
	s := NewChatSummarizer(fm, testLLMConfig())

	summary, _, err := s.Summarize(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "ok", summary)
	assert.Len(t, fm.prompts, 3)
}

func TestSummarizeExhaustsRetries(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "", errors.New("boom") }}
	s := NewChatSummarizer(fm, testLLMConfig())

	_, _, err := s.Summarize(context.Background(), "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, fm.prompts, 3, "1 initial + 2 retries")
}

func TestAskQuestionPrompt(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "Yes, via Docker Compose.", nil }}
	s := NewChatSummarizer(fm, testLLMConfig())

	answer, err := s.AskQuestion(context.Background(), "Does it support Docker?", "docker-compose.yml included", "A UI.")
	require.NoError(t, err)
	assert.Equal(t, "Yes, via Docker Compose.", answer)
	assert.Contains(t, fm.prompts[0], "Question: Does it support Docker?")
	assert.Contains(t, fm.prompts[0], "docker-compose.yml included")
	assert.Contains(t, fm.prompts[0], "A UI.")
}

func TestValidations(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"**YES** it does", true},
		{"\"yes\"", true},
		{"no", false},
		{"Not really, yes-ish", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			fm := &fakeModel{reply: func(string, int) (string, error) { return tt.reply, nil }}
			s := NewChatSummarizer(fm, testLLMConfig())

			ok, err := s.ValidateAgainstContent(context.Background(), "q", "a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			ok, err = s.ValidateAgainstKnowledge(context.Background(), "q", "a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestValidationErrorIsFalse(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "", errors.New("down") }}
	s := NewChatSummarizer(fm, types.LLMConfig{})

	ok, err := s.ValidateAgainstKnowledge(context.Background(), "q", "a")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNameRun(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "\"Local LLM Front-Ends\"", nil }}
	s := NewChatSummarizer(fm, testLLMConfig())

	name, err := s.NameRun(context.Background(), []string{"open web ui"}, []string{"Docker?"})
	require.NoError(t, err)
	assert.Equal(t, "local_llm_front_ends", name)
	assert.Contains(t, fm.prompts[0], "- open web ui")
	assert.Contains(t, fm.prompts[0], "- Docker?")
}

func TestNameRunFailureFallsBack(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "", errors.New("down") }}
	s := NewChatSummarizer(fm, types.LLMConfig{})

	name, err := s.NameRun(context.Background(), nil, nil)
	assert.Error(t, err)
	assert.Equal(t, "run", name)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "open_web_ui_docker", Slug("  Open Web-UI: Docker!! "))
	assert.Equal(t, "run", Slug("¿¡!"))
	long := Slug(strings.Repeat("abcde ", 20))
	assert.LessOrEqual(t, len(long), 60)
	assert.False(t, strings.HasSuffix(long, "_"))
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitChunks("short", 10))
	assert.Equal(t, []string{"aaaa\n", "bbbb\n", "cc"}, splitChunks("aaaa\nbbbb\ncc", 6))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, splitChunks("abcdefghijk", 5))
}

func TestCompleteHonoursCancellation(t *testing.T) {
	fm := &fakeModel{reply: func(string, int) (string, error) { return "", errors.New("fail") }}
	old := backoffBase
	backoffBase = time.Second
	defer func() { backoffBase = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s := NewChatSummarizer(fm, testLLMConfig())
	_, err := s.OrganizeIntoOne(ctx, "Part 1: a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

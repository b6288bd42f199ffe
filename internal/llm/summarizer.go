// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm summarizes source content and checks it against questions
// through a chat model.
package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/pkg/types"
)

// Summarizer is the capability the pipeline needs from a language model.
// Implementations must be safe for concurrent use.
type Summarizer interface {
	// Summarize condenses content. combined is true when the content was
	// summarized in parts and summary holds one section per part.
	Summarize(ctx context.Context, content string) (summary string, combined bool, err error)

	// OrganizeIntoOne merges a sectioned summary into a single one.
	OrganizeIntoOne(ctx context.Context, sectioned string) (string, error)

	// AskQuestion answers question from content and its summary.
	AskQuestion(ctx context.Context, question, content, summary string) (string, error)

	// ValidateAgainstContent reports whether answer addresses question.
	ValidateAgainstContent(ctx context.Context, question, answer string) (bool, error)

	// ValidateAgainstKnowledge reports whether answer is consistent with
	// general knowledge.
	ValidateAgainstKnowledge(ctx context.Context, question, answer string) (bool, error)

	// NameRun proposes a filesystem-safe name for a run.
	NameRun(ctx context.Context, queries, questions []string) (string, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

const (
	defaultChunkSize = 12000
	maxRunNameLen    = 60
	fallbackRunName  = "run"
)

// ChatSummarizer implements Summarizer over an eino chat model.
type ChatSummarizer struct {
	model      model.BaseChatModel
	limiter    *rate.Limiter
	maxRetries int
	chunkSize  int
	log        *logrus.Entry
}

// NewChatSummarizer wraps m with the rate limit, retry count, and chunk
// size from cfg.
func NewChatSummarizer(m model.BaseChatModel, cfg types.LLMConfig) *ChatSummarizer {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &ChatSummarizer{
		model:      m,
		limiter:    rate.NewLimiter(limit, max(cfg.Burst, 1)),
		maxRetries: max(cfg.MaxRetries, 0),
		chunkSize:  chunk,
		log:        logging.Component("llm"),
	}
}

// Summarize summarizes content in one call when it fits the chunk size,
// otherwise per part, returning "Part N:" sections and combined=true.
func (s *ChatSummarizer) Summarize(ctx context.Context, content string) (string, bool, error) {
	parts := splitChunks(content, s.chunkSize)
	if len(parts) <= 1 {
		out, err := s.complete(ctx, summarizeTmpl, struct{ Content string }{content})
		return out, false, err
	}

	sections := make([]string, 0, len(parts))
	for i, part := range parts {
		out, err := s.complete(ctx, summarizeTmpl, struct{ Content string }{part})
		if err != nil {
			return "", true, fmt.Errorf("summarizing part %d/%d: %w", i+1, len(parts), err)
		}
		sections = append(sections, fmt.Sprintf("Part %d: %s", i+1, out))
	}
	return strings.Join(sections, "\n\n"), true, nil
}

// OrganizeIntoOne merges a sectioned summary.
func (s *ChatSummarizer) OrganizeIntoOne(ctx context.Context, sectioned string) (string, error) {
	return s.complete(ctx, organizeTmpl, struct{ Summary string }{sectioned})
}

// AskQuestion answers question. Content beyond the chunk size is cut so
// the prompt stays bounded; the summary covers the remainder.
func (s *ChatSummarizer) AskQuestion(ctx context.Context, question, content, summary string) (string, error) {
	if parts := splitChunks(content, s.chunkSize); len(parts) > 1 {
		content = parts[0]
	}
	return s.complete(ctx, askTmpl, struct{ Question, Content, Summary string }{question, content, summary})
}

// ValidateAgainstContent asks the model whether answer addresses question.
func (s *ChatSummarizer) ValidateAgainstContent(ctx context.Context, question, answer string) (bool, error) {
	out, err := s.complete(ctx, validateContentTmpl, struct{ Question, Answer string }{question, answer})
	if err != nil {
		return false, err
	}
	return isYes(out), nil
}

// ValidateAgainstKnowledge asks the model whether answer is plausible.
func (s *ChatSummarizer) ValidateAgainstKnowledge(ctx context.Context, question, answer string) (bool, error) {
	out, err := s.complete(ctx, validateKnowledgeTmpl, struct{ Question, Answer string }{question, answer})
	if err != nil {
		return false, err
	}
	return isYes(out), nil
}

// NameRun asks the model for a run name and returns it as a snake_case
// slug of at most 60 characters ("run" when nothing usable comes back).
func (s *ChatSummarizer) NameRun(ctx context.Context, queries, questions []string) (string, error) {
	out, err := s.complete(ctx, nameRunTmpl, struct{ Queries, Questions []string }{queries, questions})
	if err != nil {
		return fallbackRunName, err
	}
	return Slug(out), nil
}

// complete renders t, waits for the limiter, and calls the model,
// retrying failures with exponential backoff.
func (s *ChatSummarizer) complete(ctx context.Context, t *template.Template, data any) (string, error) {
	prompt, err := render(t, data)
	if err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			s.log.WithField("prompt", t.Name()).Warnf("model call failed, retrying in %v: %v", backoff, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := s.model.Generate(ctx, msgs)
		if err == nil {
			s.log.WithField("prompt", t.Name()).Debugf("model replied with %d chars", len(resp.Content))
			return strings.TrimSpace(resp.Content), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%s: after %d retries: %w", t.Name(), s.maxRetries, lastErr)
}

// splitChunks cuts text into pieces of at most size runes, preferring
// line boundaries. Text that fits returns a single piece.
func splitChunks(text string, size int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		return []string{text}
	}
	var chunks []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		for len(r) > size {
			flush()
			chunks = append(chunks, string(r[:size]))
			r = r[size:]
		}
		if len(cur)+len(r) > size {
			flush()
		}
		cur = append(cur, r...)
	}
	flush()
	return chunks
}

// isYes reports whether a model reply starts with "yes", ignoring case,
// whitespace, quotes, and markdown emphasis.
func isYes(reply string) bool {
	reply = strings.TrimLeftFunc(reply, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.HasPrefix(strings.ToLower(reply), "yes")
}

// Slug lower-cases s and joins its alphanumeric runs with underscores,
// capped at 60 characters. An empty result becomes "run".
func Slug(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	out := b.String()
	if len(out) > maxRunNameLen {
		out = strings.TrimRight(out[:maxRunNameLen], "_")
	}
	if out == "" {
		return fallbackRunName
	}
	return out
}

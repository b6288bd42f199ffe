// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/pdiddy/source-scout/pkg/types"
)

// claudeMaxTokens caps each reply; the Messages API requires a limit.
const claudeMaxTokens = 1024

// NewChatModel builds the chat model named by cfg.Provider: "openai" for
// any OpenAI-compatible endpoint (the default) or "anthropic".
func NewChatModel(ctx context.Context, cfg types.LLMConfig) (model.BaseChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider needs llm.api_key or a base_url for a local endpoint")
		}
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		return m, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider needs llm.api_key")
		}
		cc := &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: claudeMaxTokens,
		}
		if cfg.BaseURL != "" {
			base := strings.TrimRight(cfg.BaseURL, "/")
			cc.BaseURL = &base
		}
		m, err := claude.NewChatModel(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want openai or anthropic)", cfg.Provider)
	}
}

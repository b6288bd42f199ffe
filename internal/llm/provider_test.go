// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/source-scout/pkg/types"
)

func TestNewChatModel(t *testing.T) {
	ctx := context.Background()

	m, err := NewChatModel(ctx, types.LLMConfig{Provider: "anthropic", BaseURL: "http://localhost:9/", AIConfig: types.AIConfig{APIKey: "k", Model: "claude"}})
	require.NoError(t, err)
	_, ok := m.(*claude.ChatModel)
	assert.True(t, ok)

	m, err = NewChatModel(ctx, types.LLMConfig{Provider: " Anthropic ", AIConfig: types.AIConfig{APIKey: "k", Model: "claude"}})
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = NewChatModel(ctx, types.LLMConfig{Provider: "anthropic"})
	assert.Error(t, err)

	_, err = NewChatModel(ctx, types.LLMConfig{Provider: "openai"})
	assert.Error(t, err)

	m, err = NewChatModel(ctx, types.LLMConfig{Provider: "OpenAI", BaseURL: "http://localhost:11434/v1", AIConfig: types.AIConfig{APIKey: "sk-local", Model: "llama3"}})
	require.NoError(t, err)
	_, ok = m.(*openai.ChatModel)
	assert.True(t, ok)

	_, err = NewChatModel(ctx, types.LLMConfig{Provider: "mystery"})
	assert.Error(t, err)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared configuration and data structures for the
// source-scout pipeline.
package types

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by platform adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RunConfig is the user-facing description of one run: what to search for,
// where, and which questions decide relevance. It is written next to the
// results as run_config.yaml.
type RunConfig struct {
	// SearchPhrases are the queries sent to every platform, in order.
	SearchPhrases []string `json:"search_phrases" yaml:"search_phrases" mapstructure:"search_phrases"`

	// Platforms names the adapters to run, in order (e.g. "github", "arxiv").
	Platforms []string `json:"platforms" yaml:"platforms" mapstructure:"platforms"`

	// MaxOutputsPerPlatform caps the top bucket per platform.
	MaxOutputsPerPlatform int `json:"max_outputs_per_platform" yaml:"max_outputs_per_platform" mapstructure:"max_outputs_per_platform"`

	// TimeHorizon is a free-form recency hint kept with the run. The
	// pipeline does not interpret it.
	TimeHorizon string `json:"time_horizon,omitempty" yaml:"time_horizon,omitempty" mapstructure:"time_horizon"`

	// SpecificQuestions are the relevance questions asked of every source.
	SpecificQuestions []string `json:"specific_questions" yaml:"specific_questions" mapstructure:"specific_questions"`
}

// NormalizedPlatforms returns the platform names lower-cased and trimmed,
// dropping blanks.
func (c RunConfig) NormalizedPlatforms() []string {
	var out []string
	for _, p := range c.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExecutionConfig holds tuning knobs that do not change what a run means.
type ExecutionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SourcesPerQuery is how many sources each query keeps per platform.
	SourcesPerQuery int `json:"sources_per_query" yaml:"sources_per_query" mapstructure:"sources_per_query"`

	// OverfetchFactor multiplies SourcesPerQuery when fetching raw
	// candidates, leaving room for the quality filter (default 2).
	OverfetchFactor int `json:"overfetch_factor" yaml:"overfetch_factor" mapstructure:"overfetch_factor"`

	// Parallelism bounds concurrent detail fetches and LLM tagging per
	// platform (default 1).
	Parallelism int `json:"parallelism" yaml:"parallelism" mapstructure:"parallelism"`

	// MaxContentChars truncates fetched page text (default 20000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LLMConfig selects and tunes the chat model behind summarization.
type LLMConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// RequestsPerMinute limits the call rate (default 60).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// Burst is the limiter burst size (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// ChunkSize is the largest content, in characters, summarized in one
	// call. Longer content is summarized per part (default 12000).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`
}

// PlatformsConfig carries per-platform credentials and endpoints.
type PlatformsConfig struct {
	HTTPConfig `json:"-" yaml:"-" mapstructure:"-"`

	// GitHubToken authenticates GitHub API calls.
	GitHubToken string `json:"github_token,omitempty" yaml:"github_token,omitempty" mapstructure:"github_token"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as mailto for OpenAlex's polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// SearXNGURL is the base URL of the SearXNG instance behind "web".
	SearXNGURL string `json:"searxng_url,omitempty" yaml:"searxng_url,omitempty" mapstructure:"searxng_url"`

	// RSSFeeds lists the feed URLs behind "rss".
	RSSFeeds []string `json:"rss_feeds,omitempty" yaml:"rss_feeds,omitempty" mapstructure:"rss_feeds"`

	// Parallelism bounds concurrent detail fetches (copied from execution).
	Parallelism int `json:"-" yaml:"-" mapstructure:"-"`

	// MaxContentChars truncates fetched page text (copied from execution).
	MaxContentChars int `json:"-" yaml:"-" mapstructure:"-"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	// RunsDir is the parent of per-run output directories.
	RunsDir string `json:"runs_dir" yaml:"runs_dir" mapstructure:"runs_dir"`

	// ArchivePath is the SQLite run archive. Empty disables archiving.
	ArchivePath string `json:"archive_path" yaml:"archive_path" mapstructure:"archive_path"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all settings for a source-scout invocation.
type Config struct {
	Run       RunConfig       `json:"run" yaml:"run" mapstructure:"run"`
	Execution ExecutionConfig `json:"execution" yaml:"execution" mapstructure:"execution"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Platforms PlatformsConfig `json:"platforms" yaml:"platforms" mapstructure:"platforms"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Run: RunConfig{
			MaxOutputsPerPlatform: 7,
		},
		Execution: ExecutionConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "source-scout/0.1",
			},
			SourcesPerQuery: 5,
			OverfetchFactor: 2,
			Parallelism:     1,
			MaxContentChars: 20000,
		},
		LLM: LLMConfig{
			AIConfig: AIConfig{
				Model:      "gpt-4o-mini",
				MaxRetries: 3,
			},
			Provider:          "openai",
			RequestsPerMinute: 60,
			Burst:             1,
			ChunkSize:         12000,
		},
		Output: OutputConfig{
			RunsDir:     "runs",
			ArchivePath: "runs/archive.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the settings a run cannot proceed without.
func (c Config) Validate() error {
	var problems []string
	if len(c.Run.SearchPhrases) == 0 {
		problems = append(problems, "no search phrases configured")
	}
	if len(c.Run.NormalizedPlatforms()) == 0 {
		problems = append(problems, "no platforms configured")
	}
	if c.Execution.SourcesPerQuery < 1 {
		problems = append(problems, fmt.Sprintf("sources_per_query must be at least 1, got %d", c.Execution.SourcesPerQuery))
	}
	if c.Run.MaxOutputsPerPlatform < 0 {
		problems = append(problems, fmt.Sprintf("max_outputs_per_platform must not be negative, got %d", c.Run.MaxOutputsPerPlatform))
	}
	if c.Execution.OverfetchFactor < 1 {
		problems = append(problems, fmt.Sprintf("overfetch_factor must be at least 1, got %d", c.Execution.OverfetchFactor))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/source-scout/internal/secrets"
	"github.com/pdiddy/source-scout/pkg/types"
)

// envKeys are bound explicitly so SOURCE_SCOUT_* variables reach Unmarshal
// even when the config file does not mention the key.
var envKeys = []string{
	"llm.provider",
	"llm.model",
	"llm.api_key",
	"llm.base_url",
	"platforms.github_token",
	"platforms.semantic_scholar_api_key",
	"platforms.openalex_email",
	"platforms.searxng_url",
	"output.runs_dir",
	"output.archive_path",
	"log.level",
	"log.file",
}

// loadConfig decodes viper's settings over the defaults and fills missing
// credentials from .secrets/.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.LLM.APIKey = secrets.Fill(loadedSecrets, secrets.LLMAPIKey, cfg.LLM.APIKey)
	cfg.Platforms.GitHubToken = secrets.Fill(loadedSecrets, secrets.GitHubToken, cfg.Platforms.GitHubToken)
	cfg.Platforms.SemanticScholarAPIKey = secrets.Fill(loadedSecrets, secrets.SemanticScholarAPIKey, cfg.Platforms.SemanticScholarAPIKey)

	cfg.Platforms.HTTPConfig = cfg.Execution.HTTPConfig
	cfg.Platforms.Parallelism = cfg.Execution.Parallelism
	cfg.Platforms.MaxContentChars = cfg.Execution.MaxContentChars
	return cfg, nil
}

// applyRunFlags overrides run parameters with any flags the user set.
// Repeatable flags replace the configured list rather than extend it.
func applyRunFlags(cmd *cobra.Command, cfg *types.Config) {
	flags := cmd.Flags()
	if flags.Changed("query") {
		cfg.Run.SearchPhrases, _ = flags.GetStringArray("query")
	}
	if flags.Changed("platform") {
		cfg.Run.Platforms, _ = flags.GetStringSlice("platform")
	}
	if flags.Changed("question") {
		cfg.Run.SpecificQuestions, _ = flags.GetStringArray("question")
	}
	if flags.Changed("max-outputs") {
		cfg.Run.MaxOutputsPerPlatform, _ = flags.GetInt("max-outputs")
	}
	if flags.Changed("sources-per-query") {
		cfg.Execution.SourcesPerQuery, _ = flags.GetInt("sources-per-query")
	}
	if flags.Changed("parallelism") {
		cfg.Execution.Parallelism, _ = flags.GetInt("parallelism")
		cfg.Platforms.Parallelism = cfg.Execution.Parallelism
	}
	if flags.Changed("runs-dir") {
		cfg.Output.RunsDir, _ = flags.GetString("runs-dir")
	}
}

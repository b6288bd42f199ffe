//go:build mage

package main

const configFile = "source-scout.yaml"

// starterConfig is written by Init when no config exists.
const starterConfig = `run:
  search_phrases:
    - "container orchestration tools"
  platforms: [github, arxiv, semantic_scholar, openalex]
  max_outputs_per_platform: 7
  specific_questions:
    - "Does it support Docker?"

execution:
  timeout: 30s
  sources_per_query: 5
  overfetch_factor: 2
  parallelism: 2
  max_content_chars: 20000

llm:
  provider: openai
  model: gpt-4o-mini
  requests_per_minute: 60

platforms:
  openalex_email: ""
  searxng_url: ""
  rss_feeds: []

output:
  runs_dir: runs
  archive_path: runs/archive.db

log:
  level: info
  file: logs/source-scout.log
`

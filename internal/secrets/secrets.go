// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// The filename is the key name and the trimmed file contents are the value.
//
// Recognised keys: github-token, semantic-scholar-api-key, llm-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/source-scout/internal/logging"
)

// Key names read by the CLI.
const (
	GitHubToken           = "github-token"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	LLMAPIKey             = "llm-api-key"
)

// Load reads every regular file in dir. A missing directory is not an
// error and yields an empty map. Unreadable files are logged and skipped;
// empty files and dotfiles are ignored.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logging.Component("secrets").WithField("key", name).Warnf("could not read secret: %v", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Fill returns current when it is set, otherwise the secret stored under key.
func Fill(secrets map[string]string, key, current string) string {
	if current != "" {
		return current
	}
	return secrets[key]
}

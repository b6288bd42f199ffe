// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// githubAPIBase is the GitHub REST root. Declared as a var so tests can
// substitute an httptest server.
var githubAPIBase = "https://api.github.com"

const githubMaxPerPage = 100

// GitHub searches repositories, most-starred first, and uses the README
// as detail content.
type GitHub struct {
	get   getter
	token string
	opts  DetailOptions
}

// NewGitHub returns the GitHub adapter. The token is optional; without
// one the unauthenticated rate limit applies.
func NewGitHub(cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	return &GitHub{
		get:   newGetter(client, cfg),
		token: cfg.GitHubToken,
		opts:  DetailOptions{Parallelism: cfg.Parallelism, MaxContentChars: cfg.MaxContentChars},
	}, nil
}

// Name returns the platform key.
func (g *GitHub) Name() string { return "github" }

func (g *GitHub) headers() map[string]string {
	h := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if g.token != "" {
		h["Authorization"] = "Bearer " + g.token
	}
	return h
}

// Fetch runs a repository search sorted by stars.
func (g *GitHub) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	params := url.Values{
		"q":        {query},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(min(limit, githubMaxPerPage))},
	}
	resp, err := g.get.get(ctx, githubAPIBase+"/search/repositories?"+params.Encode(), g.headers())
	if err != nil {
		return nil, fmt.Errorf("GitHub search: %w", err)
	}
	defer resp.Body.Close()

	var sr githubSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing GitHub response: %w", err)
	}

	items := make([]RawItem, 0, min(len(sr.Items), limit))
	for _, repo := range sr.Items {
		if len(items) == limit {
			break
		}
		meta := types.NewItem()
		meta.Set(types.FieldURL, repo.HTMLURL)
		meta.Set(types.FieldDescription, repo.Description)
		meta.Set(types.FieldLanguage, repo.Language)
		meta.Set(types.FieldStars, repo.Stars)
		items = append(items, RawItem{
			ID:    repo.FullName,
			Title: repo.FullName,
			Meta:  meta,
			Hints: map[string]any{"archived": repo.Archived, "fork": repo.Fork},
		})
	}
	return items, nil
}

// FilterLowQuality drops archived repositories, forks, and repositories
// without a description.
func (g *GitHub) FilterLowQuality(items []RawItem) []RawItem {
	var out []RawItem
	for _, it := range items {
		if it.Hint("archived") || it.Hint("fork") {
			continue
		}
		if it.Meta == nil || strings.TrimSpace(it.Meta.GetString(types.FieldDescription)) == "" {
			continue
		}
		out = append(out, it)
	}
	return dedupe(out)
}

// CollectDetails fetches READMEs for items.
func (g *GitHub) CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error) {
	return CollectDetails(ctx, g, items, g.opts)
}

// FetchDetailContent returns the decoded README of the "owner/name" repo.
func (g *GitHub) FetchDetailContent(ctx context.Context, id string) (string, error) {
	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" {
		return "", fmt.Errorf("invalid repository name %q", id)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/readme", githubAPIBase, url.PathEscape(owner), url.PathEscape(name))
	resp, err := g.get.get(ctx, u, g.headers())
	if err != nil {
		return "", fmt.Errorf("fetching README for %s: %w", id, err)
	}
	defer resp.Body.Close()

	var rd githubReadme
	if err := json.NewDecoder(resp.Body).Decode(&rd); err != nil {
		return "", fmt.Errorf("parsing README for %s: %w", id, err)
	}
	if rd.Encoding != "" && rd.Encoding != "base64" {
		return rd.Content, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(rd.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decoding README for %s: %w", id, err)
	}
	return string(data), nil
}

type githubSearchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []githubRepo `json:"items"`
}

type githubRepo struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
	Archived    bool   `json:"archived"`
	Fork        bool   `json:"fork"`
}

type githubReadme struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

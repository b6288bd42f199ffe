// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API root. Declared as a
// var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const (
	semanticSearchFields = "title,abstract,authors,year,publicationDate,url,externalIds"
	semanticDetailFields = "title,abstract,tldr"
	semanticMaxLimit     = 100
)

// SemanticScholar searches the Semantic Scholar paper index.
type SemanticScholar struct {
	get    getter
	apiKey string
	opts   DetailOptions
}

// NewSemanticScholar returns the Semantic Scholar adapter. The API key is
// optional and only raises rate limits.
func NewSemanticScholar(cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	return &SemanticScholar{
		get:    newGetter(client, cfg),
		apiKey: cfg.SemanticScholarAPIKey,
		opts:   DetailOptions{Parallelism: cfg.Parallelism, MaxContentChars: cfg.MaxContentChars},
	}, nil
}

// Name returns the platform key.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

func (s *SemanticScholar) headers() map[string]string {
	if s.apiKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": s.apiKey}
}

// Fetch runs a relevance-ranked paper search.
func (s *SemanticScholar) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(min(limit, semanticMaxLimit))},
		"fields": {semanticSearchFields},
	}
	resp, err := s.get.get(ctx, semanticAPIBase+"/paper/search?"+params.Encode(), s.headers())
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	items := make([]RawItem, 0, len(sr.Data))
	for _, p := range sr.Data {
		meta := types.NewItem()
		link := p.URL
		if link == "" && p.PaperID != "" {
			link = "https://www.semanticscholar.org/paper/" + p.PaperID
		}
		meta.Set(types.FieldURL, link)
		meta.Set(types.FieldDescription, excerpt(p.Abstract, descriptionChars))
		var authors []string
		for _, a := range p.Authors {
			authors = append(authors, a.Name)
		}
		if len(authors) > 0 {
			meta.Set(types.FieldAuthors, authors)
		}
		switch {
		case p.PublicationDate != "":
			meta.Set(types.FieldPublished, p.PublicationDate)
		case p.Year > 0:
			meta.Set(types.FieldPublished, strconv.Itoa(p.Year))
		}
		items = append(items, RawItem{
			ID:    p.PaperID,
			Title: strings.TrimSpace(p.Title),
			Meta:  meta,
			Hints: map[string]any{"abstract": strings.TrimSpace(p.Abstract) != ""},
		})
	}
	return items, nil
}

// FilterLowQuality drops papers without an ID, title, or abstract.
func (s *SemanticScholar) FilterLowQuality(items []RawItem) []RawItem {
	var out []RawItem
	for _, it := range items {
		if it.ID == "" || it.Title == "" || !it.Hint("abstract") {
			continue
		}
		out = append(out, it)
	}
	return dedupe(out)
}

// CollectDetails fetches abstracts and TL;DRs for items.
func (s *SemanticScholar) CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error) {
	return CollectDetails(ctx, s, items, s.opts)
}

// FetchDetailContent returns title, abstract, and TL;DR of one paper.
func (s *SemanticScholar) FetchDetailContent(ctx context.Context, id string) (string, error) {
	u := fmt.Sprintf("%s/paper/%s?fields=%s", semanticAPIBase, url.PathEscape(id), semanticDetailFields)
	resp, err := s.get.get(ctx, u, s.headers())
	if err != nil {
		return "", fmt.Errorf("Semantic Scholar paper %s: %w", id, err)
	}
	defer resp.Body.Close()

	var p semanticPaper
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return "", fmt.Errorf("parsing Semantic Scholar paper %s: %w", id, err)
	}

	var parts []string
	for _, s := range []string{p.Title, p.Abstract} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if p.TLDR != nil && strings.TrimSpace(p.TLDR.Text) != "" {
		parts = append(parts, "TL;DR: "+strings.TrimSpace(p.TLDR.Text))
	}
	return strings.Join(parts, "\n\n"), nil
}

type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string           `json:"paperId"`
	Title           string           `json:"title"`
	Abstract        string           `json:"abstract"`
	Year            int              `json:"year"`
	PublicationDate string           `json:"publicationDate"`
	URL             string           `json:"url"`
	Authors         []semanticAuthor `json:"authors"`
	TLDR            *semanticTLDR    `json:"tldr"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticTLDR struct {
	Text string `json:"text"`
}

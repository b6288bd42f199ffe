// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

const (
	openAlexMaxPerPage = 200
	openAlexIDPrefix   = "https://openalex.org/"
)

// OpenAlex searches the OpenAlex catalogue of scholarly works.
type OpenAlex struct {
	get   getter
	email string
	opts  DetailOptions
}

// NewOpenAlex returns the OpenAlex adapter. No key is needed; an email
// moves requests into the polite pool.
func NewOpenAlex(cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	return &OpenAlex{
		get:   newGetter(client, cfg),
		email: cfg.OpenAlexEmail,
		opts:  DetailOptions{Parallelism: cfg.Parallelism, MaxContentChars: cfg.MaxContentChars},
	}, nil
}

// Name returns the platform key.
func (o *OpenAlex) Name() string { return "openalex" }

func (o *OpenAlex) params(v url.Values) url.Values {
	if o.email != "" {
		v.Set("mailto", o.email)
	}
	return v
}

// Fetch runs a relevance-ranked works search.
func (o *OpenAlex) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	params := o.params(url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(min(limit, openAlexMaxPerPage))},
		"page":     {"1"},
	})
	resp, err := o.get.get(ctx, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	items := make([]RawItem, 0, len(oar.Results))
	for _, w := range oar.Results {
		abstract := reconstructAbstract(w.AbstractInvertedIndex)

		meta := types.NewItem()
		link := w.DOI
		if link == "" {
			link = w.ID
		}
		meta.Set(types.FieldURL, link)
		meta.Set(types.FieldDescription, excerpt(abstract, descriptionChars))
		var authors []string
		for _, a := range w.Authorships {
			if a.Author.DisplayName != "" {
				authors = append(authors, a.Author.DisplayName)
			}
		}
		if len(authors) > 0 {
			meta.Set(types.FieldAuthors, authors)
		}
		switch {
		case w.PublicationDate != "":
			meta.Set(types.FieldPublished, w.PublicationDate)
		case w.PublicationYear > 0:
			meta.Set(types.FieldPublished, strconv.Itoa(w.PublicationYear))
		}
		meta.Set(types.FieldCitedBy, w.CitedByCount)

		items = append(items, RawItem{
			ID:    strings.TrimPrefix(w.ID, openAlexIDPrefix),
			Title: strings.TrimSpace(w.Title),
			Meta:  meta,
			Hints: map[string]any{
				"abstract":  abstract != "",
				"retracted": w.IsRetracted,
			},
		})
	}
	return items, nil
}

// FilterLowQuality drops retracted works and works without an ID, title,
// or abstract.
func (o *OpenAlex) FilterLowQuality(items []RawItem) []RawItem {
	var out []RawItem
	for _, it := range items {
		if it.ID == "" || it.Title == "" || !it.Hint("abstract") || it.Hint("retracted") {
			continue
		}
		out = append(out, it)
	}
	return dedupe(out)
}

// CollectDetails fetches the abstract of each work.
func (o *OpenAlex) CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error) {
	return CollectDetails(ctx, o, items, o.opts)
}

// FetchDetailContent returns the title, abstract, and topic names of one
// work.
func (o *OpenAlex) FetchDetailContent(ctx context.Context, id string) (string, error) {
	u := openAlexAPIBase + "/" + url.PathEscape(id)
	if q := o.params(url.Values{}); len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := o.get.get(ctx, u, nil)
	if err != nil {
		return "", fmt.Errorf("OpenAlex work %s: %w", id, err)
	}
	defer resp.Body.Close()

	var w openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return "", fmt.Errorf("parsing OpenAlex work %s: %w", id, err)
	}

	var parts []string
	if t := strings.TrimSpace(w.Title); t != "" {
		parts = append(parts, t)
	}
	if a := reconstructAbstract(w.AbstractInvertedIndex); a != "" {
		parts = append(parts, a)
	}
	var topics []string
	for _, t := range w.Topics {
		if t.DisplayName != "" {
			topics = append(topics, t.DisplayName)
		}
	}
	if len(topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(topics, ", "))
	}
	return strings.Join(parts, "\n\n"), nil
}

// reconstructAbstract rebuilds plain text from OpenAlex's inverted index,
// which maps each word to the positions it occupies.
func reconstructAbstract(index map[string][]int) string {
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range index {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos, word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	IsRetracted           bool                 `json:"is_retracted"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Topics                []openAlexTopic      `json:"topics"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexTopic struct {
	DisplayName string `json:"display_name"`
}

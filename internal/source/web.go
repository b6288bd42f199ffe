// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/cockroachdb/errors"

	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// Web searches the open web through a SearXNG instance and reads the
// linked pages.
type Web struct {
	get     getter
	baseURL string
	opts    DetailOptions
}

// NewWeb returns the web adapter. It requires cfg.SearXNGURL.
func NewWeb(cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.SearXNGURL), "/")
	if base == "" {
		return nil, errors.Wrap(ErrMisconfigured, "web: platforms.searxng_url is not set")
	}
	if !isHTTPURL(base) {
		return nil, errors.Wrapf(ErrMisconfigured, "web: invalid searxng_url %q", base)
	}
	return &Web{
		get:     newGetter(client, cfg),
		baseURL: base,
		opts:    DetailOptions{Parallelism: cfg.Parallelism, MaxContentChars: cfg.MaxContentChars},
	}, nil
}

// Name returns the platform key.
func (w *Web) Name() string { return "web" }

// Fetch queries SearXNG's JSON API in the general category.
func (w *Web) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	params := url.Values{
		"q":          {query},
		"format":     {"json"},
		"categories": {"general"},
	}
	resp, err := w.get.get(ctx, w.baseURL+"/search?"+params.Encode(), map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("SearXNG search: %w", err)
	}
	defer resp.Body.Close()

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SearXNG response: %w", err)
	}

	items := make([]RawItem, 0, min(len(sr.Results), limit))
	for _, r := range sr.Results {
		if len(items) == limit {
			break
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = r.URL
		}
		meta := types.NewItem()
		meta.Set(types.FieldURL, r.URL)
		meta.Set(types.FieldDescription, excerpt(r.Content, descriptionChars))
		if r.Engine != "" {
			meta.Set(types.FieldSource, r.Engine)
		}
		if published := normalizeDate(r.PublishedDate); published != "" {
			meta.Set(types.FieldPublished, published)
		}
		items = append(items, RawItem{ID: r.URL, Title: title, Meta: meta})
	}
	return items, nil
}

// FilterLowQuality drops non-HTTP links, untitled results, and repeated
// URLs or titles.
func (w *Web) FilterLowQuality(items []RawItem) []RawItem {
	var out []RawItem
	for _, it := range items {
		if !isHTTPURL(it.ID) || it.Title == "" {
			continue
		}
		out = append(out, it)
	}
	return dedupe(out)
}

// CollectDetails reads the linked pages for items.
func (w *Web) CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error) {
	return CollectDetails(ctx, w, items, w.opts)
}

// FetchDetailContent returns the readable text of the page at id.
func (w *Web) FetchDetailContent(ctx context.Context, id string) (string, error) {
	return w.get.readablePage(ctx, id)
}

// normalizeDate renders engine-specific date strings as YYYY-MM-DD,
// passing through anything it cannot parse.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}

type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Engine        string  `json:"engine"`
	PublishedDate string  `json:"publishedDate"`
	Score         float64 `json:"score"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv searches arXiv papers and uses the full abstract as content.
type Arxiv struct {
	get  getter
	opts DetailOptions
}

// NewArxiv returns the arXiv adapter. It needs no credentials.
func NewArxiv(cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	return &Arxiv{
		get:  newGetter(client, cfg),
		opts: DetailOptions{Parallelism: cfg.Parallelism, MaxContentChars: cfg.MaxContentChars},
	}, nil
}

// Name returns the platform key.
func (a *Arxiv) Name() string { return "arxiv" }

// Fetch searches all fields for every term of query, by relevance.
func (a *Arxiv) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	q := buildArxivQuery(query)
	if q == "" || limit <= 0 {
		return nil, nil
	}
	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	feed, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		id := extractArxivID(e.ID)
		meta := types.NewItem()
		if id != "" {
			meta.Set(types.FieldURL, "https://arxiv.org/abs/"+id)
		}
		meta.Set(types.FieldDescription, excerpt(e.Summary, descriptionChars))
		if e.PrimaryCategory.Term != "" {
			meta.Set(types.FieldCategory, e.PrimaryCategory.Term)
		}
		if authors := e.authorNames(); len(authors) > 0 {
			meta.Set(types.FieldAuthors, authors)
		}
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			meta.Set(types.FieldPublished, t.Format("2006-01-02"))
		}
		items = append(items, RawItem{
			ID:    id,
			Title: strings.Join(strings.Fields(e.Title), " "),
			Meta:  meta,
		})
	}
	return items, nil
}

// FilterLowQuality drops entries without an arXiv ID or title.
func (a *Arxiv) FilterLowQuality(items []RawItem) []RawItem {
	var out []RawItem
	for _, it := range items {
		if it.ID == "" || it.Title == "" {
			continue
		}
		out = append(out, it)
	}
	return dedupe(out)
}

// CollectDetails fetches full abstracts for items.
func (a *Arxiv) CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error) {
	return CollectDetails(ctx, a, items, a.opts)
}

// FetchDetailContent returns the abstract of the paper with the given ID.
func (a *Arxiv) FetchDetailContent(ctx context.Context, id string) (string, error) {
	feed, err := a.query(ctx, url.Values{"id_list": {id}})
	if err != nil {
		return "", err
	}
	if len(feed.Entries) == 0 {
		return "", fmt.Errorf("arXiv paper %s not found", id)
	}
	return strings.TrimSpace(feed.Entries[0].Summary), nil
}

func (a *Arxiv) query(ctx context.Context, params url.Values) (*arxivFeed, error) {
	resp, err := a.get.get(ctx, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return &feed, nil
}

// buildArxivQuery ANDs every term of the phrase across all fields.
func buildArxivQuery(phrase string) string {
	terms := strings.Fields(phrase)
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, " AND all:")
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string        `xml:"id"`
	Title           string        `xml:"title"`
	Summary         string        `xml:"summary"`
	Published       string        `xml:"published"`
	Authors         []arxivAuthor `xml:"author"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

func (e arxivEntry) authorNames() []string {
	var names []string
	for _, a := range e.Authors {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// extractArxivID pulls the versionless ID out of an entry URL
// ("http://arxiv.org/abs/2301.07041v2" -> "2301.07041").
func extractArxivID(idURL string) string {
	_, id, ok := strings.Cut(idURL, "/abs/")
	if !ok {
		return ""
	}
	if v := strings.LastIndex(id, "v"); v > 0 {
		if _, err := strconv.Atoi(id[v+1:]); err == nil {
			id = id[:v]
		}
	}
	return id
}

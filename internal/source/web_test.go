// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/source-scout/pkg/types"
)

var articleParagraph = strings.Repeat("Self-hosted language model front ends let teams keep data on their own hardware. ", 8)

func articleHTML(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>%s</title></head>
<body><nav><a href="/">Home</a></nav>
<article><h1>%s</h1><p>%s</p><p>%s</p></article>
<footer>copyright</footer></body></html>`, title, title, articleParagraph, articleParagraph)
}

func TestNewWebRequiresSearXNG(t *testing.T) {
	cfg := testCfg()
	_, err := NewWeb(cfg, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)

	cfg.SearXNGURL = "ftp://nope"
	_, err = NewWeb(cfg, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestWebFetchFilterAndDetails(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "local llm ui", r.URL.Query().Get("q"))
		fmt.Fprintf(w, `{"query": "local llm ui", "results": [
		  {"title": "Guide", "url": "%[1]s/guide", "content": "A guide", "engine": "duckduckgo", "publishedDate": "2024-05-01T10:00:00"},
		  {"title": "Guide again", "url": "%[1]s/guide", "content": "duplicate"},
		  {"title": "Mail", "url": "mailto:someone@example.com", "content": "not a page"},
		  {"title": "Gone", "url": "%[1]s/gone", "content": "404s"}
		]}`, ts.URL)
	})
	mux.HandleFunc("/guide", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML("Guide"))
	})

	cfg := testCfg()
	cfg.SearXNGURL = ts.URL + "/"
	a, err := NewWeb(cfg, ts.Client())
	require.NoError(t, err)

	items, err := a.Fetch(context.Background(), "local llm ui", 10)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "2024-05-01", items[0].Meta.GetString(types.FieldPublished))
	assert.Equal(t, "duckduckgo", items[0].Meta.GetString(types.FieldSource))

	kept := a.FilterLowQuality(items)
	require.Len(t, kept, 2)
	assert.Equal(t, "Guide", kept[0].Title)
	assert.Equal(t, "Gone", kept[1].Title)

	s, err := a.CollectDetails(context.Background(), kept)
	require.NoError(t, err)

	guide, _ := s.Get("web", "Guide")
	assert.Contains(t, guide.GetString(types.FieldContent), "Self-hosted language model front ends")
	gone, _ := s.Get("web", "Gone")
	assert.False(t, gone.HasContent())
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "", normalizeDate(""))
	assert.Equal(t, "2023-01-15", normalizeDate("2023-01-15T08:00:00Z"))
	assert.Equal(t, "sometime soon", normalizeDate("sometime soon"))
}

func TestWebFilterDropsRepeatedTitles(t *testing.T) {
	cfg := testCfg()
	cfg.SearXNGURL = "http://searx.local"
	a, err := NewWeb(cfg, http.DefaultClient)
	require.NoError(t, err)

	kept := a.FilterLowQuality([]RawItem{
		{ID: "https://a.example/u1", Title: "Local LLM UIs"},
		{ID: "https://b.example/u2", Title: "Local LLM UIs"},
		{ID: "https://c.example/u3", Title: ""},
	})
	require.Len(t, kept, 1)
	assert.Equal(t, "https://a.example/u1", kept[0].ID)
}

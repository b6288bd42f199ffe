// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

const minKeywordLen = 3

// RSS matches query keywords against entries of the configured feeds.
// Feeds are not searchable, so every Fetch pulls them and filters locally.
type RSS struct {
	get   getter
	feeds []string
	opts  DetailOptions

	mu       sync.Mutex
	fallback map[string]string // link -> feed-supplied body
}

// NewRSS returns the RSS adapter. It requires at least one feed URL.
func NewRSS(cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	var feeds []string
	for _, f := range cfg.RSSFeeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	if len(feeds) == 0 {
		return nil, errors.Wrap(ErrMisconfigured, "rss: platforms.rss_feeds is empty")
	}
	return &RSS{
		get:      newGetter(client, cfg),
		feeds:    feeds,
		opts:     DetailOptions{Parallelism: cfg.Parallelism, MaxContentChars: cfg.MaxContentChars},
		fallback: make(map[string]string),
	}, nil
}

// Name returns the platform key.
func (r *RSS) Name() string { return "rss" }

// Fetch returns feed entries whose title or description contains any
// query keyword of three or more letters. Feeds that fail to load are
// logged and skipped; Fetch fails only when every feed fails.
func (r *RSS) Fetch(ctx context.Context, query string, limit int) ([]RawItem, error) {
	keywords := keywordsOf(query)
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}
	log := logging.Component("source").WithField("platform", r.Name())
	parser := gofeed.NewParser()

	var items []RawItem
	var lastErr error
	failed := 0
	for _, feedURL := range r.feeds {
		if len(items) >= limit {
			break
		}
		feed, err := r.parse(ctx, parser, feedURL)
		if err != nil {
			log.WithField("feed", feedURL).Warnf("feed unavailable: %v", err)
			lastErr = err
			failed++
			continue
		}
		for _, entry := range feed.Items {
			if len(items) >= limit {
				break
			}
			text := strings.ToLower(entry.Title + " " + entry.Description)
			if !containsAny(text, keywords) {
				continue
			}
			items = append(items, r.rawItem(feed, entry))
		}
	}
	if failed == len(r.feeds) {
		return nil, errors.Wrap(lastErr, "rss: all feeds failed")
	}
	return items, nil
}

func (r *RSS) parse(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	resp, err := r.get.get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return parser.Parse(resp.Body)
}

func (r *RSS) rawItem(feed *gofeed.Feed, entry *gofeed.Item) RawItem {
	link := strings.TrimSpace(entry.Link)
	meta := types.NewItem()
	meta.Set(types.FieldURL, link)
	meta.Set(types.FieldDescription, excerpt(stripTags(entry.Description), descriptionChars))
	if t := strings.TrimSpace(feed.Title); t != "" {
		meta.Set(types.FieldSource, t)
	}
	switch {
	case entry.PublishedParsed != nil:
		meta.Set(types.FieldPublished, entry.PublishedParsed.Format("2006-01-02"))
	case entry.UpdatedParsed != nil:
		meta.Set(types.FieldPublished, entry.UpdatedParsed.Format("2006-01-02"))
	}

	body := entry.Content
	if body == "" {
		body = entry.Description
	}
	if link != "" && body != "" {
		r.mu.Lock()
		r.fallback[link] = strings.TrimSpace(stripTags(body))
		r.mu.Unlock()
	}
	return RawItem{ID: link, Title: strings.TrimSpace(entry.Title), Meta: meta}
}

// FilterLowQuality drops entries without a usable link or a title, and
// repeated links or titles across feeds.
func (r *RSS) FilterLowQuality(items []RawItem) []RawItem {
	var out []RawItem
	for _, it := range items {
		if it.Title == "" || !isHTTPURL(it.ID) {
			continue
		}
		out = append(out, it)
	}
	return dedupe(out)
}

// CollectDetails reads the linked articles for items.
func (r *RSS) CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error) {
	return CollectDetails(ctx, r, items, r.opts)
}

// FetchDetailContent returns the readable text of the linked article,
// falling back to the body the feed carried when the page is unreachable
// or yields no text.
func (r *RSS) FetchDetailContent(ctx context.Context, id string) (string, error) {
	text, err := r.get.readablePage(ctx, id)
	if err == nil && text != "" {
		return text, nil
	}
	r.mu.Lock()
	fb := r.fallback[id]
	r.mu.Unlock()
	if fb != "" {
		return fb, nil
	}
	return text, err
}

func keywordsOf(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) >= minKeywordLen {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// stripTags returns the text of an HTML fragment.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source defines the platform adapter contract and the adapters
// that implement it.
//
// An adapter turns a search phrase into raw candidates, drops the weak
// ones, and collects detail content for the survivors into a store keyed
// by its own platform name. The pipeline never looks inside a platform's
// payloads; everything it needs travels through Adapter.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/source-scout/internal/httputil"
	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// Adapter searches one platform. Each platform implements this interface
// per the Strategy pattern; the registry maps names to constructors.
type Adapter interface {
	// Name is the platform key used in stores and output files.
	Name() string

	// Fetch returns up to limit raw candidates for query, best first.
	Fetch(ctx context.Context, query string, limit int) ([]RawItem, error)

	// FilterLowQuality returns the acceptable subset of items, keeping
	// their relative order.
	FilterLowQuality(items []RawItem) []RawItem

	// CollectDetails builds a store of the given items, each with its
	// metadata and detail content. A per-item fetch failure leaves that
	// item's content empty rather than failing the batch.
	CollectDetails(ctx context.Context, items []RawItem) (*store.Store, error)

	// FetchDetailContent returns the long-form text for one item ID.
	FetchDetailContent(ctx context.Context, id string) (string, error)
}

// RawItem is a platform search hit before detail collection.
type RawItem struct {
	// ID is what FetchDetailContent expects (repo name, paper ID, URL).
	ID string

	// Title is the store key for the item.
	Title string

	// Meta holds the fields copied into the stored item, in output order.
	Meta *types.Item

	// Hints carries platform facts used by FilterLowQuality that are not
	// written to output (e.g. "archived" for GitHub).
	Hints map[string]any
}

// Hint returns the named hint as a bool; missing or non-bool is false.
func (r RawItem) Hint(name string) bool {
	b, _ := r.Hints[name].(bool)
	return b
}

// dedupe keeps the first item for each ID and each title. Titles key the
// store, so a later item sharing one would overwrite the earlier.
func dedupe(items []RawItem) []RawItem {
	ids := make(map[string]bool, len(items))
	titles := make(map[string]bool, len(items))
	var out []RawItem
	for _, it := range items {
		if ids[it.ID] || titles[it.Title] {
			continue
		}
		ids[it.ID] = true
		titles[it.Title] = true
		out = append(out, it)
	}
	return out
}

// descriptionChars caps description excerpts taken from search payloads.
const descriptionChars = 300

// DetailOptions bounds detail collection.
type DetailOptions struct {
	// Parallelism is the number of concurrent detail fetches (minimum 1).
	Parallelism int

	// MaxContentChars truncates each item's content; 0 means unlimited.
	MaxContentChars int
}

// CollectDetails is the shared implementation behind Adapter.CollectDetails.
// The store lists items in input order regardless of fetch completion
// order. Fetch failures are logged and recorded as empty content.
func CollectDetails(ctx context.Context, a Adapter, items []RawItem, opts DetailOptions) (*store.Store, error) {
	log := logging.Component("source").WithField("platform", a.Name())
	contents := make([]string, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallelism, 1))
	for i, item := range items {
		g.Go(func() error {
			text, err := a.FetchDetailContent(gctx, item.ID)
			if err != nil {
				log.WithField("id", item.ID).Warnf("detail fetch failed: %v", err)
				return nil
			}
			contents[i] = truncate(text, opts.MaxContentChars)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := store.New()
	for i, item := range items {
		it := metaItem(item)
		it.Set(types.FieldContent, contents[i])
		s.Add(a.Name(), item.Title, it)
	}
	return s, nil
}

// StoreFromRaw records items with their metadata only. The pipeline uses
// it when an adapter cannot collect details at all, so the items still
// surface in the no-content bucket.
func StoreFromRaw(platform string, items []RawItem) *store.Store {
	s := store.New()
	for _, item := range items {
		s.Add(platform, item.Title, metaItem(item))
	}
	return s
}

func metaItem(r RawItem) *types.Item {
	if r.Meta == nil {
		return types.NewItem()
	}
	return r.Meta.Clone()
}

// truncate cuts s to at most n runes; n <= 0 leaves s untouched.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// excerpt collapses whitespace and shortens s for description fields.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(truncate(s, n)) + "..."
}

// getter performs GET requests with the shared retry policy and the
// configured User-Agent.
type getter struct {
	client    *http.Client
	userAgent string
}

func newGetter(client *http.Client, cfg types.PlatformsConfig) getter {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return getter{client: client, userAgent: cfg.UserAgent}
}

// get issues a GET and returns the response when the status is 200.
// Callers close the body.
func (g getter) get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 0)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

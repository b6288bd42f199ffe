// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// readablePage fetches pageURL and extracts its main text.
func (g getter) readablePage(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	resp, err := g.get(ctx, pageURL, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", pageURL, err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

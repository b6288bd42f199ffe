// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/source-scout/pkg/types"
)

// ErrUnknownPlatform is returned by New for a name with no adapter.
var ErrUnknownPlatform = errors.New("unknown platform")

// ErrMisconfigured is returned by New when an adapter lacks required
// settings (e.g. web without a SearXNG URL).
var ErrMisconfigured = errors.New("platform misconfigured")

// Constructor builds an adapter from platform settings. A nil client
// means one is created from cfg.Timeout.
type Constructor func(cfg types.PlatformsConfig, client *http.Client) (Adapter, error)

var constructors = map[string]Constructor{
	"github":           NewGitHub,
	"arxiv":            NewArxiv,
	"semantic_scholar": NewSemanticScholar,
	"openalex":         NewOpenAlex,
	"web":              NewWeb,
	"rss":              NewRSS,
}

// New constructs the adapter registered under name. Names are matched
// case-insensitively.
func New(name string, cfg types.PlatformsConfig, client *http.Client) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	ctor, ok := constructors[key]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlatform, "%q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(cfg, client)
}

// Names lists the registered platform names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

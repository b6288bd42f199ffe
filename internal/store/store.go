// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store holds discovered sources keyed by platform and title.
//
// A Store keeps platforms and titles in insertion order so output reads the
// way the pipeline produced it. Merging is last-write-wins per field: when
// two stores share a (platform, title), the later store's fields override
// the earlier one's and fields only the earlier store has survive.
package store

import (
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/source-scout/pkg/types"
)

// Store is an ordered platform -> title -> Item collection. The zero value
// is not usable; call New.
type Store struct {
	platforms []string
	byName    map[string]*platform
}

type platform struct {
	titles []string
	items  map[string]*types.Item
}

// New returns an empty Store.
func New() *Store {
	return &Store{byName: make(map[string]*platform)}
}

// MergeAll merges stores left to right into a fresh Store. Later stores
// win on colliding fields; nil stores are skipped.
func MergeAll(stores ...*Store) *Store {
	out := New()
	for _, s := range stores {
		out.Merge(s)
	}
	return out
}

// Add inserts or overwrites the item at (platformName, title). The store
// keeps its own copy of item.
func (s *Store) Add(platformName, title string, item *types.Item) {
	p := s.platform(platformName)
	if _, ok := p.items[title]; !ok {
		p.titles = append(p.titles, title)
	}
	p.items[title] = item.Clone()
}

// Get returns the item at (platformName, title). The returned item is
// owned by the store; callers enriching it in place are expected to.
func (s *Store) Get(platformName, title string) (*types.Item, bool) {
	p, ok := s.byName[platformName]
	if !ok {
		return nil, false
	}
	it, ok := p.items[title]
	return it, ok
}

// Merge unions other into s. Colliding items keep their position in s and
// take other's value for every field other sets. Platforms and titles new
// to s are appended in other's order.
func (s *Store) Merge(other *Store) {
	if other == nil {
		return
	}
	for _, name := range other.platforms {
		src := other.byName[name]
		dst := s.platform(name)
		for _, title := range src.titles {
			if existing, ok := dst.items[title]; ok {
				existing.MergeFrom(src.items[title])
				continue
			}
			dst.titles = append(dst.titles, title)
			dst.items[title] = src.items[title].Clone()
		}
	}
}

// Platforms returns the platform names in insertion order.
func (s *Store) Platforms() []string {
	return append([]string(nil), s.platforms...)
}

// Titles returns the titles stored under platformName in insertion order.
func (s *Store) Titles(platformName string) []string {
	p, ok := s.byName[platformName]
	if !ok {
		return nil
	}
	return append([]string(nil), p.titles...)
}

// PlatformLen returns the number of items under platformName.
func (s *Store) PlatformLen(platformName string) int {
	p, ok := s.byName[platformName]
	if !ok {
		return 0
	}
	return len(p.titles)
}

// Len returns the total number of items.
func (s *Store) Len() int {
	n := 0
	for _, p := range s.byName {
		n += len(p.titles)
	}
	return n
}

// IsEmpty reports whether the store holds no items.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Each calls fn for every item in platform then title order.
func (s *Store) Each(fn func(platformName, title string, item *types.Item)) {
	for _, name := range s.platforms {
		p := s.byName[name]
		for _, title := range p.titles {
			fn(name, title, p.items[title])
		}
	}
}

// Clone returns a deep copy of s.
func (s *Store) Clone() *Store {
	return MergeAll(s)
}

// Serialize returns the contents as nested plain maps, suitable for
// generic encoders. Map iteration loses the store's ordering; use
// MarshalYAML when order matters.
func (s *Store) Serialize() map[string]map[string]map[string]any {
	out := make(map[string]map[string]map[string]any, len(s.platforms))
	s.Each(func(platformName, title string, item *types.Item) {
		if out[platformName] == nil {
			out[platformName] = make(map[string]map[string]any)
		}
		out[platformName][title] = item.Map()
	})
	return out
}

// MarshalYAML encodes the store as an ordered mapping of platform to title
// to item.
func (s *Store) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range s.platforms {
		p := s.byName[name]
		titles := &yaml.Node{Kind: yaml.MappingNode}
		for _, title := range p.titles {
			var item yaml.Node
			if err := item.Encode(p.items[title]); err != nil {
				return nil, fmt.Errorf("encoding %s/%s: %w", name, title, err)
			}
			titles.Content = append(titles.Content, keyNode(title), &item)
		}
		root.Content = append(root.Content, keyNode(name), titles)
	}
	return root, nil
}

// UnmarshalYAML decodes the mapping written by MarshalYAML. An empty
// document yields an empty store.
func (s *Store) UnmarshalYAML(value *yaml.Node) error {
	*s = *New()
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("store: expected mapping, got kind %d", value.Kind)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		name, titles := value.Content[i].Value, value.Content[i+1]
		if titles.Kind != yaml.MappingNode {
			return fmt.Errorf("store: platform %q: expected mapping", name)
		}
		for j := 0; j+1 < len(titles.Content); j += 2 {
			var item types.Item
			if err := titles.Content[j+1].Decode(&item); err != nil {
				return fmt.Errorf("store: %s/%s: %w", name, titles.Content[j].Value, err)
			}
			s.Add(name, titles.Content[j].Value, &item)
		}
	}
	return nil
}

func (s *Store) platform(name string) *platform {
	p, ok := s.byName[name]
	if !ok {
		p = &platform{items: make(map[string]*types.Item)}
		s.byName[name] = p
		s.platforms = append(s.platforms, name)
	}
	return p
}

func keyNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.yaml.in/yaml/v3"
)

// Well-known Item field names. Platforms may add their own fields; these
// are the ones the pipeline reads or writes.
const (
	FieldURL             = "url"
	FieldDescription     = "description"
	FieldLanguage        = "language"
	FieldCategory        = "category"
	FieldContent         = "content"
	FieldSummary         = "summary"
	FieldDetailedSummary = "detailed_summary"
	FieldQA              = "Q&A"
	FieldRelevanceScore  = "relevance_score"

	FieldStars     = "stars"
	FieldAuthors   = "authors"
	FieldPublished = "published"
	FieldSource    = "source"
	FieldCitedBy   = "cited_by"
)

// Section is one chapter of structured content, e.g. a course chapter and
// its lecture titles.
type Section struct {
	Name    string
	Entries []string
}

// Sections is structured content kept in source order.
type Sections []Section

// Text flattens the sections into "chapter: a, b" lines.
func (s Sections) Text() string {
	lines := make([]string, 0, len(s))
	for _, sec := range s {
		lines = append(lines, fmt.Sprintf("%s: %s", sec.Name, strings.Join(sec.Entries, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (s Sections) clone() Sections {
	out := make(Sections, len(s))
	for i, sec := range s {
		out[i] = Section{Name: sec.Name, Entries: append([]string(nil), sec.Entries...)}
	}
	return out
}

// MarshalYAML encodes the sections as an ordered mapping of name to entries.
func (s Sections) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, sec := range s {
		var val yaml.Node
		if err := val.Encode(sec.Entries); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, scalarNode(sec.Name), &val)
	}
	return node, nil
}

// UnmarshalYAML decodes an ordered mapping of name to entries.
func (s *Sections) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("sections: expected mapping, got kind %d", value.Kind)
	}
	out := make(Sections, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var entries []string
		if err := value.Content[i+1].Decode(&entries); err != nil {
			return fmt.Errorf("sections %q: %w", value.Content[i].Value, err)
		}
		out = append(out, Section{Name: value.Content[i].Value, Entries: entries})
	}
	*s = out
	return nil
}

// MarshalJSON encodes the sections as an ordered JSON object.
func (s Sections) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, []string](len(s))
	for _, sec := range s {
		om.Set(sec.Name, sec.Entries)
	}
	return json.Marshal(om)
}

// UnmarshalJSON decodes an ordered JSON object of name to entries.
func (s *Sections) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, []string]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("sections: %w", err)
	}
	out := make(Sections, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Section{Name: pair.Key, Entries: pair.Value})
	}
	*s = out
	return nil
}

// QAPair is one accepted question and its answer.
type QAPair struct {
	Question string
	Answer   string
}

// QA holds accepted answers in the order the questions were asked.
type QA []QAPair

// Answer returns the answer recorded for question.
func (q QA) Answer(question string) (string, bool) {
	for _, p := range q {
		if p.Question == question {
			return p.Answer, true
		}
	}
	return "", false
}

// with returns q with question answered, replacing an earlier answer.
func (q QA) with(question, answer string) QA {
	out := append(QA(nil), q...)
	for i := range out {
		if out[i].Question == question {
			out[i].Answer = answer
			return out
		}
	}
	return append(out, QAPair{Question: question, Answer: answer})
}

// MarshalYAML encodes the pairs as an ordered mapping of question to answer.
func (q QA) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range q {
		node.Content = append(node.Content, scalarNode(p.Question), scalarNode(p.Answer))
	}
	return node, nil
}

// UnmarshalYAML decodes an ordered mapping of question to answer.
func (q *QA) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("Q&A: expected mapping, got kind %d", value.Kind)
	}
	out := make(QA, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		out = append(out, QAPair{Question: value.Content[i].Value, Answer: value.Content[i+1].Value})
	}
	*q = out
	return nil
}

// MarshalJSON encodes the pairs as an ordered JSON object.
func (q QA) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, string](len(q))
	for _, p := range q {
		om.Set(p.Question, p.Answer)
	}
	return json.Marshal(om)
}

// UnmarshalJSON decodes an ordered JSON object of question to answer.
func (q *QA) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("Q&A: %w", err)
	}
	out := make(QA, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, QAPair{Question: pair.Key, Answer: pair.Value})
	}
	*q = out
	return nil
}

// Item is the open attribute record for one discovered source. Fields keep
// the order in which they were first set. Values are one of string, int,
// []string, Sections, or QA; anything else is stored as given.
type Item struct {
	keys   []string
	values map[string]any
}

// NewItem returns an empty Item.
func NewItem() *Item {
	return &Item{values: make(map[string]any)}
}

// Set stores v under key. A key that already exists keeps its position.
func (it *Item) Set(key string, v any) {
	if it.values == nil {
		it.values = make(map[string]any)
	}
	if _, ok := it.values[key]; !ok {
		it.keys = append(it.keys, key)
	}
	it.values[key] = v
}

// Get returns the value stored under key.
func (it *Item) Get(key string) (any, bool) {
	if it == nil {
		return nil, false
	}
	v, ok := it.values[key]
	return v, ok
}

// Delete removes key from the item.
func (it *Item) Delete(key string) {
	if _, ok := it.values[key]; !ok {
		return
	}
	delete(it.values, key)
	for i, k := range it.keys {
		if k == key {
			it.keys = append(it.keys[:i:i], it.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (it *Item) Keys() []string {
	if it == nil {
		return nil
	}
	return append([]string(nil), it.keys...)
}

// Len returns the number of fields.
func (it *Item) Len() int {
	if it == nil {
		return 0
	}
	return len(it.keys)
}

// Clone returns a deep copy of the item.
func (it *Item) Clone() *Item {
	out := NewItem()
	if it == nil {
		return out
	}
	for _, k := range it.keys {
		out.Set(k, cloneValue(it.values[k]))
	}
	return out
}

// MergeFrom copies every field of other into it. Fields present in both
// take other's value.
func (it *Item) MergeFrom(other *Item) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		it.Set(k, cloneValue(other.values[k]))
	}
}

// GetString returns the string stored under key, or "".
func (it *Item) GetString(key string) string {
	v, _ := it.Get(key)
	s, _ := v.(string)
	return s
}

// ContentText returns the content as plain text. Structured content is
// flattened one section per line.
func (it *Item) ContentText() string {
	v, _ := it.Get(FieldContent)
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case Sections:
		return c.Text()
	case []string:
		return strings.Join(c, "\n")
	default:
		return fmt.Sprint(c)
	}
}

// HasContent reports whether the item carries non-empty content.
func (it *Item) HasContent() bool {
	v, ok := it.Get(FieldContent)
	if !ok {
		return false
	}
	switch c := v.(type) {
	case nil:
		return false
	case string:
		return c != ""
	case Sections:
		return len(c) > 0
	case []string:
		return len(c) > 0
	default:
		return true
	}
}

// QA returns the accepted answers, or nil.
func (it *Item) QA() QA {
	v, _ := it.Get(FieldQA)
	qa, _ := v.(QA)
	return qa
}

// AddAnswer records an accepted answer, creating the Q&A field on first use.
func (it *Item) AddAnswer(question, answer string) {
	it.Set(FieldQA, it.QA().with(question, answer))
}

// RelevanceScore returns the transient relevance score, if set.
func (it *Item) RelevanceScore() (int, bool) {
	v, ok := it.Get(FieldRelevanceScore)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// Map returns a plain map copy of the fields. Nested QA and Sections
// become maps as well.
func (it *Item) Map() map[string]any {
	out := make(map[string]any, it.Len())
	if it == nil {
		return out
	}
	for _, k := range it.keys {
		switch v := it.values[k].(type) {
		case QA:
			m := make(map[string]string, len(v))
			for _, p := range v {
				m[p.Question] = p.Answer
			}
			out[k] = m
		case Sections:
			m := make(map[string][]string, len(v))
			for _, s := range v {
				m[s.Name] = append([]string(nil), s.Entries...)
			}
			out[k] = m
		default:
			out[k] = cloneValue(v)
		}
	}
	return out
}

// MarshalYAML encodes the item as an ordered mapping.
func (it *Item) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if it == nil {
		return node, nil
	}
	for _, k := range it.keys {
		var val yaml.Node
		if err := val.Encode(it.values[k]); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		node.Content = append(node.Content, scalarNode(k), &val)
	}
	return node, nil
}

// UnmarshalYAML decodes an ordered mapping. A mapping under content is
// read as Sections and a mapping under Q&A as QA.
func (it *Item) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("item: expected mapping, got kind %d", value.Kind)
	}
	*it = Item{values: make(map[string]any)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		v, err := decodeYAMLValue(key, val)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		it.Set(key, v)
	}
	return nil
}

func decodeYAMLValue(key string, val *yaml.Node) (any, error) {
	switch {
	case val.Kind == yaml.MappingNode && key == FieldQA:
		var qa QA
		err := val.Decode(&qa)
		return qa, err
	case val.Kind == yaml.MappingNode && key == FieldContent:
		var s Sections
		err := val.Decode(&s)
		return s, err
	case val.Kind == yaml.SequenceNode:
		var ss []string
		if err := val.Decode(&ss); err == nil {
			return ss, nil
		}
	}
	var v any
	err := val.Decode(&v)
	return v, err
}

// MarshalJSON encodes the item as an ordered JSON object.
func (it *Item) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any](it.Len())
	if it != nil {
		for _, k := range it.keys {
			om.Set(k, it.values[k])
		}
	}
	return json.Marshal(om)
}

// UnmarshalJSON decodes an ordered JSON object. Whole numbers become int.
func (it *Item) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("item: %w", err)
	}
	*it = Item{values: make(map[string]any, om.Len())}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		v, err := decodeJSONValue(pair.Key, pair.Value)
		if err != nil {
			return fmt.Errorf("field %q: %w", pair.Key, err)
		}
		it.Set(pair.Key, v)
	}
	return nil
}

func decodeJSONValue(key string, raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		switch key {
		case FieldQA:
			var qa QA
			err := qa.UnmarshalJSON(trimmed)
			return qa, err
		case FieldContent:
			var s Sections
			err := s.UnmarshalJSON(trimmed)
			return s, err
		}
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ss []string
		if err := json.Unmarshal(trimmed, &ss); err == nil {
			return ss, nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		return f, err
	}
	return v, nil
}

func cloneValue(v any) any {
	switch c := v.(type) {
	case Sections:
		return c.clone()
	case QA:
		return append(QA(nil), c...)
	case []string:
		return append([]string(nil), c...)
	default:
		return v
	}
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemSetKeepsFirstPosition(t *testing.T) {
	it := NewItem()
	it.Set(FieldURL, "u")
	it.Set(FieldDescription, "d")
	it.Set(FieldURL, "u2")

	assert.Equal(t, []string{FieldURL, FieldDescription}, it.Keys())
	assert.Equal(t, "u2", it.GetString(FieldURL))
}

func TestItemDelete(t *testing.T) {
	it := NewItem()
	it.Set("a", 1)
	it.Set(FieldRelevanceScore, 2)
	it.Set("b", 3)
	it.Delete(FieldRelevanceScore)
	it.Delete("missing")

	_, ok := it.RelevanceScore()
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, it.Keys())
}

func TestItemHasContent(t *testing.T) {
	tests := []struct {
		name    string
		content any
		set     bool
		want    bool
	}{
		{"missing", nil, false, false},
		{"nil", nil, true, false},
		{"empty string", "", true, false},
		{"text", "readme", true, true},
		{"empty sections", Sections{}, true, false},
		{"sections", Sections{{Name: "Ch1", Entries: []string{"L1"}}}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewItem()
			if tt.set {
				it.Set(FieldContent, tt.content)
			}
			assert.Equal(t, tt.want, it.HasContent())
		})
	}
}

func TestItemContentTextFlattensSections(t *testing.T) {
	it := NewItem()
	it.Set(FieldContent, Sections{
		{Name: "Basics", Entries: []string{"Install", "Hello world"}},
		{Name: "Advanced", Entries: []string{"Generics"}},
	})
	assert.Equal(t, "Basics: Install, Hello world\nAdvanced: Generics", it.ContentText())
}

func TestItemAddAnswer(t *testing.T) {
	it := NewItem()
	assert.Nil(t, it.QA())

	it.AddAnswer("q1", "a1")
	it.AddAnswer("q2", "a2")
	it.AddAnswer("q1", "a1 revised")

	qa := it.QA()
	require.Len(t, qa, 2)
	assert.Equal(t, QAPair{Question: "q1", Answer: "a1 revised"}, qa[0])
	assert.Equal(t, QAPair{Question: "q2", Answer: "a2"}, qa[1])
}

func TestItemCloneIsDeep(t *testing.T) {
	it := NewItem()
	it.Set(FieldContent, Sections{{Name: "Ch", Entries: []string{"x"}}})
	it.AddAnswer("q", "a")

	c := it.Clone()
	v, _ := c.Get(FieldContent)
	v.(Sections)[0].Entries[0] = "changed"
	c.AddAnswer("q", "changed")

	assert.Equal(t, "Ch: x", it.ContentText())
	answer, _ := it.QA().Answer("q")
	assert.Equal(t, "a", answer)
}

func TestItemMergeFrom(t *testing.T) {
	it := NewItem()
	it.Set("a", "keep")
	it.Set("b", "old")
	other := NewItem()
	other.Set("b", "new")
	other.Set("c", "added")

	it.MergeFrom(other)
	assert.Equal(t, map[string]any{"a": "keep", "b": "new", "c": "added"}, it.Map())
}

func TestItemJSONRoundTrip(t *testing.T) {
	it := NewItem()
	it.Set(FieldURL, "https://example.com")
	it.Set(FieldStars, 12)
	it.Set(FieldAuthors, []string{"A", "B"})
	it.Set(FieldContent, Sections{{Name: "Ch2", Entries: []string{"b"}}, {Name: "Ch1", Entries: []string{"a"}}})
	it.AddAnswer("second?", "yes")
	it.AddAnswer("first?", "also yes")

	data, err := json.Marshal(it)
	require.NoError(t, err)

	var back Item
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, it.Keys(), back.Keys())
	stars, _ := back.Get(FieldStars)
	assert.Equal(t, 12, stars)
	assert.Equal(t, "Ch2: b\nCh1: a", back.ContentText())
	assert.Equal(t, it.QA(), back.QA())
}

func TestItemJSONKeepsInsertionOrder(t *testing.T) {
	it := NewItem()
	it.Set("zeta", "last letter")
	it.Set(FieldContent, Sections{{Name: "Z", Entries: []string{"z"}}, {Name: "A", Entries: []string{"a"}}})
	it.Set("alpha", 1)
	it.AddAnswer("why?", "because")
	it.AddAnswer("how?", "somehow")

	data, err := json.Marshal(it)
	require.NoError(t, err)
	assert.Equal(t,
		`{"zeta":"last letter","content":{"Z":["z"],"A":["a"]},"alpha":1,"Q&A":{"why?":"because","how?":"somehow"}}`,
		string(data))

	var back Item
	require.NoError(t, json.Unmarshal([]byte(`{"b":"x","a":null,"Q&A":{"q2":"a2","q1":"a1"}}`), &back))
	assert.Equal(t, []string{"b", "a", FieldQA}, back.Keys())
	assert.Equal(t, QA{{Question: "q2", Answer: "a2"}, {Question: "q1", Answer: "a1"}}, back.QA())
}

func TestItemJSONRejectsNonObject(t *testing.T) {
	var it Item
	assert.Error(t, json.Unmarshal([]byte(`["not", "an", "object"]`), &it))
}

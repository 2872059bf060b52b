package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scambier/omnisearch/docstore"
)

func testIndex() *InvertedIndex {
	return NewInvertedIndex(IndexOptions{})
}

func testSearch(ii *InvertedIndex, query string, opts SearchOptions) []RawHit {
	tok := &Tokenizer{}
	return ii.Search(tok.TokenizeForSearch(query), opts)
}

func Test_Add_And_Has(t *testing.T) {
	ii := testIndex()

	require.NoError(t, ii.Add(&docstore.IndexedDocument{
		Path:     "notes/fox.md",
		Basename: "fox",
		Content:  "the quick brown fox",
	}))

	assert.True(t, ii.Has("notes/fox.md"))
	assert.False(t, ii.Has("notes/unknown.md"))
	assert.Equal(t, 1, ii.DocumentCount())
}

func Test_Add_Duplicate(t *testing.T) {
	ii := testIndex()
	doc := &docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "text"}

	require.NoError(t, ii.Add(doc))
	err := ii.Add(doc)

	assert.ErrorIs(t, err, ErrDuplicateDocument)
}

func Test_Remove(t *testing.T) {
	ii := testIndex()
	doc := &docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "unique-term"}
	require.NoError(t, ii.Add(doc))

	ii.Remove("a.md")

	assert.False(t, ii.Has("a.md"))
	assert.Empty(t, testSearch(ii, "unique-term", SearchOptions{}))

	// Remove-then-add behaves like a fresh add.
	require.NoError(t, ii.Add(doc))
	assert.Len(t, testSearch(ii, "unique-term", SearchOptions{}), 1)
}

func Test_Remove_UnknownPath(t *testing.T) {
	ii := testIndex()

	assert.NotPanics(t, func() { ii.Remove("missing.md") })
}

func Test_Search_ExactMatch(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "the quick brown fox"}))
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "b.md", Basename: "b", Content: "the lazy dog"}))

	hits := testSearch(ii, "quick", SearchOptions{})

	require.Len(t, hits, 1)
	assert.Equal(t, "a.md", hits[0].Path)
	assert.Contains(t, hits[0].Terms, "quick")
}

func Test_Search_AndSemantics(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "quick fox"}))
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "b.md", Basename: "b", Content: "quick"}))

	hits := testSearch(ii, "quick fox", SearchOptions{})

	require.Len(t, hits, 1)
	assert.Equal(t, "a.md", hits[0].Path)
}

func Test_Search_ExactBeatsPrefix(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "long.md", Basename: "long", Content: "searching"}))
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "exact.md", Basename: "exact", Content: "search"}))

	hits := testSearch(ii, "search", SearchOptions{PrefixLength: 1})

	require.Len(t, hits, 2)
	assert.Equal(t, "exact.md", hits[0].Path)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func Test_Search_Fuzzy(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "search"}))

	// One edit away, no shared prefix match possible.
	strict := testSearch(ii, "searh", SearchOptions{Fuzziness: FuzzinessOff})
	fuzzy := testSearch(ii, "searh", SearchOptions{Fuzziness: FuzzinessHigh})

	assert.Empty(t, strict)
	require.Len(t, fuzzy, 1)
	assert.Equal(t, "a.md", fuzzy[0].Path)
}

func Test_Search_FuzzySkipsShortTerms(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "cat"}))

	hits := testSearch(ii, "car", SearchOptions{Fuzziness: FuzzinessHigh})

	assert.Empty(t, hits)
}

func Test_Search_FieldBoost(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "title.md", Basename: "recipe", Content: "filler words here"}))
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "body.md", Basename: "other", Content: "recipe filler here"}))

	hits := testSearch(ii, "recipe", SearchOptions{BoostFields: FieldWeights{"basename": 10}})

	require.Len(t, hits, 2)
	assert.Equal(t, "title.md", hits[0].Path)
}

func Test_Search_RecencyBoost(t *testing.T) {
	ii := testIndex()
	now := time.Now()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{
		Path: "old.md", Basename: "old", Content: "report",
		Mtime: now.AddDate(0, -6, 0).UnixMilli(),
	}))
	require.NoError(t, ii.Add(&docstore.IndexedDocument{
		Path: "new.md", Basename: "new", Content: "report",
		Mtime: now.UnixMilli(),
	}))

	plain := testSearch(ii, "report", SearchOptions{})
	boosted := testSearch(ii, "report", SearchOptions{Recency: RecencyDay, Now: now})

	// Without the boost the tie breaks on insertion order.
	assert.Equal(t, "old.md", plain[0].Path)
	assert.Equal(t, "new.md", boosted[0].Path)
}

func Test_Search_TieBreaksOnInsertionOrder(t *testing.T) {
	ii := testIndex()
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "first.md", Basename: "x", Content: "same words"}))
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "second.md", Basename: "x", Content: "same words"}))

	hits := testSearch(ii, "same", SearchOptions{})

	require.Len(t, hits, 2)
	assert.Equal(t, "first.md", hits[0].Path)
	assert.Equal(t, "second.md", hits[1].Path)
}

func Test_Search_Diacritics(t *testing.T) {
	ii := NewInvertedIndex(IndexOptions{IgnoreDiacritics: true})
	require.NoError(t, ii.Add(&docstore.IndexedDocument{Path: "a.md", Basename: "a", Content: "café crème"}))

	hits := testSearch(ii, "cafe", SearchOptions{})

	require.Len(t, hits, 1)
}

func Test_AddAll_ReportsFirstError(t *testing.T) {
	ii := testIndex()
	docs := []*docstore.IndexedDocument{
		{Path: "a.md", Basename: "a", Content: "one"},
		{Path: "a.md", Basename: "a", Content: "dup"},
		{Path: "b.md", Basename: "b", Content: "two"},
	}

	err := ii.AddAll(docs)

	assert.ErrorIs(t, err, ErrDuplicateDocument)
	// The failure did not abort the rest.
	assert.True(t, ii.Has("b.md"))
}

func Test_FuzzyDistance(t *testing.T) {
	assert.Equal(t, 0, fuzzyDistance("cat", FuzzinessHigh))
	assert.Equal(t, 1, fuzzyDistance("cats!", FuzzinessHigh))
	assert.Equal(t, 2, fuzzyDistance("resolution", FuzzinessHigh))
	assert.Equal(t, 1, fuzzyDistance("resolution", FuzzinessLow))
	assert.Equal(t, 0, fuzzyDistance("resolution", FuzzinessOff))

	// Lengths are rune counts: a two-character CJK term is short even
	// though it spans six bytes.
	assert.Equal(t, 0, fuzzyDistance("你好", FuzzinessHigh))
	assert.Equal(t, 0, fuzzyDistance("你好世界", FuzzinessHigh))
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseQuery(t *testing.T) {
	q := ParseQuery(`foo bar "lorem ipsum" -baz -"quoted exclusion"`, false)

	assert.Equal(t, []QuerySegment{
		{Value: "foo"},
		{Value: "bar"},
		{Value: "lorem ipsum", Exact: true},
	}, q.Segments)
	assert.Equal(t, []QuerySegment{
		{Value: "baz"},
		{Value: "quoted exclusion", Exact: true},
	}, q.Exclusions)
}

func Test_ParseQuery_HyphenInsideToken(t *testing.T) {
	q := ParseQuery("foo bar-baz", false)

	assert.Equal(t, []QuerySegment{{Value: "foo"}, {Value: "bar-baz"}}, q.Segments)
	assert.Empty(t, q.Exclusions)
}

func Test_ParseQuery_Extensions(t *testing.T) {
	q := ParseQuery(".md notes .pdf", false)

	assert.Equal(t, []string{".md", ".pdf"}, q.Extensions)
	assert.Equal(t, []QuerySegment{{Value: "notes"}}, q.Segments)
}

func Test_ParseQuery_QuotedExtensionIsATerm(t *testing.T) {
	q := ParseQuery(`".md"`, false)

	assert.Empty(t, q.Extensions)
	assert.Equal(t, []QuerySegment{{Value: ".md", Exact: true}}, q.Segments)
}

func Test_ParseQuery_Tags(t *testing.T) {
	q := ParseQuery("#recipe pie #Dessert", false)

	assert.Equal(t, []string{"#recipe", "#dessert"}, q.Tags())
	assert.Equal(t, []string{"recipe", "dessert"}, q.TagsWithoutHash())
}

func Test_ParseQuery_Lowercases(t *testing.T) {
	q := ParseQuery("FooBar", false)

	assert.Equal(t, []QuerySegment{{Value: "foobar"}}, q.Segments)
}

func Test_ParseQuery_Diacritics(t *testing.T) {
	q := ParseQuery("Café", true)

	assert.Equal(t, []QuerySegment{{Value: "cafe"}}, q.Segments)
}

func Test_ParseQuery_UnterminatedQuote(t *testing.T) {
	q := ParseQuery(`foo "bar baz`, false)

	// The dangling quote stays a literal character and the span is
	// re-split on spaces.
	assert.Equal(t, []QuerySegment{
		{Value: "foo"},
		{Value: `"bar`},
		{Value: "baz"},
	}, q.Segments)
}

func Test_ParseQuery_BackToBackQuotes(t *testing.T) {
	q := ParseQuery(`"a b""c d"`, false)

	assert.Equal(t, []QuerySegment{
		{Value: "a b", Exact: true},
		{Value: "c d", Exact: true},
	}, q.Segments)
}

func Test_IsEmpty(t *testing.T) {
	assert.True(t, ParseQuery("", false).IsEmpty())
	assert.True(t, ParseQuery("-excluded", false).IsEmpty())
	assert.True(t, ParseQuery(".md", false).IsEmpty())
	assert.False(t, ParseQuery("term", false).IsEmpty())
}

func Test_ExactTerms_PreservesOrder(t *testing.T) {
	q := ParseQuery(`"b a" foo "a b"`, false)

	assert.Equal(t, []string{"b a", "a b"}, q.ExactTerms())
}

func Test_SegmentsToString(t *testing.T) {
	q := ParseQuery(`foo "lorem ipsum" -bar`, false)

	assert.Equal(t, "foo lorem ipsum", q.SegmentsToString())
}

package readers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse_Frontmatter(t *testing.T) {
	p := NewMarkdownParser()

	meta, err := p.Parse(`---
tags: [recipe, Dessert]
aliases:
  - Apple Tart
  - Tarte aux Pommes
author: Jane
rating: 5
---

Body text.
`)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"#recipe", "#dessert"}, meta.Tags)
	assert.Equal(t, []string{"Apple Tart", "Tarte aux Pommes"}, meta.Aliases)
	assert.Equal(t, []string{"Jane"}, meta.Properties["author"])
	assert.Equal(t, []string{"5"}, meta.Properties["rating"])
}

func Test_Parse_CommaSeparatedTags(t *testing.T) {
	p := NewMarkdownParser()

	meta, err := p.Parse("---\ntags: one, two\n---\ntext")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"#one", "#two"}, meta.Tags)
}

func Test_Parse_Headings(t *testing.T) {
	p := NewMarkdownParser()

	meta, err := p.Parse(`# Top
## Middle
### Deep
#### Ignored
text
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Top"}, meta.Headings1)
	assert.Equal(t, []string{"Middle"}, meta.Headings2)
	assert.Equal(t, []string{"Deep"}, meta.Headings3)
}

func Test_Parse_InlineTags(t *testing.T) {
	p := NewMarkdownParser()

	meta, err := p.Parse("Working on #project/alpha today, see #Notes.")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"#project/alpha", "#notes"}, meta.Tags)
}

func Test_Parse_WikiLinks(t *testing.T) {
	p := NewMarkdownParser()

	meta, err := p.Parse("See [[Other Note]] and [[Folder/Deep Note|displayed]] but not [[Other Note]] twice.")
	require.NoError(t, err)

	assert.Equal(t, []string{"Other Note", "Folder/Deep Note"}, meta.Links)
}

func Test_Parse_MalformedFrontmatter(t *testing.T) {
	p := NewMarkdownParser()

	_, err := p.Parse("---\n: [unclosed\n---\ntext")

	assert.Error(t, err)
}

func Test_Parse_NoFrontmatter(t *testing.T) {
	p := NewMarkdownParser()

	meta, err := p.Parse("just text")
	require.NoError(t, err)

	assert.Empty(t, meta.Tags)
	assert.Empty(t, meta.Properties)
}

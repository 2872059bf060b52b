package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_TokenizeForIndexing(t *testing.T) {
	tok := &Tokenizer{}

	tokens := tok.TokenizeForIndexing("The quick-brown fox, jumping over lazyDog")

	assert.Contains(t, tokens, "quick-brown")
	assert.Contains(t, tokens, "quick")
	assert.Contains(t, tokens, "brown")
	assert.Contains(t, tokens, "fox")
	assert.Contains(t, tokens, "lazyDog")
	assert.Contains(t, tokens, "lazy")
	assert.Contains(t, tokens, "dog")
}

func Test_TokenizeForIndexing_Dedupes(t *testing.T) {
	tok := &Tokenizer{}

	tokens := tok.TokenizeForIndexing("fox fox fox")

	assert.Equal(t, []string{"fox"}, tokens)
}

func Test_TokenizeForIndexing_URLs(t *testing.T) {
	tok := &Tokenizer{TokenizeURLs: true}

	tokens := tok.TokenizeForIndexing("see [my site](https://example.com/page) for details")

	assert.Contains(t, tokens, "https://example.com/page")
}

func Test_TokenizeForIndexing_URLsDisabled(t *testing.T) {
	tok := &Tokenizer{}

	tokens := tok.TokenizeForIndexing("see [my site](https://example.com/page)")

	assert.NotContains(t, tokens, "https://example.com/page")
}

func Test_TokenizeForSearch_Groups(t *testing.T) {
	tok := &Tokenizer{}

	st := tok.TokenizeForSearch("quick-brown fox")

	assert.Contains(t, st.Groups, []string{"quick-brown", "fox"})
	assert.Contains(t, st.Groups, []string{"quick", "brown"})
}

func Test_TokenizeForSearch_CamelCase(t *testing.T) {
	tok := &Tokenizer{}

	st := tok.TokenizeForSearch("lazyDog")

	assert.Contains(t, st.Groups, []string{"lazyDog"})
	assert.Contains(t, st.Groups, []string{"lazy", "dog"})
}

func Test_SplitHyphens(t *testing.T) {
	assert.Equal(t, []string{"quick", "brown"}, SplitHyphens("quick-brown"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitHyphens("a-b-c"))
	assert.Nil(t, SplitHyphens("plain"))
	assert.Nil(t, SplitHyphens("-"))
}

func Test_SplitCamelCase(t *testing.T) {
	assert.Equal(t, []string{"lazy", "dog"}, SplitCamelCase("lazyDog"))
	assert.Equal(t, []string{"http2", "server"}, SplitCamelCase("http2Server"))
	assert.Nil(t, SplitCamelCase("plain"))
	assert.Nil(t, SplitCamelCase("Plain"))
}

type fakeSegmenter struct{}

func (fakeSegmenter) Cut(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func Test_Tokenizer_Segmenter(t *testing.T) {
	tok := &Tokenizer{Segmenter: fakeSegmenter{}}

	tokens := tok.TokenizeForIndexing("你好 world")

	assert.Contains(t, tokens, "你好")
	assert.Contains(t, tokens, "你")
	assert.Contains(t, tokens, "好")
	assert.Contains(t, tokens, "world")

	st := tok.TokenizeForSearch("你好")
	assert.Contains(t, st.Groups, []string{"你", "好"})
}

package search

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Base split for indexing and search tokens. Hyphens are deliberately
	// not part of this class: hyphenated tokens survive the base split and
	// are additionally broken up by SplitHyphens.
	spaceOrPunct = regexp.MustCompile(`[\s\p{Z}` + "`" + `!"#$%&'()*+,./:;<=>?@\[\\\]^_{|}~、。,!?;:()《》「」]+`)
	// Coarser split keeping punctuation-joined words whole.
	bracketsAndSpace = regexp.MustCompile(`[\s\[\]()<>{}"'|]+`)

	cjkChars        = regexp.MustCompile(`\p{Han}|\p{Hiragana}|\p{Katakana}|\p{Hangul}`)
	markdownLinkURL = regexp.MustCompile(`\[[^\]]*\]\((https?://[^\s)]+)\)`)
	camelBoundary   = regexp.MustCompile(`(\p{Ll}|\d)(\p{Lu})`)
)

// Segmenter is an optional word-segmentation capability for scripts without
// word separators. Its absence is not an error: tokens are kept unsegmented.
type Segmenter interface {
	Cut(text string) []string
}

// Tokenizer produces token streams shared by index-time and query-time
// processing, so that a query written in any one tokenization style still
// matches documents indexed with all of them.
type Tokenizer struct {
	// Optional CJK segmenter. May be nil.
	Segmenter Segmenter
	// Emit markdown link URLs as whole tokens.
	TokenizeURLs bool
}

// SearchTokens is a boolean query shape: an OR across groups, an AND within
// each group. Each group is one alternative interpretation of the query
// text.
type SearchTokens struct {
	Groups [][]string
}

// TokenizeForIndexing combines every tokenization method and returns the
// deduplicated union. The result deliberately contains more tokens than the
// raw text split.
func (t *Tokenizer) TokenizeForIndexing(text string) []string {
	tokens := splitTokens(text)

	tokens = append(tokens, flatMap(tokens, SplitHyphens)...)
	tokens = append(tokens, flatMap(tokens, SplitCamelCase)...)

	// Whole words, split on brackets and spaces only.
	tokens = append(tokens, splitWords(text)...)

	if t.TokenizeURLs {
		// URLs are extracted from the original text, before any
		// punctuation split tears them apart.
		for _, m := range markdownLinkURL.FindAllStringSubmatch(text, -1) {
			tokens = append(tokens, m[1])
		}
	}

	if t.Segmenter != nil {
		tokens = append(tokens, t.segment(tokens)...)
	}

	return dedupe(tokens)
}

// TokenizeForSearch groups tokens so that the search runs as an OR of
// alternative AND-combined interpretations: whichever interpretation matches
// wins, but all terms of that interpretation must match.
func (t *Tokenizer) TokenizeForSearch(text string) SearchTokens {
	tokens := splitTokens(text)

	groups := [][]string{
		tokens,
		splitWords(text),
		flatMap(tokens, SplitHyphens),
		flatMap(tokens, SplitCamelCase),
	}
	if t.Segmenter != nil {
		groups = append(groups, t.segment(tokens))
	}

	out := SearchTokens{}
	for _, g := range groups {
		if g = dedupe(g); len(g) > 0 {
			out.Groups = append(out.Groups, g)
		}
	}
	return out
}

func (t *Tokenizer) segment(tokens []string) []string {
	var segmented []string
	for _, tok := range tokens {
		if cjkChars.MatchString(tok) {
			segmented = append(segmented, t.Segmenter.Cut(tok)...)
		} else {
			segmented = append(segmented, tok)
		}
	}
	return segmented
}

// SplitHyphens returns the hyphen-separated parts of a token, or nothing if
// the token is not hyphenated.
func SplitHyphens(token string) []string {
	if !strings.Contains(token, "-") {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(token, "-") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// SplitCamelCase splits a token at lower-to-upper boundaries and case-folds
// the parts. Tokens without such a boundary yield nothing.
func SplitCamelCase(token string) []string {
	marked := camelBoundary.ReplaceAllString(token, "${1}\x00${2}")
	if marked == token {
		return nil
	}
	parts := strings.Split(marked, "\x00")
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return parts
}

func splitTokens(text string) []string {
	return nonEmpty(spaceOrPunct.Split(text, -1))
}

func splitWords(text string) []string {
	return nonEmpty(bracketsAndSpace.Split(text, -1))
}

func nonEmpty(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != "" && !isOnlySpace(t) {
			out = append(out, t)
		}
	}
	return out
}

func isOnlySpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func flatMap(tokens []string, f func(string) []string) []string {
	var out []string
	for _, t := range tokens {
		out = append(out, f(t)...)
	}
	return out
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

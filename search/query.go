package search

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/scambier/omnisearch/docstore"
)

var extensionToken = regexp.MustCompile(`^\.[a-z0-9]+$`)

// QuerySegment is one positive or excluded term. Exact is true when the term
// was quoted in the query string.
type QuerySegment struct {
	Value string
	Exact bool
}

// Query is the parsed, immutable form of a search request.
type Query struct {
	Segments   []QuerySegment
	Exclusions []QuerySegment
	Extensions []string

	// Path filters are set explicitly by the caller; they are never
	// inferred from the query text.
	PathFilters        []string
	ExcludePathFilters []string
}

// ParseQuery parses a raw query string. Malformed quoting never fails: an
// unterminated quote degrades to a literal character.
func ParseQuery(text string, ignoreDiacritics bool) *Query {
	if ignoreDiacritics {
		text = docstore.RemoveDiacritics(text)
	}
	text = strings.ToLower(text)

	q := &Query{}
	for _, tok := range splitQueryTokens(text) {
		value := stripSurroundingQuotes(tok.text)
		exact := value != tok.text
		if value == "" {
			continue
		}

		if !exact && !tok.excluded && extensionToken.MatchString(value) {
			q.Extensions = append(q.Extensions, value)
			continue
		}

		seg := QuerySegment{Value: value, Exact: exact}
		if tok.excluded {
			q.Exclusions = append(q.Exclusions, seg)
		} else {
			q.Segments = append(q.Segments, seg)
		}
	}

	return q
}

// IsEmpty is true when the query has no positive terms, regardless of
// exclusions and filters.
func (q *Query) IsEmpty() bool {
	return len(q.Segments) == 0
}

// SegmentsToString joins the positive terms back into a plain string.
func (q *Query) SegmentsToString() string {
	values := make([]string, len(q.Segments))
	for i, s := range q.Segments {
		values[i] = s.Value
	}
	return strings.Join(values, " ")
}

// Tags returns the #-prefixed positive terms.
func (q *Query) Tags() []string {
	var tags []string
	for _, s := range q.Segments {
		if strings.HasPrefix(s.Value, "#") {
			tags = append(tags, s.Value)
		}
	}
	return tags
}

// TagsWithoutHash returns the query tags with their leading # removed.
func (q *Query) TagsWithoutHash() []string {
	tags := q.Tags()
	for i, t := range tags {
		tags[i] = strings.TrimPrefix(t, "#")
	}
	return tags
}

// ExactTerms returns the quoted terms, preserving input order.
func (q *Query) ExactTerms() []string {
	var terms []string
	for _, s := range q.Segments {
		if s.Exact {
			terms = append(terms, s.Value)
		}
	}
	return terms
}

type queryToken struct {
	text     string
	excluded bool
}

// splitQueryTokens splits a query on spaces, keeping quoted spans together.
// A token-initial minus marks an exclusion; a minus elsewhere is an ordinary
// character, so `foo bar-baz` excludes nothing.
func splitQueryTokens(text string) []queryToken {
	var tokens []queryToken
	var buf []rune
	excluded := false
	inQuote := false

	flush := func() {
		if len(buf) > 0 {
			tokens = append(tokens, queryToken{text: string(buf), excluded: excluded})
		}
		buf = buf[:0]
		excluded = false
	}

	for _, r := range text {
		switch {
		case r == '"':
			buf = append(buf, r)
			inQuote = !inQuote
			if !inQuote {
				// Closing quote ends the token, so back-to-back quoted
				// spans become independent segments.
				flush()
			}
		case unicode.IsSpace(r) && !inQuote:
			flush()
		case r == '-' && len(buf) == 0 && !inQuote:
			excluded = true
		default:
			buf = append(buf, r)
		}
	}

	if inQuote {
		// Unterminated quote: the buffered span is re-split on spaces and
		// the dangling quote stays a literal character.
		parts := strings.Fields(string(buf))
		for i, p := range parts {
			tokens = append(tokens, queryToken{text: p, excluded: excluded && i == 0})
		}
		return tokens
	}

	flush()
	return tokens
}

// stripSurroundingQuotes removes a balanced pair of surrounding quotes; an
// unpaired quote is left in place.
func stripSurroundingQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

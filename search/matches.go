package search

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	maxMatches    = 100
	matchesBudget = 50 * time.Millisecond

	excerptBefore = 100
	excerptAfter  = 300
)

var (
	markdownEmphasis = regexp.MustCompile(`[*_]+(.+?)[*_]+`)
	yamlFrontmatter  = regexp.MustCompile(`(?ms)\A---\s*\n.*?\n?^---\s?`)
)

// SearchMatch is one located occurrence of a found word in a document.
type SearchMatch struct {
	Match  string `json:"match"`
	Offset int    `json:"offset"`
}

// StripMarkdown removes bold and italic markers from a string, so quoted
// terms can match across formatting.
func StripMarkdown(text string) string {
	return markdownEmphasis.ReplaceAllString(text, "$1")
}

// RemoveFrontmatter drops a leading YAML frontmatter block.
func RemoveFrontmatter(text string) string {
	return yamlFrontmatter.ReplaceAllString(text, "")
}

// stringsToRegexp compiles found words into a single alternation, matching
// on word starts (start of text, space/punctuation, hyphen or an uppercase
// camelCase boundary).
func stringsToRegexp(words []string) (*regexp.Regexp, error) {
	if len(words) == 0 {
		return nil, nil
	}

	// Longer strings first, so they win over their own substrings.
	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	escaped := make([]string, len(sorted))
	for i, w := range sorted {
		escaped[i] = regexp.QuoteMeta(w)
	}

	pattern := `(?i)(?:^|[\s\p{P}\p{Z}]|[A-Z])(` + strings.Join(escaped, "|") + `)`
	return regexp.Compile(pattern)
}

// GetMatches locates every occurrence of the found words in a text, bounded
// by a match count cap and a time budget so pathological inputs cannot stall
// a search. If the query's full literal text occurs verbatim and was found,
// that occurrence is moved to the front without duplication.
func GetMatches(text string, words []string, query *Query) []SearchMatch {
	re, err := stringsToRegexp(words)
	if err != nil || re == nil {
		return nil
	}

	start := time.Now()

	// Matching runs against the original text. Lowercasing it first would
	// shift byte offsets for code points whose lower form has a different
	// length.
	var matches []SearchMatch
	offset := 0
	for len(matches) < maxMatches && time.Since(start) < matchesBudget {
		loc := re.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			break
		}
		// loc[2]:loc[3] is the captured word, past the boundary prefix.
		from, to := offset+loc[2], offset+loc[3]
		if to > from {
			matches = append(matches, SearchMatch{Match: text[from:to], Offset: from})
		}
		next := offset + loc[1]
		if next <= offset {
			next = offset + 1
		}
		offset = next
		if offset >= len(text) {
			break
		}
	}

	if query != nil && len(query.Segments) > 1 {
		full := query.SegmentsToString()
		if best := indexFold(text, full); best > -1 {
			found := false
			for _, m := range matches {
				if m.Offset == best {
					found = true
					break
				}
			}
			if found {
				kept := matches[:0]
				for _, m := range matches {
					if m.Offset != best {
						kept = append(kept, m)
					}
				}
				matches = append([]SearchMatch{{Match: full, Offset: best}}, kept...)
			}
		}
	}

	return matches
}

// indexFold reports the byte offset of the first case-insensitive
// occurrence of needle in s, or -1.
func indexFold(s, needle string) int {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(needle))
	if err != nil {
		return -1
	}
	if loc := re.FindStringIndex(s); loc != nil {
		return loc[0]
	}
	return -1
}

// MakeExcerpt returns a context window around an offset in the content,
// ellipsized on both truncated ends.
func MakeExcerpt(content string, offset int) string {
	if offset < 0 || offset > len(content) {
		if len(content) > excerptAfter {
			return content[:excerptAfter]
		}
		return content
	}

	from := offset - excerptBefore
	if from < 0 {
		from = 0
	}
	to := offset + excerptAfter
	if to > len(content) {
		to = len(content)
	}

	excerpt := strings.TrimSpace(content[from:to])
	if from > 0 {
		excerpt = "…" + excerpt
	}
	if to < len(content) {
		excerpt += "…"
	}
	return excerpt
}

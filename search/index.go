package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/rcrowley/go-metrics"

	"github.com/scambier/omnisearch/docstore"
)

// ErrDuplicateDocument is returned when adding a path that is already
// indexed. The correct caller behavior is always remove-before-add; a silent
// overwrite would hide a bug in the sync layer.
var ErrDuplicateDocument = errors.New("document already indexed")

var (
	addDocTimer   = metrics.NewRegisteredTimer("index_docs_added", nil)
	searchTimer   = metrics.NewRegisteredTimer("index_searches", nil)
	indexedTokens = metrics.NewRegisteredHistogram("index_doc_tokens", nil, metrics.NewUniformSample(512))
)

// Match qualities. An exact token match always outranks a prefix match,
// which always outranks a fuzzy match, independent of the fuzziness setting.
const (
	exactWeight  = 1.0
	prefixWeight = 0.375
	fuzzyWeight  = 0.45
)

// Fuzziness is one of three discrete edit-distance tolerance levels.
type Fuzziness int

const (
	FuzzinessOff Fuzziness = iota
	FuzzinessLow
	FuzzinessHigh
)

func (f Fuzziness) factor() float64 {
	switch f {
	case FuzzinessLow:
		return 0.1
	case FuzzinessHigh:
		return 0.2
	default:
		return 0
	}
}

// RecencyCutoff selects how fast the recency boost decays.
type RecencyCutoff string

const (
	RecencyDisabled RecencyCutoff = ""
	RecencyDay      RecencyCutoff = "day"
	RecencyWeek     RecencyCutoff = "week"
	RecencyMonth    RecencyCutoff = "month"
)

func (r RecencyCutoff) exponent() float64 {
	switch r {
	case RecencyDay:
		return -3
	case RecencyWeek:
		return -0.3
	case RecencyMonth:
		return -0.1
	default:
		return 0
	}
}

// FieldWeights maps indexed field names to their boost factors.
type FieldWeights map[string]float64

// IndexOptions is the field and normalization configuration an index was
// built with. A persisted index whose options differ from the current ones
// is treated as corrupt.
type IndexOptions struct {
	Fields           []string
	IgnoreDiacritics bool
	Tokenizer        *Tokenizer
}

// DefaultFields are the indexed document fields, in boost-declaration order.
// directory is derived from the path by stripping the filename.
func DefaultFields() []string {
	return []string{
		"basename",
		"directory",
		"aliases",
		"tags",
		"content",
		"headings1",
		"headings2",
		"headings3",
	}
}

// SearchOptions tunes one Search call.
type SearchOptions struct {
	// Minimum term length for prefix matching.
	PrefixLength int
	Fuzziness    Fuzziness
	BoostFields  FieldWeights
	Recency      RecencyCutoff

	// Now overrides the clock for recency boosting. Zero means time.Now.
	Now time.Time
}

// RawHit is one scored index result, before postprocessing.
type RawHit struct {
	Path  string
	Score float64
	// Index terms that matched, for highlighting.
	Terms []string
	// Stored metadata, used by the ranking pipeline.
	Tags       []string
	Properties map[string][]string
	Mtime      int64
}

type docInfo struct {
	Tags         []string            `json:"tags,omitempty"`
	Properties   map[string][]string `json:"properties,omitempty"`
	Mtime        int64               `json:"mtime"`
	FieldLengths map[string]int      `json:"fieldLengths"`
	Seq          int64               `json:"seq"`
}

// InvertedIndex maps tokens to per-document, per-field term frequencies.
// It is not safe for concurrent use; the Engine serializes access.
type InvertedIndex struct {
	options IndexOptions

	// token -> path -> field -> term frequency
	postings map[string]map[string]map[string]int
	// path -> tokens contributed, so removal leaves no residual postings
	docTokens map[string][]string
	docs      map[string]docInfo

	// Monotonic insertion counter; ties in score break on insertion order.
	seq int64
}

func NewInvertedIndex(options IndexOptions) *InvertedIndex {
	if len(options.Fields) == 0 {
		options.Fields = DefaultFields()
	}
	if options.Tokenizer == nil {
		options.Tokenizer = &Tokenizer{}
	}
	return &InvertedIndex{
		options:   options,
		postings:  make(map[string]map[string]map[string]int),
		docTokens: make(map[string][]string),
		docs:      make(map[string]docInfo),
	}
}

func (ii *InvertedIndex) Has(path string) bool {
	_, ok := ii.docs[path]
	return ok
}

func (ii *InvertedIndex) DocumentCount() int {
	return len(ii.docs)
}

// Add indexes every configured field of a document. It fails on a duplicate
// path: callers must remove the previous version first.
func (ii *InvertedIndex) Add(doc *docstore.IndexedDocument) error {
	if ii.Has(doc.Path) {
		return fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.Path)
	}

	start := time.Now()
	info := docInfo{
		Tags:         doc.Tags,
		Properties:   doc.Properties,
		Mtime:        doc.Mtime,
		FieldLengths: make(map[string]int, len(ii.options.Fields)),
		Seq:          ii.seq,
	}
	ii.seq++

	seen := make(map[string]struct{})
	total := 0
	for _, field := range ii.options.Fields {
		tokens := ii.safeTokenize(extractField(doc, field))
		info.FieldLengths[field] = len(tokens)
		total += len(tokens)

		for _, token := range tokens {
			term := ii.processTerm(token)
			if term == "" {
				continue
			}

			byPath, ok := ii.postings[term]
			if !ok {
				byPath = make(map[string]map[string]int)
				ii.postings[term] = byPath
			}
			byField, ok := byPath[doc.Path]
			if !ok {
				byField = make(map[string]int)
				byPath[doc.Path] = byField
			}
			byField[field]++

			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				ii.docTokens[doc.Path] = append(ii.docTokens[doc.Path], term)
			}
		}
	}

	ii.docs[doc.Path] = info
	indexedTokens.Update(int64(total))
	addDocTimer.UpdateSince(start)
	return nil
}

// Remove deletes every posting of a path. Removing an unknown path is a
// no-op, and remove-then-add is indistinguishable from a fresh add.
func (ii *InvertedIndex) Remove(path string) {
	for _, term := range ii.docTokens[path] {
		byPath := ii.postings[term]
		delete(byPath, path)
		if len(byPath) == 0 {
			delete(ii.postings, term)
		}
	}
	delete(ii.docTokens, path)
	delete(ii.docs, path)
}

// AddAll indexes documents one by one. A tokenization or duplicate failure
// on one document does not abort the rest; the first error is reported.
func (ii *InvertedIndex) AddAll(docs []*docstore.IndexedDocument) error {
	var firstErr error
	for _, doc := range docs {
		if err := ii.Add(doc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (ii *InvertedIndex) DiscardAll(paths []string) {
	for _, p := range paths {
		ii.Remove(p)
	}
}

// Search executes an OR-of-AND-groups query. Within a group every term must
// match the document; across groups the best-scoring interpretation wins.
func (ii *InvertedIndex) Search(tokens SearchTokens, opts SearchOptions) []RawHit {
	start := time.Now()
	defer func() { searchTimer.UpdateSince(start) }()

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	type hitAcc struct {
		score float64
		terms map[string]struct{}
		seq   int64
	}
	hits := make(map[string]*hitAcc)

	for _, group := range tokens.Groups {
		groupHits := ii.searchGroup(group, opts)
		for path, gh := range groupHits {
			acc, ok := hits[path]
			if !ok {
				acc = &hitAcc{terms: make(map[string]struct{}), seq: ii.docs[path].Seq}
				hits[path] = acc
			}
			if gh.score > acc.score {
				acc.score = gh.score
			}
			for t := range gh.terms {
				acc.terms[t] = struct{}{}
			}
		}
	}

	out := make([]RawHit, 0, len(hits))
	for path, acc := range hits {
		info := ii.docs[path]
		terms := make([]string, 0, len(acc.terms))
		for t := range acc.terms {
			terms = append(terms, t)
		}
		sort.Strings(terms)

		out = append(out, RawHit{
			Path:       path,
			Score:      acc.score * ii.recencyBoost(info.Mtime, opts.Recency, now),
			Terms:      terms,
			Tags:       info.Tags,
			Properties: info.Properties,
			Mtime:      info.Mtime,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return hits[out[i].Path].seq < hits[out[j].Path].seq
	})
	return out
}

type groupHit struct {
	score float64
	terms map[string]struct{}
}

func (ii *InvertedIndex) searchGroup(terms []string, opts SearchOptions) map[string]*groupHit {
	hits := make(map[string]*groupHit)
	matched := make(map[string]int)

	for _, raw := range terms {
		term := ii.processTerm(raw)
		if term == "" {
			continue
		}

		perDoc := make(map[string]float64)
		termMatches := make(map[string]map[string]struct{})

		for variant, quality := range ii.expandTerm(term, opts) {
			byPath := ii.postings[variant]
			idf := math.Log1p(float64(len(ii.docs)) / float64(1+len(byPath)))
			for path, byField := range byPath {
				perDoc[path] += quality * idf * ii.fieldScore(path, byField, opts.BoostFields)
				if termMatches[path] == nil {
					termMatches[path] = make(map[string]struct{})
				}
				termMatches[path][variant] = struct{}{}
			}
		}

		for path, score := range perDoc {
			h, ok := hits[path]
			if !ok {
				h = &groupHit{terms: make(map[string]struct{})}
				hits[path] = h
			}
			h.score += score
			for v := range termMatches[path] {
				h.terms[v] = struct{}{}
			}
			matched[path]++
		}
	}

	// AND semantics: keep documents matched by every term of the group.
	required := 0
	for _, raw := range terms {
		if ii.processTerm(raw) != "" {
			required++
		}
	}
	for path := range hits {
		if matched[path] < required {
			delete(hits, path)
		}
	}
	return hits
}

// expandTerm maps a query term to the indexed terms it matches, with their
// match quality. Exact lookups always carry full weight, so raising the
// fuzziness tolerance can only ever add results.
func (ii *InvertedIndex) expandTerm(term string, opts SearchOptions) map[string]float64 {
	candidates := make(map[string]float64)
	if _, ok := ii.postings[term]; ok {
		candidates[term] = exactWeight
	}

	// Lengths count runes, so multi-byte terms are not misjudged as long.
	termLen := utf8.RuneCountInString(term)
	usePrefix := opts.PrefixLength > 0 && termLen >= opts.PrefixLength
	maxDist := fuzzyDistance(term, opts.Fuzziness)
	if !usePrefix && maxDist == 0 {
		return candidates
	}

	for indexed := range ii.postings {
		if indexed == term {
			continue
		}
		indexedLen := utf8.RuneCountInString(indexed)
		if usePrefix && strings.HasPrefix(indexed, term) {
			// Longer completions weigh less than near-complete ones.
			w := prefixWeight * float64(termLen) / float64(indexedLen)
			if w > candidates[indexed] {
				candidates[indexed] = w
			}
			continue
		}
		if maxDist > 0 && abs(indexedLen-termLen) <= maxDist {
			if d := levenshtein.ComputeDistance(term, indexed); d <= maxDist {
				w := fuzzyWeight * (1 - float64(d)/float64(termLen))
				if w > candidates[indexed] {
					candidates[indexed] = w
				}
			}
		}
	}
	return candidates
}

// fuzzyDistance scales the edit-distance budget with term length: short
// terms get none, medium terms half the configured tolerance, long terms the
// full tolerance.
func fuzzyDistance(term string, f Fuzziness) int {
	factor := f.factor()
	if factor == 0 {
		return 0
	}
	n := utf8.RuneCountInString(term)
	switch {
	case n <= 3:
		return 0
	case n <= 5:
		factor /= 2
	}
	return int(math.Round(factor * float64(n)))
}

func (ii *InvertedIndex) fieldScore(path string, byField map[string]int, boosts FieldWeights) float64 {
	info := ii.docs[path]
	score := 0.0
	for field, tf := range byField {
		boost := 1.0
		if b, ok := boosts[field]; ok && b > 0 {
			boost = b
		}
		norm := 1.0
		if l := info.FieldLengths[field]; l > 0 {
			norm = 1 / math.Sqrt(float64(l))
		}
		score += boost * norm * math.Sqrt(float64(tf))
	}
	return score
}

func (ii *InvertedIndex) recencyBoost(mtime int64, cutoff RecencyCutoff, now time.Time) float64 {
	exp := cutoff.exponent()
	if exp == 0 || mtime <= 0 {
		return 1
	}
	daysElapsed := now.Sub(time.UnixMilli(mtime)).Hours() / 24
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	return 1 + math.Exp(exp*daysElapsed)
}

func (ii *InvertedIndex) processTerm(token string) string {
	if ii.options.IgnoreDiacritics {
		token = docstore.RemoveDiacritics(token)
	}
	return strings.ToLower(token)
}

// safeTokenize shields indexing from a panicking tokenizer or segmenter: the
// offending document simply contributes no tokens.
func (ii *InvertedIndex) safeTokenize(text string) (tokens []string) {
	defer func() {
		if recover() != nil {
			tokens = nil
		}
	}()
	return ii.options.Tokenizer.TokenizeForIndexing(text)
}

func extractField(doc *docstore.IndexedDocument, field string) string {
	switch field {
	case "basename":
		return doc.Basename
	case "directory":
		// The path without its filename.
		if i := strings.LastIndex(doc.Path, "/"); i > 0 {
			return doc.Path[:i]
		}
		return ""
	case "aliases":
		return strings.Join(doc.Aliases, " ")
	case "tags":
		return strings.Join(doc.Tags, " ")
	case "content":
		return doc.Content
	case "headings1":
		return doc.Headings1
	case "headings2":
		return doc.Headings2
	case "headings3":
		return doc.Headings3
	default:
		return ""
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scambier/omnisearch/docstore"
)

const (
	defaultMaxResults = 50
	defaultBatchSize  = 500
	defaultFetchJobs  = 8
	defaultCacheFlush = 5 * time.Second
	minWordLength     = 2
)

// DocumentProvider resolves a path to a fully extracted, index-ready
// document.
type DocumentProvider interface {
	GetDocument(ctx context.Context, path string) (*docstore.IndexedDocument, error)
}

// EngineOptions configures a search Engine. Zero values fall back to
// sensible defaults.
type EngineOptions struct {
	Logger            *slog.Logger
	Tokenizer         *Tokenizer
	IgnoreDiacritics  bool
	Weights           FieldWeights
	Fuzziness         Fuzziness
	Recency           RecencyCutoff
	SimpleSearch      bool
	HideExcluded      bool
	DownrankedFolders []string
	PropertyWeights   []PropertyWeight
	IsIgnored         func(path string) bool
	CachePath         string
	CompressCache     bool
	WriteInterval     time.Duration
	MaxResults        int
	BatchSize         int
}

// ResultNote is a ranked search result ready for display.
type ResultNote struct {
	Score      float64       `json:"score"`
	Path       string        `json:"path"`
	Basename   string        `json:"basename"`
	Excerpt    string        `json:"excerpt"`
	FoundWords []string      `json:"foundWords"`
	Matches    []SearchMatch `json:"matches"`
}

// Diff describes how the index must change to match the current state of
// the document set.
type Diff struct {
	ToAdd    []docstore.DocumentRef
	ToRemove []string
}

// Engine owns the inverted index and turns raw hits into ranked, filtered
// results.
type Engine struct {
	opts     EngineOptions
	provider DocumentProvider
	log      *slog.Logger

	mu           sync.RWMutex
	index        *InvertedIndex
	indexedPaths map[string]int64

	pendingMu sync.Mutex
	pending   map[string]struct{}

	writer *Throttler
}

func NewEngine(provider DocumentProvider, opts EngineOptions) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = &Tokenizer{}
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.WriteInterval == 0 {
		opts.WriteInterval = defaultCacheFlush
	}
	e := &Engine{
		opts:         opts,
		provider:     provider,
		log:          opts.Logger,
		index:        NewInvertedIndex(indexOptionsFor(opts)),
		indexedPaths: make(map[string]int64),
		pending:      make(map[string]struct{}),
	}
	e.writer = NewThrottler(opts.WriteInterval, e.writeCache)
	return e
}

func indexOptionsFor(opts EngineOptions) IndexOptions {
	return IndexOptions{
		Fields:           DefaultFields(),
		IgnoreDiacritics: opts.IgnoreDiacritics,
		Tokenizer:        opts.Tokenizer,
	}
}

// DocumentCount reports how many documents are currently indexed.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.DocumentCount()
}

// GetDiff compares the given refs against the indexed set and returns what
// must be added and removed. A changed mtime appears in both lists.
func (e *Engine) GetDiff(refs []docstore.DocumentRef) Diff {
	e.mu.RLock()
	defer e.mu.RUnlock()

	current := make(map[string]int64, len(refs))
	for _, ref := range refs {
		current[ref.Path] = ref.Mtime
	}

	var diff Diff
	for _, ref := range refs {
		mtime, ok := e.indexedPaths[ref.Path]
		if !ok || mtime != ref.Mtime {
			diff.ToAdd = append(diff.ToAdd, ref)
		}
	}
	for path, mtime := range e.indexedPaths {
		cur, ok := current[path]
		if !ok || cur != mtime {
			diff.ToRemove = append(diff.ToRemove, path)
		}
	}
	return diff
}

// AddFromPaths fetches the given documents and indexes them in batches,
// markdown first. Documents that fail to resolve are logged and skipped.
func (e *Engine) AddFromPaths(ctx context.Context, refs []docstore.DocumentRef) error {
	if len(refs) == 0 {
		return nil
	}

	sorted := make([]docstore.DocumentRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return isMarkdown(sorted[i].Path) && !isMarkdown(sorted[j].Path)
	})

	for start := 0; start < len(sorted); start += e.opts.BatchSize {
		end := start + e.opts.BatchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		if err := e.addBatch(ctx, sorted[start:end]); err != nil {
			return err
		}
	}
	e.writer.Trigger()
	return nil
}

func (e *Engine) addBatch(ctx context.Context, refs []docstore.DocumentRef) error {
	docs := make([]*docstore.IndexedDocument, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultFetchJobs)
	for i, ref := range refs {
		g.Go(func() error {
			doc, err := e.provider.GetDocument(gctx, ref.Path)
			if err != nil {
				e.log.Warn("failed to load document", "path", ref.Path, "error", err)
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to fetch documents: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		if _, ok := e.indexedPaths[doc.Path]; ok {
			e.index.Remove(doc.Path)
		}
		if err := e.index.Add(doc); err != nil {
			e.log.Warn("failed to index document", "path", doc.Path, "error", err)
			continue
		}
		e.indexedPaths[doc.Path] = refs[i].Mtime
	}
	return nil
}

// IndexDocument adds or replaces one document directly, bypassing the
// provider. Used for placeholder notes that exist only as link targets.
// Placeholders are kept out of the path/mtime map so a sync diff never
// sees them as vanished files.
func (e *Engine) IndexDocument(doc *docstore.IndexedDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index.Has(doc.Path) {
		e.index.Remove(doc.Path)
	}
	if err := e.index.Add(doc); err != nil {
		return err
	}
	if !doc.DoesNotExist {
		e.indexedPaths[doc.Path] = doc.Mtime
	}
	return nil
}

// HasDocument reports whether path is currently indexed.
func (e *Engine) HasDocument(path string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Has(path)
}

// RemoveFromPaths drops the given documents from the index.
func (e *Engine) RemoveFromPaths(paths []string) {
	if len(paths) == 0 {
		return
	}
	e.mu.Lock()
	for _, path := range paths {
		e.index.Remove(path)
		delete(e.indexedPaths, path)
	}
	e.mu.Unlock()
	e.writer.Trigger()
}

// MarkForReindex records a document as stale. The reindex happens lazily,
// coalesced, before the next search.
func (e *Engine) MarkForReindex(ref docstore.DocumentRef) {
	e.pendingMu.Lock()
	e.pending[ref.Path] = struct{}{}
	e.pendingMu.Unlock()
}

// RefreshIndex reindexes every document marked stale since the last call.
func (e *Engine) RefreshIndex(ctx context.Context) error {
	e.pendingMu.Lock()
	if len(e.pending) == 0 {
		e.pendingMu.Unlock()
		return nil
	}
	paths := make([]string, 0, len(e.pending))
	for path := range e.pending {
		paths = append(paths, path)
	}
	e.pending = make(map[string]struct{})
	e.pendingMu.Unlock()

	refs := make([]docstore.DocumentRef, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			e.RemoveFromPaths([]string{path})
			continue
		}
		refs = append(refs, docstore.DocumentRef{Path: path, Mtime: info.ModTime().UnixMilli()})
	}
	return e.AddFromPaths(ctx, refs)
}

// Search parses the query, runs it and returns ranked results. Every
// failure degrades to an empty result list.
func (e *Engine) Search(ctx context.Context, text string) []ResultNote {
	query := ParseQuery(text, e.opts.IgnoreDiacritics)
	if query.IsEmpty() {
		return nil
	}
	if err := e.RefreshIndex(ctx); err != nil {
		e.log.Warn("failed to refresh index before search", "error", err)
	}
	notes, err := e.GetSuggestions(ctx, query, "")
	if err != nil {
		e.log.Warn("search failed", "query", text, "error", err)
		return nil
	}
	return notes
}

// GetSuggestions runs the query against the index and applies the ranking
// pipeline. A non-empty singleFilePath restricts results to that document.
func (e *Engine) GetSuggestions(ctx context.Context, query *Query, singleFilePath string) ([]ResultNote, error) {
	tokens := e.opts.Tokenizer.TokenizeForSearch(query.SegmentsToString())

	prefixLength := 1
	if e.opts.SimpleSearch {
		prefixLength = 3
	}
	opts := SearchOptions{
		PrefixLength: prefixLength,
		Fuzziness:    e.opts.Fuzziness,
		BoostFields:  e.opts.Weights,
		Recency:      e.opts.Recency,
		Now:          time.Now(),
	}

	e.mu.RLock()
	hits := e.index.Search(tokens, opts)
	e.mu.RUnlock()

	hits = filterExtensions(hits, query.Extensions)
	hits = filterPaths(hits, query.PathFilters, query.ExcludePathFilters)
	if singleFilePath != "" {
		hits = filterSingleFile(hits, singleFilePath)
	}
	hits = applyIgnored(hits, e.opts.IsIgnored, e.opts.HideExcluded)
	hits = applyDownrankedFolders(hits, e.opts.DownrankedFolders)
	hits = applyPropertyBoosts(hits, e.opts.PropertyWeights)
	hits = applyTagBoosts(hits, query.Tags())
	hits = sortAndTruncate(hits, e.opts.MaxResults)

	loaded, err := e.buildNotes(ctx, hits, query)
	if err != nil {
		return nil, err
	}
	loaded = filterExactPhrases(loaded, query, e.opts.IgnoreDiacritics)
	loaded = filterExclusions(loaded, query, e.opts.IgnoreDiacritics)
	loaded = dedupeNotes(loaded)

	notes := make([]ResultNote, len(loaded))
	for i, n := range loaded {
		notes[i] = n.ResultNote
	}
	return notes, nil
}

// loadedNote pairs a result with the content it was built from, so the
// phrase and exclusion filters can inspect the whole document.
type loadedNote struct {
	ResultNote
	content string
}

func (e *Engine) buildNotes(ctx context.Context, hits []RawHit, query *Query) ([]loadedNote, error) {
	notes := make([]loadedNote, 0, len(hits))
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := e.provider.GetDocument(ctx, hit.Path)
		if err != nil || doc == nil {
			if err != nil {
				e.log.Warn("failed to load result document", "path", hit.Path, "error", err)
			}
			notes = append(notes, loadedNote{ResultNote: ResultNote{
				Score:      hit.Score,
				Path:       hit.Path,
				Basename:   docstore.BasenameOf(hit.Path),
				FoundWords: foundWords(hit, query),
			}})
			continue
		}

		words := foundWords(hit, query)
		matches := GetMatches(doc.Content, words, query)
		excerpt := ""
		if len(matches) > 0 {
			excerpt = MakeExcerpt(doc.Content, matches[0].Offset)
		} else {
			excerpt = MakeExcerpt(doc.Content, 0)
		}

		notes = append(notes, loadedNote{
			ResultNote: ResultNote{
				Score:      hit.Score,
				Path:       hit.Path,
				Basename:   doc.Basename,
				Excerpt:    excerpt,
				FoundWords: words,
				Matches:    matches,
			},
			content: doc.Content,
		})
	}
	return notes, nil
}

// foundWords merges the matched index terms, the query's exact terms and
// its tags, dropping one-character words.
func foundWords(hit RawHit, query *Query) []string {
	words := make([]string, 0, len(hit.Terms))
	words = append(words, hit.Terms...)
	words = append(words, query.ExactTerms()...)
	words = append(words, query.Tags()...)

	kept := words[:0]
	for _, w := range words {
		if len(w) >= minWordLength {
			kept = append(kept, w)
		}
	}
	return dedupe(kept)
}

// filterExactPhrases keeps notes whose cleaned content or basename
// contains every quoted phrase of the query. Quoted terms are already
// diacritics-stripped at parse time, so the compared text must be too.
func filterExactPhrases(notes []loadedNote, query *Query, stripDiacritics bool) []loadedNote {
	exact := query.ExactTerms()
	if len(exact) == 0 {
		return notes
	}
	kept := notes[:0]
	for _, note := range notes {
		content := strings.ToLower(StripMarkdown(RemoveFrontmatter(note.content)))
		title := strings.ToLower(note.Basename)
		if stripDiacritics {
			content = docstore.RemoveDiacritics(content)
			title = docstore.RemoveDiacritics(title)
		}
		ok := true
		for _, phrase := range exact {
			if !strings.Contains(content, phrase) && !strings.Contains(title, phrase) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, note)
		}
	}
	return kept
}

// filterExclusions drops notes whose content contains an excluded term.
// Titles are left alone, so a note named after an excluded word survives
// as long as its body avoids it.
func filterExclusions(notes []loadedNote, query *Query, stripDiacritics bool) []loadedNote {
	if len(query.Exclusions) == 0 {
		return notes
	}
	kept := notes[:0]
	for _, note := range notes {
		content := strings.ToLower(note.content)
		if stripDiacritics {
			content = docstore.RemoveDiacritics(content)
		}
		excluded := false
		for _, term := range query.Exclusions {
			if strings.Contains(content, term.Value) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, note)
		}
	}
	return kept
}

func dedupeNotes(notes []loadedNote) []loadedNote {
	seen := make(map[string]struct{}, len(notes))
	kept := notes[:0]
	for _, note := range notes {
		if _, ok := seen[note.Path]; ok {
			continue
		}
		seen[note.Path] = struct{}{}
		kept = append(kept, note)
	}
	return kept
}

// WriteToCache flushes the index snapshot to disk, throttled.
func (e *Engine) WriteToCache() {
	e.writer.Trigger()
}

// Close flushes any pending cache write.
func (e *Engine) Close() {
	e.writer.Stop()
}

func (e *Engine) writeCache() {
	if e.opts.CachePath == "" {
		return
	}
	e.mu.RLock()
	data, err := EncodeIndex(e.index, e.indexedPaths, e.opts.CompressCache)
	e.mu.RUnlock()
	if err != nil {
		e.log.Error("failed to encode index cache", "error", err)
		return
	}
	if err := os.WriteFile(e.opts.CachePath, data, 0o644); err != nil {
		e.log.Error("failed to write index cache", "path", e.opts.CachePath, "error", err)
	}
}

// LoadCache restores the index from the snapshot file. A corrupt or
// mismatched cache is deleted and reported as a miss, never as a fatal
// error.
func (e *Engine) LoadCache() bool {
	if e.opts.CachePath == "" {
		return false
	}
	data, err := os.ReadFile(e.opts.CachePath)
	if err != nil {
		return false
	}
	index, paths, err := DecodeIndex(data, indexOptionsFor(e.opts))
	if err != nil {
		if errors.Is(err, ErrCorruptCache) {
			e.log.Warn("discarding corrupt index cache", "path", e.opts.CachePath, "error", err)
			_ = os.Remove(e.opts.CachePath)
		}
		return false
	}
	e.mu.Lock()
	e.index = index
	e.indexedPaths = paths
	e.mu.Unlock()
	return true
}

func isMarkdown(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".md")
}

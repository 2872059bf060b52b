package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/scambier/omnisearch/extract"
	"github.com/scambier/omnisearch/readers"
)

// Repository resolves paths to index-ready documents, caching extracted
// text and metadata so unchanged files are never reprocessed.
type Repository struct {
	store  *Store
	parser *readers.MarkdownParser
	pool   *extract.Pool
	log    *slog.Logger
}

func NewRepository(store *Store, pool *extract.Pool, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	return &Repository{
		store:  store,
		parser: readers.NewMarkdownParser(),
		pool:   pool,
		log:    log,
	}
}

// GetDocument returns the indexed form of the file at path, reusing the
// cached copy when the file has not changed since it was stored.
func (r *Repository) GetDocument(ctx context.Context, path string) (*IndexedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	mtime := info.ModTime().UnixMilli()

	cached, err := r.store.GetDocument(path)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.Mtime == mtime {
		return cached, nil
	}

	doc, err := r.buildDocument(ctx, path, mtime)
	if err != nil {
		return nil, err
	}
	if err := r.store.PutDocument(doc); err != nil {
		r.log.Warn("failed to cache document", "path", path, "error", err)
	}
	return doc, nil
}

func (r *Repository) buildDocument(ctx context.Context, path string, mtime int64) (*IndexedDocument, error) {
	doc := &IndexedDocument{
		Path:     path,
		Basename: BasenameOf(path),
		Mtime:    mtime,
	}

	if isMarkdownPath(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read markdown document: %w", err)
		}
		doc.Content = string(raw)
		meta, err := r.parser.Parse(doc.Content)
		if err != nil {
			r.log.Warn("failed to parse markdown metadata", "path", path, "error", err)
			return doc, nil
		}
		doc.Tags = meta.Tags
		doc.Aliases = meta.Aliases
		doc.Properties = meta.Properties
		doc.Headings1 = strings.Join(meta.Headings1, " ")
		doc.Headings2 = strings.Join(meta.Headings2, " ")
		doc.Headings3 = strings.Join(meta.Headings3, " ")
		doc.Links = meta.Links
		return doc, nil
	}

	if !r.pool.CanExtract(path) {
		return doc, nil
	}

	text, err := r.pool.Extract(ctx, path)
	if err != nil {
		// The document stays searchable by name even when its body
		// cannot be extracted.
		r.log.Warn("failed to extract document text", "path", path, "error", err)
		return doc, nil
	}
	doc.Content = text
	return doc, nil
}

func isMarkdownPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".md")
}

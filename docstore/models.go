package docstore

import (
	"path/filepath"
	"strings"
)

// DocumentRef identifies a document known to the host store, without its
// content. Mtime is the source's last-modification time in unix
// milliseconds.
type DocumentRef struct {
	Path  string `json:"path"`
	Mtime int64  `json:"mtime"`
}

// IndexedDocument is the canonical extracted representation of one source
// item. It is created whole and replaced whole, never partially updated.
type IndexedDocument struct {
	Path     string `json:"path"`
	Basename string `json:"basename"`
	Content  string `json:"content"`
	Mtime    int64  `json:"mtime"`

	Tags    []string `json:"tags,omitempty"`
	Aliases []string `json:"aliases,omitempty"`

	Headings1 string `json:"headings1,omitempty"`
	Headings2 string `json:"headings2,omitempty"`
	Headings3 string `json:"headings3,omitempty"`

	// Frontmatter key/value pairs, used for custom property boosting.
	Properties map[string][]string `json:"properties,omitempty"`

	// Outgoing link targets, used to create placeholder documents for
	// dangling links.
	Links []string `json:"links,omitempty"`

	// DoesNotExist marks a placeholder document standing in for a link
	// target that does not resolve to a real document. Parent is the path
	// of a document referencing it.
	DoesNotExist bool   `json:"doesNotExist,omitempty"`
	Parent       string `json:"parent,omitempty"`
}

// NewPlaceholder builds a content-less document for an unresolved link
// target, so that dangling references stay searchable.
func NewPlaceholder(target, parent string) *IndexedDocument {
	path := target
	if !strings.HasSuffix(path, ".md") {
		path += ".md"
	}
	return &IndexedDocument{
		Path:         path,
		Basename:     RemoveDiacritics(target),
		DoesNotExist: true,
		Parent:       parent,
	}
}

// BasenameOf strips the directory and extension from a path.
func BasenameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extension returns the lower-cased extension of a path, with the dot.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

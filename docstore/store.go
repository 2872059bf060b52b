package docstore

import (
	"encoding/json"
	"fmt"
	"slices"

	bolt "go.etcd.io/bbolt"
)

var (
	documentBucket = []byte("documents")
	historyBucket  = []byte("history")

	historyKey = []byte("queries")
)

const historySize = 10

// Store is the authoritative record of extracted documents, kept separate
// from the search index so that index rebuilds never re-read or re-extract
// source files. Single-process, single-writer.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{documentBucket, historyBucket} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutDocument(doc *IndexedDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.Path, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentBucket).Put([]byte(doc.Path), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.Path, err)
	}

	return nil
}

// GetDocument returns the cached document for a path, or nil if the path is
// unknown or its record cannot be decoded.
func (s *Store) GetDocument(path string) (*IndexedDocument, error) {
	var doc *IndexedDocument
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(documentBucket).Get([]byte(path))
		if raw == nil {
			return nil
		}
		d := &IndexedDocument{}
		if e := json.Unmarshal(raw, d); e != nil {
			// A corrupted record is the same as a cache miss.
			return nil
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	return doc, nil
}

func (s *Store) DeleteDocument(path string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentBucket).Delete([]byte(path))
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}

	return nil
}

// IsOutdated reports whether a path needs re-extraction, either because it
// was never cached or because its cached mtime differs from the source's.
func (s *Store) IsOutdated(ref DocumentRef) (bool, error) {
	doc, err := s.GetDocument(ref.Path)
	if err != nil {
		return false, err
	}
	return doc == nil || doc.Mtime != ref.Mtime, nil
}

// AddToHistory records a search query, keeping the last distinct queries in
// reverse chronological order.
func (s *Store) AddToHistory(query string) error {
	if query == "" {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)

		var history []string
		if raw := b.Get(historyKey); raw != nil {
			if e := json.Unmarshal(raw, &history); e != nil {
				history = nil
			}
		}

		history = slices.DeleteFunc(history, func(q string) bool { return q == query })
		history = append([]string{query}, history...)
		if len(history) > historySize {
			history = history[:historySize]
		}

		raw, e := json.Marshal(history)
		if e != nil {
			return e
		}
		return b.Put(historyKey, raw)
	})
	if err != nil {
		return fmt.Errorf("failed to record search history: %w", err)
	}

	return nil
}

// History returns recorded queries, most recent first.
func (s *Store) History() ([]string, error) {
	var history []string
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(historyBucket).Get(historyKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &history)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}

	return history, nil
}

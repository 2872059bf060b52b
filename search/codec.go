package search

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// ErrCorruptCache marks a persisted index that cannot be trusted: truncated
// or malformed bytes, or a configuration that no longer matches. Callers
// discard the cache file and rebuild; the error never propagates as fatal.
var ErrCorruptCache = errors.New("corrupt index cache")

const codecVersion = 2

var gzipMagic = []byte{0x1f, 0x8b}

type indexSnapshot struct {
	Version          int                                  `json:"version"`
	Fields           []string                             `json:"fields"`
	IgnoreDiacritics bool                                 `json:"ignoreDiacritics"`
	Postings         map[string]map[string]map[string]int `json:"postings"`
	DocTokens        map[string][]string                  `json:"docTokens"`
	Docs             map[string]docInfo                   `json:"docs"`
	Seq              int64                                `json:"seq"`

	// Path/mtime pairs of everything indexed, for diffing on reload.
	Paths []pathMtime `json:"paths"`
}

type pathMtime struct {
	Path  string `json:"path"`
	Mtime int64  `json:"mtime"`
}

// EncodeIndex serializes an index and its path/mtime map, optionally
// gzip-compressed.
func EncodeIndex(ii *InvertedIndex, pathMtimes map[string]int64, compress bool) ([]byte, error) {
	snap := indexSnapshot{
		Version:          codecVersion,
		Fields:           ii.options.Fields,
		IgnoreDiacritics: ii.options.IgnoreDiacritics,
		Postings:         ii.postings,
		DocTokens:        ii.docTokens,
		Docs:             ii.docs,
		Seq:              ii.seq,
	}
	for path, mtime := range pathMtimes {
		snap.Paths = append(snap.Paths, pathMtime{Path: path, Mtime: mtime})
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress index: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress index: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeIndex restores an index from serialized bytes. Any decompression or
// parse failure, and any version or field-configuration mismatch with the
// given options, yields ErrCorruptCache.
func DecodeIndex(data []byte, options IndexOptions) (*InvertedIndex, map[string]int64, error) {
	if len(options.Fields) == 0 {
		options.Fields = DefaultFields()
	}

	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
	}

	var snap indexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}

	if snap.Version != codecVersion {
		return nil, nil, fmt.Errorf("%w: version %d, want %d", ErrCorruptCache, snap.Version, codecVersion)
	}
	if !slices.Equal(snap.Fields, options.Fields) || snap.IgnoreDiacritics != options.IgnoreDiacritics {
		return nil, nil, fmt.Errorf("%w: field configuration changed", ErrCorruptCache)
	}

	ii := NewInvertedIndex(options)
	if snap.Postings != nil {
		ii.postings = snap.Postings
	}
	if snap.DocTokens != nil {
		ii.docTokens = snap.DocTokens
	}
	if snap.Docs != nil {
		ii.docs = snap.Docs
	}
	ii.seq = snap.Seq

	paths := make(map[string]int64, len(snap.Paths))
	for _, p := range snap.Paths {
		paths[p.Path] = p.Mtime
	}
	return ii, paths, nil
}

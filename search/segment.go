package search

import (
	"fmt"
	"os"

	"github.com/huichen/sego"
)

type segoSegmenter struct {
	seg sego.Segmenter
}

// NewSegoSegmenter loads a sego dictionary and returns a Segmenter cutting
// CJK text into words. The dictionary file must exist; callers treat a load
// failure as "no segmenter available", not as a fatal error.
func NewSegoSegmenter(dictPath string) (Segmenter, error) {
	if _, err := os.Stat(dictPath); err != nil {
		return nil, fmt.Errorf("failed to load segmenter dictionary: %w", err)
	}

	s := &segoSegmenter{}
	s.seg.LoadDictionary(dictPath)
	return s, nil
}

func (s *segoSegmenter) Cut(text string) []string {
	segments := s.seg.Segment([]byte(text))
	return sego.SegmentsToSlice(segments, true)
}

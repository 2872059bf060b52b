package readers

import (
	"fmt"
	"path/filepath"

	"code.sajari.com/docconv/v2"
)

// FileReader extracts plain text from a file on disk.
type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

type UniversalFileReader struct {
}

func (r *UniversalFileReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".docx" || ext == ".odt" || ext == ".pdf" || ext == ".rtf" || ext == ".xml" || ext == ".html"
}

func (r *UniversalFileReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return res.Body, nil
}

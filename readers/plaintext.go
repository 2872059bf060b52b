package readers

import (
	"fmt"
	"os"
	"path/filepath"
)

type PlainTextReader struct{}

func (r *PlainTextReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".txt" || ext == ".md" || ext == ".org" || ext == ".canvas" || ext == ".json"
}

func (r *PlainTextReader) ReadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}

	return string(buf), nil
}

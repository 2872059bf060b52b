package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewPlaceholder(t *testing.T) {
	doc := NewPlaceholder("Projects/Idea", "daily/today.md")

	assert.Equal(t, "Projects/Idea.md", doc.Path)
	assert.True(t, doc.DoesNotExist)
	assert.Equal(t, "daily/today.md", doc.Parent)
	assert.Empty(t, doc.Content)
}

func Test_NewPlaceholder_StripsDiacritics(t *testing.T) {
	doc := NewPlaceholder("Café", "a.md")

	assert.Equal(t, "Cafe", doc.Basename)
}

func Test_BasenameOf(t *testing.T) {
	assert.Equal(t, "pie", BasenameOf("notes/pie.md"))
	assert.Equal(t, "archive.tar", BasenameOf("archive.tar.gz"))
}

func Test_Extension(t *testing.T) {
	assert.Equal(t, ".md", Extension("notes/pie.md"))
	assert.Equal(t, ".pdf", Extension("SCAN.PDF"))
	assert.Equal(t, "", Extension("Makefile"))
}

func Test_RemoveDiacritics(t *testing.T) {
	assert.Equal(t, "creme brulee", RemoveDiacritics("crème brûlée"))
	assert.Equal(t, "plain", RemoveDiacritics("plain"))
}

package docstore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_PutGetDocument(t *testing.T) {
	s := openTestStore(t)
	doc := &IndexedDocument{
		Path:     "notes/pie.md",
		Basename: "pie",
		Content:  "apple pie recipe",
		Mtime:    42,
		Tags:     []string{"#recipe"},
	}

	require.NoError(t, s.PutDocument(doc))

	got, err := s.GetDocument("notes/pie.md")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func Test_GetDocument_Miss(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetDocument("unknown.md")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func Test_DeleteDocument(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutDocument(&IndexedDocument{Path: "a.md"}))

	require.NoError(t, s.DeleteDocument("a.md"))

	got, err := s.GetDocument("a.md")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func Test_IsOutdated(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutDocument(&IndexedDocument{Path: "a.md", Mtime: 10}))

	fresh, err := s.IsOutdated(DocumentRef{Path: "a.md", Mtime: 10})
	require.NoError(t, err)
	assert.False(t, fresh)

	changed, err := s.IsOutdated(DocumentRef{Path: "a.md", Mtime: 11})
	require.NoError(t, err)
	assert.True(t, changed)

	unknown, err := s.IsOutdated(DocumentRef{Path: "b.md", Mtime: 1})
	require.NoError(t, err)
	assert.True(t, unknown)
}

func Test_History(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddToHistory("first"))
	require.NoError(t, s.AddToHistory("second"))

	history, err := s.History()
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, history)
}

func Test_History_DedupesAndReorders(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddToHistory("first"))
	require.NoError(t, s.AddToHistory("second"))
	require.NoError(t, s.AddToHistory("first"))

	history, err := s.History()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, history)
}

func Test_History_Capped(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < historySize+5; i++ {
		require.NoError(t, s.AddToHistory(fmt.Sprintf("query %d", i)))
	}

	history, err := s.History()
	require.NoError(t, err)
	require.Len(t, history, historySize)
	assert.Equal(t, fmt.Sprintf("query %d", historySize+4), history[0])
}

func Test_History_IgnoresEmptyQuery(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddToHistory(""))

	history, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

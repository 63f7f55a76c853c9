package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/store"
)

func setup(t *testing.T) (*Controller, *store.Store) {
	t.Helper()
	s := store.New(nil)
	s.SetProject("/tmp/p")
	s.ReplaceEntities(models.Listing{
		Folders: []models.Folder{
			{ID: "f1", Name: "Book"},
			{ID: "f2", Name: "Part", ParentID: "f1"},
		},
		Documents:  []models.Document{{ID: "d1", Title: "Chapter", FolderID: "f2"}},
		Characters: []models.Character{{ID: "c1", Name: "Hero"}},
	})
	return New(s), s
}

func TestSelectionExclusivity(t *testing.T) {
	c, s := setup(t)

	require.NoError(t, c.SelectDocument("d1"))
	assert.Empty(t, s.Snapshot().Selection.CharacterID)
	assert.Equal(t, "d1", s.Snapshot().Selection.DocumentID)

	require.NoError(t, c.SelectCharacter("c1"))
	assert.Empty(t, s.Snapshot().Selection.DocumentID)
	assert.Equal(t, "c1", s.Snapshot().Selection.CharacterID)

	c.DeselectAll()
	assert.True(t, s.Snapshot().Selection.IsEmpty())
}

func TestSelectFolderToggles(t *testing.T) {
	c, s := setup(t)

	require.NoError(t, c.Select(models.KindFolder, "f1"))
	assert.True(t, c.IsExpanded("f1"))
	assert.True(t, s.Snapshot().Selection.IsEmpty())

	require.NoError(t, c.Select(models.KindFolder, "f1"))
	assert.False(t, c.IsExpanded("f1"))
}

func TestExpansionDefaultsAndReset(t *testing.T) {
	c, _ := setup(t)

	assert.False(t, c.IsExpanded("f1"))
	assert.Len(t, c.VisibleRows(), 2)

	c.Expand("f1")
	c.Expand(models.RootID)
	assert.True(t, c.IsExpanded("f1"))
	assert.False(t, c.IsExpanded(models.RootID))
	assert.Len(t, c.VisibleRows(), 3)

	c.ExpandAll()
	assert.Len(t, c.VisibleRows(), 4)

	c.Collapse("f2")
	assert.Len(t, c.VisibleRows(), 3)

	c.Reset()
	assert.False(t, c.IsExpanded("f1"))
}

func TestReveal(t *testing.T) {
	c, _ := setup(t)

	c.Reveal(models.KindDocument, "d1")
	assert.True(t, c.IsExpanded("f1"))
	assert.True(t, c.IsExpanded("f2"))

	rows := c.VisibleRows()
	require.Len(t, rows, 4)
	assert.Equal(t, "Chapter", rows[2].Node.Name())
}

package persistence

import (
	"archive/zip"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

func newTestProject(t *testing.T) (*Engine, string) {
	t.Helper()
	e := New(Options{})
	t.Cleanup(func() { _ = e.Close() })

	project, err := e.CreateProject(context.Background(), t.TempDir(), "novel")
	require.NoError(t, err)
	return e, project
}

func TestCreateProjectLayout(t *testing.T) {
	e, project := newTestProject(t)

	for _, sub := range []string{MarkdownDir, BackupsDir, AssetsDir, DatabaseFile} {
		_, err := os.Stat(filepath.Join(project, sub))
		assert.NoError(t, err, sub)
	}

	_, err := e.CreateProject(context.Background(), filepath.Dir(project), "novel")
	assert.ErrorIs(t, err, ErrProjectExists)

	_, err = e.CreateProject(context.Background(), t.TempDir(), "../escape")
	assert.Error(t, err)
}

func TestOpenRejectsNonProject(t *testing.T) {
	e := New(Options{})
	defer e.Close()

	_, err := e.Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNotAProject)
}

func TestMigrateProjectIsUpToDateAfterCreate(t *testing.T) {
	e, project := newTestProject(t)

	report, err := e.MigrateProject(context.Background(), project, true)
	require.NoError(t, err)
	assert.True(t, report.UpToDate())
	assert.Equal(t, 2, report.FromVersion)
}

func TestCreateAndListRoundTrip(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	folderID, err := e.CreateFolder(ctx, project, "Act I", models.RootID)
	require.NoError(t, err)
	docID, err := e.CreateDocument(ctx, project, "Scene 1", folderID)
	require.NoError(t, err)
	notesID, err := e.CreateDocument(ctx, project, "Notes", "")
	require.NoError(t, err)
	charID, err := e.CreateCharacter(ctx, project, "Hero", folderID)
	require.NoError(t, err)

	listing, err := e.ListTree(ctx, project)
	require.NoError(t, err)

	require.Len(t, listing.Folders, 1)
	assert.Equal(t, "Act I", listing.Folders[0].Name)
	assert.Equal(t, models.RootID, listing.Folders[0].ParentID)

	require.Len(t, listing.Documents, 2)
	byID := map[string]models.Document{}
	for _, d := range listing.Documents {
		byID[d.ID] = d
	}
	assert.Equal(t, folderID, byID[docID].FolderID)
	assert.Equal(t, models.RootID, byID[notesID].FolderID)

	require.Len(t, listing.Characters, 1)
	assert.Equal(t, charID, listing.Characters[0].ID)
	assert.Equal(t, folderID, listing.Characters[0].FolderID)
}

func TestCreateUnderMissingFolder(t *testing.T) {
	e, project := newTestProject(t)

	_, err := e.CreateDocument(context.Background(), project, "Lost", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, models.KindFolder, nf.Kind)
}

func TestDocumentBodyAndMirror(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	docID, err := e.CreateDocument(ctx, project, "Chapter: One", "")
	require.NoError(t, err)

	body, err := e.LoadDocumentBody(ctx, project, docID)
	require.NoError(t, err)
	assert.Equal(t, "# New Document", body)

	require.NoError(t, e.SaveDocumentBody(ctx, project, docID, "# Chapter One\n\nIt begins."))

	body, err = e.LoadDocumentBody(ctx, project, docID)
	require.NoError(t, err)
	assert.Equal(t, "# Chapter One\n\nIt begins.", body)

	mirror, err := os.ReadFile(filepath.Join(project, MarkdownDir, docID+".md"))
	require.NoError(t, err)
	assert.Contains(t, string(mirror), "id: "+docID)
	assert.Contains(t, string(mirror), `title: "Chapter: One"`)
	assert.True(t, strings.HasSuffix(string(mirror), "# Chapter One\n\nIt begins."))

	_, err = e.LoadDocumentBody(ctx, project, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.SaveDocumentBody(ctx, project, "missing", "x"), ErrNotFound)
}

func TestCharacterProfileRoundTrip(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	charID, err := e.CreateCharacter(ctx, project, "Mara", "")
	require.NoError(t, err)

	profile, err := e.LoadCharacterProfile(ctx, project, charID)
	require.NoError(t, err)
	assert.Equal(t, models.Profile{Attributes: []models.Attribute{}}, *profile)

	want := models.Profile{
		Age:         "34",
		Nationality: "Irish",
		Height:      "5'9\"",
		Attributes: []models.Attribute{
			{Key: "eyes", Value: "green"},
			{Key: "fear", Value: "deep water"},
		},
	}
	require.NoError(t, e.SaveCharacterProfile(ctx, project, charID, want))

	got, err := e.LoadCharacterProfile(ctx, project, charID)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	assert.ErrorIs(t, e.SaveCharacterProfile(ctx, project, "missing", want), ErrNotFound)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestImportCharacterImage(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	charID, err := e.CreateCharacter(ctx, project, "Mara", "")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "portrait.png")
	writePNG(t, src, 400, 300)

	dest, err := e.ImportCharacterImage(ctx, project, charID, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, AssetsDir, "characters", charID, "portrait.png"), dest)
	assert.FileExists(t, dest)
	assert.FileExists(t, filepath.Join(filepath.Dir(dest), ThumbnailFile))

	profile, err := e.LoadCharacterProfile(ctx, project, charID)
	require.NoError(t, err)
	assert.Equal(t, dest, profile.ImagePath)

	// Importing again overwrites.
	_, err = e.ImportCharacterImage(ctx, project, charID, src)
	assert.NoError(t, err)

	_, err = e.ImportCharacterImage(ctx, project, charID, "")
	assert.Error(t, err)
	_, err = e.ImportCharacterImage(ctx, project, charID, filepath.Join(t.TempDir(), "none.png"))
	assert.Error(t, err)
	_, err = e.ImportCharacterImage(ctx, project, "missing", src)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportNonImageSkipsThumbnail(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	charID, err := e.CreateCharacter(ctx, project, "Mara", "")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	dest, err := e.ImportCharacterImage(ctx, project, charID, src)
	require.NoError(t, err)
	assert.FileExists(t, dest)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), ThumbnailFile))
}

func TestDeleteFolderRecursive(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	top, err := e.CreateFolder(ctx, project, "Book", "")
	require.NoError(t, err)
	child, err := e.CreateFolder(ctx, project, "Part 1", top)
	require.NoError(t, err)
	grandchild, err := e.CreateFolder(ctx, project, "Chapter 1", child)
	require.NoError(t, err)
	other, err := e.CreateFolder(ctx, project, "Research", "")
	require.NoError(t, err)

	deepDoc, err := e.CreateDocument(ctx, project, "Scene", grandchild)
	require.NoError(t, err)
	charID, err := e.CreateCharacter(ctx, project, "Villain", child)
	require.NoError(t, err)
	keptDoc, err := e.CreateDocument(ctx, project, "Sources", other)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "v.png")
	writePNG(t, src, 10, 10)
	_, err = e.ImportCharacterImage(ctx, project, charID, src)
	require.NoError(t, err)

	require.NoError(t, e.DeleteFolderRecursive(ctx, project, top))

	listing, err := e.ListTree(ctx, project)
	require.NoError(t, err)

	var folderIDs []string
	for _, f := range listing.Folders {
		folderIDs = append(folderIDs, f.ID)
	}
	assert.Equal(t, []string{other}, folderIDs)
	require.Len(t, listing.Documents, 1)
	assert.Equal(t, keptDoc, listing.Documents[0].ID)
	assert.Empty(t, listing.Characters)

	assert.NoFileExists(t, filepath.Join(project, MarkdownDir, deepDoc+".md"))
	assert.FileExists(t, filepath.Join(project, MarkdownDir, keptDoc+".md"))
	assert.NoDirExists(t, filepath.Join(project, AssetsDir, "characters", charID))

	assert.ErrorIs(t, e.DeleteFolderRecursive(ctx, project, top), ErrNotFound)
	assert.ErrorIs(t, e.DeleteFolderRecursive(ctx, project, models.RootID), ErrNotFound)
}

func TestDeleteDocumentAndCharacter(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	docID, err := e.CreateDocument(ctx, project, "Doomed", "")
	require.NoError(t, err)
	require.NoError(t, e.SnapshotDocument(ctx, project, docID, "before"))
	charID, err := e.CreateCharacter(ctx, project, "Extra", "")
	require.NoError(t, err)

	require.NoError(t, e.DeleteDocument(ctx, project, docID))
	require.NoError(t, e.DeleteCharacter(ctx, project, charID))

	listing, err := e.ListTree(ctx, project)
	require.NoError(t, err)
	assert.Empty(t, listing.Documents)
	assert.Empty(t, listing.Characters)
	assert.NoFileExists(t, filepath.Join(project, MarkdownDir, docID+".md"))

	snapshots, err := e.ListSnapshots(ctx, project, docID)
	require.NoError(t, err)
	assert.Empty(t, snapshots)

	assert.ErrorIs(t, e.DeleteDocument(ctx, project, docID), ErrNotFound)
	assert.ErrorIs(t, e.DeleteCharacter(ctx, project, charID), ErrNotFound)
}

func TestSearch(t *testing.T) {
	e, project := newTestProject(t)
	ctx := context.Background()

	storm, err := e.CreateDocument(ctx, project, "Storm", "")
	require.NoError(t, err)
	require.NoError(t, e.SaveDocumentBody(ctx, project, storm, "The lighthouse keeper watched the storm roll in from the west."))

	calm, err := e.CreateDocument(ctx, project, "Calm", "")
	require.NoError(t, err)
	require.NoError(t, e.SaveDocumentBody(ctx, project, calm, "A quiet morning in the harbour."))

	hits, err := e.Search(ctx, project, "lighthouse")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, storm, hits[0].DocumentID)
	assert.Equal(t, "Storm", hits[0].Title)
	assert.Contains(t, hits[0].Snippet, "<b>")
	assert.Contains(t, strings.ToLower(hits[0].Snippet), "lighthouse")

	// Edits are reflected in later searches.
	require.NoError(t, e.SaveDocumentBody(ctx, project, storm, "Nothing to see."))
	hits, err = e.Search(ctx, project, "lighthouse")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = e.Search(ctx, project, "   ")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Query syntax characters are treated as text.
	_, err = e.Search(ctx, project, `"unbalanced AND (`)
	assert.NoError(t, err)
}

func TestSnapshots(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := New(Options{Now: func() time.Time { return now }})
	defer e.Close()
	ctx := context.Background()

	project, err := e.CreateProject(ctx, t.TempDir(), "novel")
	require.NoError(t, err)

	docID, err := e.CreateDocument(ctx, project, "Draft", "")
	require.NoError(t, err)
	require.NoError(t, e.SaveDocumentBody(ctx, project, docID, "version one"))
	require.NoError(t, e.SnapshotDocument(ctx, project, docID, "first"))

	now = now.Add(time.Hour)
	require.NoError(t, e.SaveDocumentBody(ctx, project, docID, "version two"))
	require.NoError(t, e.SnapshotDocument(ctx, project, docID, "second"))

	snapshots, err := e.ListSnapshots(ctx, project, docID)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "second", snapshots[0].Note)
	assert.Equal(t, "version two", snapshots[0].Markdown)
	assert.Equal(t, "first", snapshots[1].Note)
	assert.Equal(t, "version one", snapshots[1].Markdown)

	assert.ErrorIs(t, e.SnapshotDocument(ctx, project, "missing", "x"), ErrNotFound)
}

func TestBackupProject(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.Local)
	e := New(Options{Now: func() time.Time { return now }})
	defer e.Close()
	ctx := context.Background()

	project, err := e.CreateProject(ctx, t.TempDir(), "novel")
	require.NoError(t, err)
	docID, err := e.CreateDocument(ctx, project, "Draft", "")
	require.NoError(t, err)

	archive, err := e.BackupProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, BackupsDir, "backup_20240501_123045.zip"), archive)

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"md/" + docID + ".md", "project.db"}, names)

	// A second backup in the same second does not overwrite the first.
	second, err := e.BackupProject(ctx, project)
	require.NoError(t, err)
	assert.NotEqual(t, archive, second)
	assert.FileExists(t, archive)
}

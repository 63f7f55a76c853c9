package browser

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-quill/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
	"github.com/mattsolo1/grove-quill/pkg/render"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

func newTestModel(t *testing.T) (Model, *service.Service) {
	t.Helper()
	ctx := context.Background()

	svc, err := service.New(&service.Config{
		DataDir:          filepath.Join(t.TempDir(), "data"),
		AutosaveInterval: time.Hour,
		FlushOnSwitch:    true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	_, err = svc.CreateProject(ctx, t.TempDir(), "novel")
	require.NoError(t, err)

	m := New(ctx, svc, render.NewMarkdown("notty"))
	t.Cleanup(m.Close)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), svc
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and returns the updated model and command.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// deliver hands over the latest store state the way the subscription would.
func deliver(t *testing.T, m Model, svc *service.Service) Model {
	t.Helper()
	m, _ = press(t, m, storeChangedMsg{state: svc.Store.Snapshot()})
	return m
}

func TestEmptyProjectView(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Empty(t, m.rows)
	assert.Contains(t, m.View(), "Empty project.")
}

func TestCreateFolderThroughPrompt(t *testing.T) {
	m, svc := newTestModel(t)

	m, _ = press(t, m, runes("N"))
	require.Equal(t, promptMode, m.mode)
	assert.Equal(t, models.KindFolder, m.creating)

	m, _ = press(t, m, runes("Part One"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, browseMode, m.mode)

	done, ok := cmd().(opDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	m = deliver(t, m, svc)
	m, _ = press(t, m, done)

	require.Len(t, m.rows, 1)
	assert.Equal(t, "Part One", m.rows[0].Node.Name())
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.status, "Part One")
}

func TestPromptEscapeCreatesNothing(t *testing.T) {
	m, svc := newTestModel(t)

	m, _ = press(t, m, runes("n"))
	m, _ = press(t, m, runes("Draft"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.Equal(t, browseMode, m.mode)
	assert.Empty(t, svc.Store.Snapshot().Documents)
}

func TestToggleFolderShowsChildren(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	folderID, err := svc.Mutations.WithPrompter(mutation.StaticName("Part")).CreateFolder(ctx, models.RootID)
	require.NoError(t, err)
	svc.Nav.Collapse(folderID)
	_, err = svc.Engine.CreateDocument(ctx, svc.ProjectPath(), "Scene", folderID)
	require.NoError(t, err)
	require.NoError(t, svc.Mutations.Refresh(ctx))

	m = deliver(t, m, svc)
	require.Len(t, m.rows, 1)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.rows, 2)
	assert.Equal(t, "Scene", m.rows[1].Node.Name())

	m, _ = press(t, m, runes(" "))
	assert.Len(t, m.rows, 1)
}

func TestDeleteFolderAsksForConfirmation(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	folderID, err := svc.Mutations.WithPrompter(mutation.StaticName("Part")).CreateFolder(ctx, models.RootID)
	require.NoError(t, err)
	_, err = svc.Mutations.WithPrompter(mutation.StaticName("Scene")).CreateDocument(ctx, folderID)
	require.NoError(t, err)

	m = deliver(t, m, svc)
	require.True(t, m.moveTo(models.KindFolder, folderID))

	m, _ = press(t, m, runes("d"))
	require.Equal(t, confirmMode, m.mode)
	require.NotNil(t, m.pending)
	assert.Equal(t, 1, m.pending.Counts.Documents)
	assert.Contains(t, m.View(), "Delete folder 'Part'?")

	m, cmd := press(t, m, runes("y"))
	require.NotNil(t, cmd)
	confirmed := cmd()
	require.IsType(t, confirm.ConfirmedMsg{}, confirmed)

	m, cmd = press(t, m, confirmed)
	require.NotNil(t, cmd)
	done := cmd().(opDoneMsg)
	require.NoError(t, done.err)

	m = deliver(t, m, svc)
	assert.Empty(t, m.rows)
	assert.Empty(t, svc.Store.Snapshot().Documents)
	assert.True(t, svc.Store.Snapshot().Selection.IsEmpty())
}

func TestCancelFolderDelete(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	_, err := svc.Mutations.WithPrompter(mutation.StaticName("Part")).CreateFolder(ctx, models.RootID)
	require.NoError(t, err)
	m = deliver(t, m, svc)

	m, _ = press(t, m, runes("d"))
	m, cmd := press(t, m, runes("n"))
	m, _ = press(t, m, cmd())

	assert.Equal(t, browseMode, m.mode)
	assert.Nil(t, m.pending)
	assert.Len(t, svc.Store.Snapshot().Folders, 1)
}

func TestEditDocumentFlushesOnLeave(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	docID, err := svc.Mutations.WithPrompter(mutation.StaticName("Scene")).CreateDocument(ctx, models.RootID)
	require.NoError(t, err)
	_, err = svc.Autosave.Sync(ctx)
	require.NoError(t, err)
	m = deliver(t, m, svc)

	m, _ = press(t, m, runes("e"))
	require.Equal(t, editMode, m.mode)

	m, _ = press(t, m, runes("!"))
	b, ok := svc.Store.Snapshot().ActiveDocumentBuffer()
	require.True(t, ok)
	assert.True(t, b.Dirty)
	assert.Contains(t, b.Markdown, "!")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, browseMode, m.mode)
	require.NotNil(t, cmd)
	done := cmd().(opDoneMsg)
	require.NoError(t, done.err)

	stored, err := svc.Engine.LoadDocumentBody(ctx, svc.ProjectPath(), docID)
	require.NoError(t, err)
	assert.Contains(t, stored, "!")
}

func TestEditWithoutDocument(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(t, m, runes("e"))
	assert.Equal(t, browseMode, m.mode)
	assert.Equal(t, "Open a document first", m.status)
}

func TestTildePath(t *testing.T) {
	home := filepath.FromSlash("/home/bob")
	tests := []struct {
		path string
		want string
	}{
		{"/home/bob", "~"},
		{"/home/bob/novel", "~/novel"},
		{"/home/bobby/novel", "/home/bobby/novel"},
		{"/srv/novel", "/srv/novel"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), tildePath(filepath.FromSlash(tt.path), home))
		})
	}
}

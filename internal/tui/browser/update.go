package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-quill/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.editor.SetWidth(m.previewWidth())
		m.editor.SetHeight(m.treeHeight())
		m.ensureCursorVisible()
		return m, nil

	case storeChangedMsg:
		m.state = msg.state
		m.refreshRows()
		if m.mode == editMode {
			if b, ok := m.state.ActiveDocumentBuffer(); !ok || b.DocumentID != m.editingID {
				m.stopEditing()
			}
		}
		return m, waitForChange(m.changes)

	case opDoneMsg:
		m.setStatus(msg.status, msg.err)
		if msg.err == nil && msg.id != "" {
			m.moveTo(msg.kind, msg.id)
		}
		return m, nil

	case confirm.ConfirmedMsg:
		m.mode = browseMode
		pending := m.pending
		m.pending = nil
		return m, m.confirmDelete(pending)

	case confirm.CancelledMsg:
		m.mode = browseMode
		m.service.Mutations.CancelDelete(m.pending)
		m.pending = nil
		m.setStatus("Delete cancelled", nil)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case confirmMode:
			var cmd tea.Cmd
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		case promptMode:
			return m.updatePrompt(msg)
		case editMode:
			return m.updateEditor(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}

	case key.Matches(msg, m.keys.GoToTop):
		m.cursor = 0
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.GoToBottom):
		m.cursor = len(m.rows) - 1
		m.clampCursor()

	case key.Matches(msg, m.keys.ExpandAll):
		m.service.Nav.ExpandAll()
		m.refreshRows()

	case key.Matches(msg, m.keys.CollapseAll):
		m.service.Nav.CollapseAll()
		m.refreshRows()

	case key.Matches(msg, m.keys.Toggle):
		if n := m.current(); n != nil && n.IsFolder() {
			m.service.Nav.Toggle(n.ID())
			m.refreshRows()
		}

	case key.Matches(msg, m.keys.Open):
		n := m.current()
		if n == nil {
			break
		}
		if n.IsFolder() {
			m.service.Nav.Toggle(n.ID())
			m.refreshRows()
			break
		}
		// Selecting publishes a change; autosave loads the buffer.
		if err := m.service.Nav.Select(n.Kind, n.ID()); err != nil {
			m.setStatus("", err)
		}

	case key.Matches(msg, m.keys.Deselect):
		m.service.Nav.DeselectAll()

	case key.Matches(msg, m.keys.Edit):
		return m.startEditing()

	case key.Matches(msg, m.keys.Save):
		return m, m.flush()

	case key.Matches(msg, m.keys.NewFolder):
		return m.startPrompt(models.KindFolder)
	case key.Matches(msg, m.keys.NewDoc):
		return m.startPrompt(models.KindDocument)
	case key.Matches(msg, m.keys.NewChar):
		return m.startPrompt(models.KindCharacter)

	case key.Matches(msg, m.keys.Delete):
		return m.startDelete()
	}

	return m, nil
}

func (m Model) startPrompt(kind models.Kind) (tea.Model, tea.Cmd) {
	m.mode = promptMode
	m.creating = kind
	m.createParent = m.parentForCreate()
	m.input.Reset()
	m.input.Placeholder = fmt.Sprintf("%s name", kind)
	m.input.Prompt = fmt.Sprintf("New %s: ", kind)
	return m, m.input.Focus()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = browseMode
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = browseMode
		m.input.Blur()
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			return m, nil
		}
		return m, m.create(m.creating, m.createParent, name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) create(kind models.Kind, parent, name string) tea.Cmd {
	orchestrator := m.service.Mutations.WithPrompter(mutation.StaticName(name))
	ctx := m.ctx
	return func() tea.Msg {
		var id string
		var err error
		switch kind {
		case models.KindFolder:
			id, err = orchestrator.CreateFolder(ctx, parent)
		case models.KindDocument:
			id, err = orchestrator.CreateDocument(ctx, parent)
		case models.KindCharacter:
			id, err = orchestrator.CreateCharacter(ctx, parent)
		}
		return opDoneMsg{status: fmt.Sprintf("Created %s '%s'", kind, name), err: err, kind: kind, id: id}
	}
}

func (m Model) startDelete() (tea.Model, tea.Cmd) {
	n := m.current()
	if n == nil {
		return m, nil
	}

	switch n.Kind {
	case models.KindFolder:
		pending, err := m.service.Mutations.RequestDeleteFolder(n.ID())
		if err != nil {
			m.setStatus("", err)
			return m, nil
		}
		m.pending = pending
		m.mode = confirmMode
		m.confirm.Activate(
			fmt.Sprintf("Delete folder '%s'?", pending.Name),
			deleteSummary(pending),
		)
		return m, nil

	case models.KindDocument:
		id, name := n.ID(), n.Name()
		ctx := m.ctx
		mutations := m.service.Mutations
		return m, func() tea.Msg {
			return opDoneMsg{status: fmt.Sprintf("Deleted '%s'", name), err: mutations.DeleteDocument(ctx, id)}
		}

	case models.KindCharacter:
		id, name := n.ID(), n.Name()
		ctx := m.ctx
		mutations := m.service.Mutations
		return m, func() tea.Msg {
			return opDoneMsg{status: fmt.Sprintf("Deleted '%s'", name), err: mutations.DeleteCharacter(ctx, id)}
		}
	}
	return m, nil
}

func deleteSummary(p *mutation.PendingDelete) string {
	if p.Counts.Total() == 0 {
		return "The folder is empty."
	}
	return fmt.Sprintf("This also deletes %d folders, %d documents and %d characters.\nThis cannot be undone.",
		p.Counts.Folders, p.Counts.Documents, p.Counts.Characters)
}

func (m Model) confirmDelete(p *mutation.PendingDelete) tea.Cmd {
	ctx := m.ctx
	mutations := m.service.Mutations
	return func() tea.Msg {
		return opDoneMsg{status: fmt.Sprintf("Deleted folder '%s'", p.Name), err: mutations.ConfirmDelete(ctx, p)}
	}
}

func (m Model) startEditing() (tea.Model, tea.Cmd) {
	b, ok := m.state.ActiveDocumentBuffer()
	if !ok {
		m.setStatus("Open a document first", nil)
		return m, nil
	}
	m.mode = editMode
	m.editingID = b.DocumentID
	m.editorValue = b.Markdown
	m.editor.SetWidth(m.previewWidth())
	m.editor.SetHeight(m.treeHeight())
	m.editor.SetValue(b.Markdown)
	return m, m.editor.Focus()
}

func (m *Model) stopEditing() {
	m.mode = browseMode
	m.editor.Blur()
	m.editingID = ""
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.stopEditing()
		return m, m.flush()
	case key.Matches(msg, m.keys.Save):
		return m, m.flush()
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)

	if value := m.editor.Value(); value != m.editorValue {
		if err := m.service.Store.EditDocument(m.editingID, value); err != nil {
			m.stopEditing()
			m.setStatus("", err)
			return m, nil
		}
		m.editorValue = value
	}
	return m, cmd
}

// flush writes the active buffer now instead of waiting for the next tick.
func (m Model) flush() tea.Cmd {
	ctx := m.ctx
	autosave := m.service.Autosave
	return func() tea.Msg {
		if err := autosave.Blur(ctx); err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: "Saved"}
	}
}

func (m *Model) setStatus(status string, err error) {
	m.failure = err != nil
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = status
}

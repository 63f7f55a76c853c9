// Package browser implements the interactive project browser: a folder tree
// with a live preview and an inline markdown editor.
package browser

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-quill/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/mutation"
	"github.com/mattsolo1/grove-quill/pkg/render"
	"github.com/mattsolo1/grove-quill/pkg/service"
	"github.com/mattsolo1/grove-quill/pkg/store"
	"github.com/mattsolo1/grove-quill/pkg/tree"
)

type mode int

const (
	browseMode mode = iota
	promptMode
	editMode
	confirmMode
)

// storeChangedMsg carries the state published by the store.
type storeChangedMsg struct {
	state *store.State
}

// opDoneMsg reports the outcome of an engine-backed action.
type opDoneMsg struct {
	status string
	err    error

	// Set by creates so the cursor can follow the new entity.
	kind models.Kind
	id   string
}

// Model is the main model for the project browser TUI
type Model struct {
	service  *service.Service
	ctx      context.Context
	markdown *render.Markdown

	state        *store.State
	rows         []tree.Row
	cursor       int
	scrollOffset int
	width        int
	height       int

	keys    KeyMap
	help    help.Model
	mode    mode
	status  string
	failure bool

	// Creation prompt
	input        textinput.Model
	creating     models.Kind
	createParent string

	// Inline editor for the active document
	editor      textarea.Model
	editingID   string
	editorValue string

	// Folder delete confirmation
	confirm confirm.Model
	pending *mutation.PendingDelete

	changes     <-chan store.Change
	unsubscribe func()
}

// New creates a browser over the service's open project. Call Close when the
// program exits.
func New(ctx context.Context, s *service.Service, markdown *render.Markdown) Model {
	input := textinput.New()
	input.CharLimit = 200
	input.Width = 40

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.Placeholder = "Start writing..."

	changes, unsubscribe := s.Store.Subscribe(store.SliceAll)

	m := Model{
		service:     s,
		ctx:         ctx,
		markdown:    markdown,
		state:       s.Store.Snapshot(),
		keys:        keys,
		help:        help.New(),
		input:       input,
		editor:      editor,
		confirm:     confirm.New(),
		changes:     changes,
		unsubscribe: unsubscribe,
		width:       80,
		height:      24,
	}
	m.refreshRows()
	return m
}

// Close stops listening for store changes.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

// waitForChange blocks until the store publishes a new state.
func waitForChange(changes <-chan store.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-changes
		if !ok {
			return nil
		}
		return storeChangedMsg{state: c.State}
	}
}

// refreshRows recomputes the visible rows, keeping the cursor on the same
// entity when it is still visible.
func (m *Model) refreshRows() {
	var kind models.Kind
	var id string
	if n := m.current(); n != nil {
		kind, id = n.Kind, n.ID()
	}

	m.rows = m.service.Nav.VisibleRows()
	if id != "" {
		m.moveTo(kind, id)
	}
	m.clampCursor()
}

func (m *Model) moveTo(kind models.Kind, id string) bool {
	for i, r := range m.rows {
		if r.Node.Kind == kind && r.Node.ID() == id {
			m.cursor = i
			m.ensureCursorVisible()
			return true
		}
	}
	return false
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	h := m.treeHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	} else if m.cursor >= m.scrollOffset+h {
		m.scrollOffset = m.cursor - h + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// current is the node under the cursor, or nil for an empty tree.
func (m Model) current() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].Node
}

// parentForCreate is the folder that new entities go into: the folder under
// the cursor, or the folder containing the entry under the cursor.
func (m Model) parentForCreate() string {
	n := m.current()
	if n == nil {
		return models.RootID
	}
	switch n.Kind {
	case models.KindFolder:
		return n.Folder.ID
	case models.KindDocument:
		return parentOrRoot(n.Document.FolderID)
	case models.KindCharacter:
		return parentOrRoot(n.Character.FolderID)
	}
	return models.RootID
}

func parentOrRoot(id string) string {
	if models.IsRoot(id) {
		return models.RootID
	}
	return id
}

func (m Model) treeWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	return w
}

func (m Model) previewWidth() int {
	w := m.width - m.treeWidth() - 4
	if w < 20 {
		w = 20
	}
	return w
}

// treeHeight is the number of tree rows that fit between header and footer.
func (m Model) treeHeight() int {
	h := m.height - 7
	if h < 3 {
		h = 3
	}
	return h
}

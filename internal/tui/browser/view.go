package browser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-quill/pkg/models"
	"github.com/mattsolo1/grove-quill/pkg/store"
)

func (m Model) View() string {
	if !m.state.HasProject() {
		return "No project open."
	}

	if m.help.ShowAll {
		return "\n" + m.help.View(m.keys)
	}

	header := headerStyle.Render(filepath.Base(m.state.ProjectPath)) + " " +
		mutedStyle.Render(shortenPath(m.state.ProjectPath))

	var body string
	if m.mode == confirmMode {
		body = m.confirm.View()
	} else {
		left := paneStyle.Width(m.treeWidth()).Height(m.treeHeight()).Render(m.renderTree())
		right := paneStyle.Width(m.previewWidth()).Height(m.treeHeight()).Render(m.renderPreview())
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	footer := m.renderStatus()
	if m.mode == promptMode {
		footer = m.input.View()
	}

	return "\n" + lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		footer,
		m.help.View(m.keys),
	)
}

func (m Model) renderTree() string {
	if len(m.rows) == 0 {
		return mutedStyle.Render("Empty project.\nPress n to create a document.")
	}

	activeKind, activeID := m.state.Selection.Active()
	start := m.scrollOffset
	end := start + m.treeHeight()
	if end > len(m.rows) {
		end = len(m.rows)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		row := m.rows[i]
		n := row.Node

		var label string
		switch n.Kind {
		case models.KindFolder:
			indicator := "▸ "
			if m.service.Nav.IsExpanded(n.ID()) {
				indicator = "▾ "
			}
			label = folderStyle.Render(indicator + n.Name())
		case models.KindCharacter:
			label = charStyle.Render("@ " + n.Name())
		default:
			label = "▢ " + n.Name()
		}
		if n.Kind == activeKind && n.ID() == activeID {
			label = selectedStyle.Render(label)
		}

		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("▶ ")
		}
		b.WriteString(cursor + mutedStyle.Render(row.Prefix) + label)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderPreview() string {
	if m.mode == editMode {
		return m.editor.View()
	}
	if b, ok := m.state.ActiveDocumentBuffer(); ok {
		return m.markdown.Render(b.Markdown, m.previewWidth())
	}
	if b, ok := m.state.ActiveCharacterBuffer(); ok {
		c, _ := m.state.Character(b.CharacterID)
		return renderProfile(c.Name, b)
	}
	return mutedStyle.Render("Select a document or character to preview it.")
}

func renderProfile(name string, b *store.CharacterBuffer) string {
	var s strings.Builder
	s.WriteString(charStyle.Bold(true).Render(name) + "\n\n")

	field := func(label, value string) {
		if value == "" {
			value = mutedStyle.Render("-")
		}
		fmt.Fprintf(&s, "%s %s\n", mutedStyle.Render(label+":"), value)
	}
	p := b.Profile
	field("Age", p.Age)
	field("Nationality", p.Nationality)
	field("Sexuality", p.Sexuality)
	field("Height", p.Height)
	if p.ImagePath != "" {
		field("Image", shortenPath(p.ImagePath))
	}
	if len(p.Attributes) > 0 {
		s.WriteString("\n")
		for _, a := range p.Attributes {
			field(a.Key, a.Value)
		}
	}
	return s.String()
}

func (m Model) renderStatus() string {
	if m.failure {
		return errorStyle.Render("✗ " + m.status)
	}

	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if dirty(m.state) {
		parts = append(parts, "● unsaved")
	} else if !m.state.LastSaved.IsZero() {
		parts = append(parts, "saved "+formatRelativeTime(m.state.LastSaved))
	}
	return mutedStyle.Render(strings.Join(parts, " · "))
}

func dirty(st *store.State) bool {
	if b, ok := st.ActiveDocumentBuffer(); ok && b.Dirty {
		return true
	}
	if b, ok := st.ActiveCharacterBuffer(); ok && b.Dirty {
		return true
	}
	return false
}

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	}
	if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return t.Format("2006-01-02 15:04")
}

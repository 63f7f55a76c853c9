// Package render turns document markdown and search snippets into styled
// terminal text.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const minWidth = 20

// Markdown renders markdown with glamour. Renderers are cached per width;
// a fixed style avoids the terminal background query of auto styling.
type Markdown struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdown creates a renderer using a glamour standard style name
// ("dark", "light", "notty", ...). Empty means "dark".
func NewMarkdown(style string) *Markdown {
	style = strings.ToLower(strings.TrimSpace(style))
	if style == "" {
		style = "dark"
	}
	return &Markdown{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render renders md wrapped at width. On failure the input is returned
// unchanged.
func (m *Markdown) Render(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < minWidth {
		width = minWidth
	}

	r, err := m.renderer(width)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (m *Markdown) renderer(width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	m.renderers[width] = r
	return r, nil
}

var highlight = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))

// Snippet replaces the <b>…</b> markers of a search snippet with a
// highlight style and flattens newlines.
func Snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")

	var sb strings.Builder
	for {
		start := strings.Index(s, "<b>")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "</b>")
		if end < 0 {
			break
		}
		end += start
		sb.WriteString(s[:start])
		sb.WriteString(highlight.Render(s[start+3 : end]))
		s = s[end+4:]
	}
	sb.WriteString(s)
	return sb.String()
}

// PlainSnippet strips the highlight markers.
func PlainSnippet(s string) string {
	s = strings.NewReplacer("<b>", "", "</b>", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

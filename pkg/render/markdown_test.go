package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	m := NewMarkdown("notty")

	out := m.Render("# Title\n\nSome *text* here.", 40)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "text")
	assert.False(t, strings.HasSuffix(out, "\n"))

	assert.Empty(t, m.Render("   ", 40))
}

func TestRenderCachesPerWidth(t *testing.T) {
	m := NewMarkdown("")
	m.Render("a", 30)
	m.Render("b", 30)
	m.Render("c", 5)
	assert.Len(t, m.renderers, 2)
}

func TestSnippet(t *testing.T) {
	plain := PlainSnippet("the <b>storm</b>\nrolled <b>in</b>")
	assert.Equal(t, "the storm rolled in", plain)

	styled := Snippet("the <b>storm</b> rolled")
	assert.Contains(t, styled, "storm")
	assert.NotContains(t, styled, "<b>")

	assert.Equal(t, "no markers", Snippet("no markers"))
	assert.Equal(t, "broken <b>marker", Snippet("broken <b>marker"))
}

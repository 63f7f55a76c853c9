package persistence

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

const (
	snippetOpen  = "<b>"
	snippetClose = "</b>"
	ellipsis     = "…"
	snippetWords = 12
)

// Search returns documents whose body matches query, best match first.
func (e *Engine) Search(ctx context.Context, project, query string) ([]models.SearchHit, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchHit{}, nil
	}

	if p.useFTS {
		return e.searchWithFTS(ctx, p, query)
	}
	return e.searchWithoutFTS(ctx, p, query)
}

func (e *Engine) searchWithFTS(ctx context.Context, p *projectDB, query string) ([]models.SearchHit, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT d.id, d.title, snippet(body_fts, -1, ?, ?, ?, ?)
		FROM body_fts
		JOIN Body b ON b.rowid = body_fts.rowid
		JOIN Document d ON d.id = b.document_id
		WHERE body_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		snippetOpen, snippetClose, ellipsis, snippetWords, ftsQuery(query), e.searchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := []models.SearchHit{}
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.DocumentID, &h.Title, &h.Snippet); err != nil {
			rows.Close()
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, closeRows(rows)
}

func (e *Engine) searchWithoutFTS(ctx context.Context, p *projectDB, query string) ([]models.SearchHit, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT d.id, d.title, b.markdown
		FROM Body b JOIN Document d ON d.id = b.document_id
		WHERE b.markdown LIKE ? ESCAPE '\'
		ORDER BY d.updated_at DESC
		LIMIT ?`,
		"%"+escapeLike(query)+"%", e.searchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := []models.SearchHit{}
	for rows.Next() {
		var h models.SearchHit
		var body string
		if err := rows.Scan(&h.DocumentID, &h.Title, &body); err != nil {
			rows.Close()
			return nil, err
		}
		h.Snippet = likeSnippet(body, query)
		hits = append(hits, h)
	}
	return hits, closeRows(rows)
}

// ftsQuery quotes every term so user input cannot hit FTS5 query syntax.
// Terms are ANDed.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// likeSnippet approximates the FTS5 snippet: a window of words around the
// first case-insensitive match with the match highlighted.
func likeSnippet(body, query string) string {
	words := strings.Fields(body)
	needle := strings.ToLower(query)
	needleWords := len(strings.Fields(query))

	for i := range words {
		end := i + needleWords
		if end > len(words) {
			break
		}
		candidate := strings.ToLower(strings.Join(words[i:end], " "))
		if !strings.Contains(candidate, needle) {
			continue
		}

		start := i - (snippetWords-needleWords)/2
		if start < 0 {
			start = 0
		}
		stop := start + snippetWords
		if stop > len(words) {
			stop = len(words)
		}

		var sb strings.Builder
		if start > 0 {
			sb.WriteString(ellipsis)
		}
		for j := start; j < stop; j++ {
			if j > start {
				sb.WriteByte(' ')
			}
			if j >= i && j < end {
				sb.WriteString(snippetOpen + words[j] + snippetClose)
			} else {
				sb.WriteString(words[j])
			}
		}
		if stop < len(words) {
			sb.WriteString(ellipsis)
		}
		return sb.String()
	}

	// Match spans a word boundary in an unexpected way; fall back to a prefix.
	if utf8.RuneCountInString(body) > 80 {
		return string([]rune(body)[:80]) + ellipsis
	}
	return body
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattsolo1/grove-quill/pkg/frontmatter"
	"github.com/mattsolo1/grove-quill/pkg/models"
)

// LoadDocumentBody returns the markdown body of a document. A document
// without a body row reads as empty.
func (e *Engine) LoadDocumentBody(ctx context.Context, project, docID string) (string, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return "", err
	}

	var markdown string
	err = p.db.QueryRowContext(ctx, `
		SELECT COALESCE(b.markdown, '')
		FROM Document d LEFT JOIN Body b ON b.document_id = d.id
		WHERE d.id = ?`, docID).Scan(&markdown)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(models.KindDocument, docID)
	}
	if err != nil {
		return "", fmt.Errorf("load body %s: %w", docID, err)
	}
	return markdown, nil
}

// SaveDocumentBody overwrites the body of a document and refreshes its
// markdown mirror.
func (e *Engine) SaveDocumentBody(ctx context.Context, project, docID, markdown string) error {
	p, root, err := e.project(ctx, project)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	doc := models.Document{ID: docID}
	var folder sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT title, folder_id, created_at FROM Document WHERE id = ?`, docID,
	).Scan(&doc.Title, &folder, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(models.KindDocument, docID)
	}
	if err != nil {
		return err
	}
	doc.FolderID = parentFromDB(folder)
	doc.UpdatedAt = e.now().UTC()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO Body (document_id, markdown, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET markdown = excluded.markdown, updated_at = excluded.updated_at`,
		docID, markdown, doc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("save body %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE Document SET updated_at = ? WHERE id = ?`, doc.UpdatedAt, docID,
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return e.writeMirror(root, doc, markdown)
}

// writeMirror writes md/<id>.md with a frontmatter header.
func (e *Engine) writeMirror(root string, doc models.Document, markdown string) error {
	fm := &frontmatter.Frontmatter{
		ID:       doc.ID,
		Title:    doc.Title,
		Tags:     []string{},
		Created:  frontmatter.FormatTimestamp(doc.CreatedAt.Local()),
		Modified: frontmatter.FormatTimestamp(doc.UpdatedAt.Local()),
	}
	if !models.IsRoot(doc.FolderID) {
		fm.Folder = doc.FolderID
	}

	path := mirrorPath(root, doc.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(path, []byte(frontmatter.BuildContent(fm, markdown)))
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

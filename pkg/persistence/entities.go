package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

const rootID = models.RootID

const defaultBody = "# New Document"

// ListTree returns every folder, document and character of the project.
func (e *Engine) ListTree(ctx context.Context, project string) (*models.Listing, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{
		Folders:    []models.Folder{},
		Documents:  []models.Document{},
		Characters: []models.Character{},
	}

	rows, err := p.db.QueryContext(ctx, `SELECT id, name, parent_id, created_at FROM Folder ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	for rows.Next() {
		var f models.Folder
		var parent sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &parent, &f.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		f.ParentID = parentFromDB(parent)
		listing.Folders = append(listing.Folders, f)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = p.db.QueryContext(ctx, `SELECT id, title, folder_id, created_at, updated_at FROM Document ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for rows.Next() {
		var d models.Document
		var folder sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &folder, &d.CreatedAt, &d.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		d.FolderID = parentFromDB(folder)
		listing.Documents = append(listing.Documents, d)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = p.db.QueryContext(ctx, `SELECT id, name, folder_id, created_at, updated_at FROM Character ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	for rows.Next() {
		var c models.Character
		var folder sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &folder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		c.FolderID = parentFromDB(folder)
		listing.Characters = append(listing.Characters, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return listing, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}

// CreateFolder inserts a folder under parentID (root when empty or the root
// sentinel) and returns its id.
func (e *Engine) CreateFolder(ctx context.Context, project, name, parentID string) (string, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return "", err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := requireFolder(ctx, tx, parentID); err != nil {
		return "", err
	}

	id := newID()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO Folder (id, parent_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, nullableParent(parentID), name, e.now().UTC(),
	); err != nil {
		return "", fmt.Errorf("insert folder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// CreateDocument inserts a document with the default body, writes its
// markdown mirror and returns its id.
func (e *Engine) CreateDocument(ctx context.Context, project, title, folderID string) (string, error) {
	p, root, err := e.project(ctx, project)
	if err != nil {
		return "", err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := requireFolder(ctx, tx, folderID); err != nil {
		return "", err
	}

	id := newID()
	now := e.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO Document (id, folder_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, nullableParent(folderID), title, now, now,
	); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO Body (document_id, markdown, updated_at) VALUES (?, ?, ?)`,
		id, defaultBody, now,
	); err != nil {
		return "", fmt.Errorf("insert body: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	doc := models.Document{ID: id, Title: title, FolderID: folderID, CreatedAt: now, UpdatedAt: now}
	if err := e.writeMirror(root, doc, defaultBody); err != nil {
		e.logger.WithError(err).WithField("document", id).Warn("Failed to write markdown mirror")
	}
	return id, nil
}

// CreateCharacter inserts a character with an empty profile and returns its id.
func (e *Engine) CreateCharacter(ctx context.Context, project, name, folderID string) (string, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return "", err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := requireFolder(ctx, tx, folderID); err != nil {
		return "", err
	}

	id := newID()
	now := e.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO Character (id, folder_id, name, attributes, created_at, updated_at) VALUES (?, ?, ?, '[]', ?, ?)`,
		id, nullableParent(folderID), name, now, now,
	); err != nil {
		return "", fmt.Errorf("insert character: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func requireFolder(ctx context.Context, tx *sql.Tx, id string) error {
	if models.IsRoot(id) {
		return nil
	}
	var found string
	err := tx.QueryRowContext(ctx, `SELECT id FROM Folder WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(models.KindFolder, id)
	}
	return err
}

const subtreeCTE = `
WITH RECURSIVE subtree(id) AS (
	SELECT id FROM Folder WHERE id = ?
	UNION
	SELECT f.id FROM Folder f JOIN subtree s ON f.parent_id = s.id
)`

// DeleteFolderRecursive removes a folder with every descendant folder,
// document and character, then deletes their mirror files and assets.
func (e *Engine) DeleteFolderRecursive(ctx context.Context, project, id string) error {
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

	if models.IsRoot(id) {
		return notFound(models.KindFolder, id)
	}
	if err := requireFolder(ctx, tx, id); err != nil {
		return err
	}

	docIDs, err := collectIDs(ctx, tx, subtreeCTE+` SELECT id FROM Document WHERE folder_id IN (SELECT id FROM subtree)`, id)
	if err != nil {
		return fmt.Errorf("collect documents: %w", err)
	}
	charIDs, err := collectIDs(ctx, tx, subtreeCTE+` SELECT id FROM Character WHERE folder_id IN (SELECT id FROM subtree)`, id)
	if err != nil {
		return fmt.Errorf("collect characters: %w", err)
	}

	// The UNION in the CTE stops on parent cycles; cascades would not reach
	// a folder whose chain loops back on itself, so delete explicitly.
	for _, stmt := range []string{
		subtreeCTE + ` DELETE FROM Document WHERE folder_id IN (SELECT id FROM subtree)`,
		subtreeCTE + ` DELETE FROM Character WHERE folder_id IN (SELECT id FROM subtree)`,
		subtreeCTE + ` DELETE FROM Folder WHERE id IN (SELECT id FROM subtree)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete folder %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"folder":     id,
		"documents":  len(docIDs),
		"characters": len(charIDs),
	}).Debug("Deleted folder subtree")

	for _, doc := range docIDs {
		e.removeMirror(root, doc)
	}
	for _, c := range charIDs {
		e.removeAssets(root, c)
	}
	return nil
}

// DeleteDocument removes a document, its body, snapshots and mirror file.
func (e *Engine) DeleteDocument(ctx context.Context, project, id string) error {
	p, root, err := e.project(ctx, project)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx, `DELETE FROM Document WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(models.KindDocument, id)
	}

	e.removeMirror(root, id)
	return nil
}

// DeleteCharacter removes a character and its imported assets.
func (e *Engine) DeleteCharacter(ctx context.Context, project, id string) error {
	p, root, err := e.project(ctx, project)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx, `DELETE FROM Character WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete character %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(models.KindCharacter, id)
	}

	e.removeAssets(root, id)
	return nil
}

func collectIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, closeRows(rows)
}

func (e *Engine) removeMirror(root, docID string) {
	if err := os.Remove(mirrorPath(root, docID)); err != nil && !os.IsNotExist(err) {
		e.logger.WithError(err).WithField("document", docID).Warn("Failed to remove markdown mirror")
	}
}

func (e *Engine) removeAssets(root, charID string) {
	if err := os.RemoveAll(characterAssetDir(root, charID)); err != nil {
		e.logger.WithError(err).WithField("character", charID).Warn("Failed to remove character assets")
	}
}

func mirrorPath(root, docID string) string {
	return filepath.Join(root, MarkdownDir, docID+".md")
}

func characterAssetDir(root, charID string) string {
	return filepath.Join(root, AssetsDir, "characters", charID)
}

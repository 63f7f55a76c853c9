package persistence

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

// SnapshotDocument stores a copy of the current body with a note.
func (e *Engine) SnapshotDocument(ctx context.Context, project, docID, note string) error {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx, `
		INSERT INTO Snapshot (id, document_id, note, markdown, created_at)
		SELECT ?, d.id, ?, COALESCE(b.markdown, ''), ?
		FROM Document d LEFT JOIN Body b ON b.document_id = d.id
		WHERE d.id = ?`,
		newID(), note, e.now().UTC(), docID,
	)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(models.KindDocument, docID)
	}
	return nil
}

// ListSnapshots returns the snapshots of a document, newest first.
func (e *Engine) ListSnapshots(ctx context.Context, project, docID string) ([]models.Snapshot, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, document_id, note, markdown, created_at
		FROM Snapshot WHERE document_id = ?
		ORDER BY created_at DESC, id DESC`, docID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snapshots := []models.Snapshot{}
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Note, &s.Markdown, &s.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, closeRows(rows)
}

// BackupProject writes backups/backup_YYYYMMDD_HHMMSS.zip holding a
// consistent copy of the database plus the md and assets trees, and returns
// the archive path.
func (e *Engine) BackupProject(ctx context.Context, project string) (string, error) {
	p, root, err := e.project(ctx, project)
	if err != nil {
		return "", err
	}

	backups := filepath.Join(root, BackupsDir)
	if err := os.MkdirAll(backups, 0o755); err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp("", "quill-backup-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(staging)

	dbCopy := filepath.Join(staging, DatabaseFile)
	if _, err := p.db.ExecContext(ctx, `VACUUM INTO ?`, dbCopy); err != nil {
		return "", fmt.Errorf("copy database: %w", err)
	}

	dest := e.backupName(backups)
	tmp, err := os.CreateTemp(backups, ".backup-*.zip.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	if err := addFile(zw, dbCopy, DatabaseFile); err != nil {
		tmp.Close()
		return "", err
	}
	for _, dir := range []string{MarkdownDir, AssetsDir} {
		if err := addTree(zw, root, dir); err != nil {
			tmp.Close()
			return "", fmt.Errorf("archive %s: %w", dir, err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", err
	}

	e.logger.WithField("archive", dest).Info("Project backed up")
	return dest, nil
}

func (e *Engine) backupName(dir string) string {
	stamp := e.now().Format("20060102_150405")
	name := filepath.Join(dir, "backup_"+stamp+".zip")
	for i := 1; ; i++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = filepath.Join(dir, fmt.Sprintf("backup_%s_%d.zip", stamp, i))
	}
}

func addTree(zw *zip.Writer, root, dir string) error {
	base := filepath.Join(root, dir)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

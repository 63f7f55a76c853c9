package persistence

import (
	"context"
	"database/sql"

	"github.com/mattsolo1/grove-quill/pkg/migration"
)

const initSchema = `
CREATE TABLE IF NOT EXISTS Folder (
	id TEXT PRIMARY KEY,
	parent_id TEXT REFERENCES Folder(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS Document (
	id TEXT PRIMARY KEY,
	folder_id TEXT REFERENCES Folder(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS Body (
	document_id TEXT PRIMARY KEY REFERENCES Document(id) ON DELETE CASCADE,
	markdown TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS Character (
	id TEXT PRIMARY KEY,
	folder_id TEXT REFERENCES Folder(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	age TEXT NOT NULL DEFAULT '',
	nationality TEXT NOT NULL DEFAULT '',
	sexuality TEXT NOT NULL DEFAULT '',
	height TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '[]',
	image_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS Snapshot (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES Document(id) ON DELETE CASCADE,
	note TEXT NOT NULL DEFAULT '',
	markdown TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folder_parent ON Folder(parent_id);
CREATE INDEX IF NOT EXISTS idx_document_folder ON Document(folder_id);
CREATE INDEX IF NOT EXISTS idx_character_folder ON Character(folder_id);
CREATE INDEX IF NOT EXISTS idx_snapshot_document ON Snapshot(document_id, created_at);
`

// Body rows keep their implicit rowid, which the external-content index uses.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS body_fts USING fts5(
	markdown,
	content = 'Body',
	content_rowid = 'rowid',
	tokenize = 'porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS body_ai AFTER INSERT ON Body BEGIN
	INSERT INTO body_fts(rowid, markdown) VALUES (new.rowid, new.markdown);
END;

CREATE TRIGGER IF NOT EXISTS body_ad AFTER DELETE ON Body BEGIN
	INSERT INTO body_fts(body_fts, rowid, markdown) VALUES ('delete', old.rowid, old.markdown);
END;

CREATE TRIGGER IF NOT EXISTS body_au AFTER UPDATE ON Body BEGIN
	INSERT INTO body_fts(body_fts, rowid, markdown) VALUES ('delete', old.rowid, old.markdown);
	INSERT INTO body_fts(rowid, markdown) VALUES (new.rowid, new.markdown);
END;

INSERT INTO body_fts(body_fts) VALUES ('rebuild');
`

// Migrations is the ordered schema history of a project database.
var Migrations = []migration.Migration{
	{Version: 1, Name: "init", Up: migration.Exec(initSchema)},
	{Version: 2, Name: "body_fts", Up: createSearchIndex},
}

// createSearchIndex installs the full-text index when the sqlite build ships
// FTS5. Without it the version is still recorded and search falls back to
// LIKE matching.
func createSearchIndex(ctx context.Context, tx *sql.Tx) error {
	if !fts5Available(ctx, tx) {
		return nil
	}
	_, err := tx.ExecContext(ctx, ftsSchema)
	return err
}

func fts5Available(ctx context.Context, tx *sql.Tx) bool {
	if _, err := tx.ExecContext(ctx, "CREATE VIRTUAL TABLE temp.fts5_check USING fts5(content)"); err != nil {
		return false
	}
	_, _ = tx.ExecContext(ctx, "DROP TABLE IF EXISTS temp.fts5_check")
	return true
}

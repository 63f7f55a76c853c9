// Package persistence is the SQLite-backed project engine. Each project is a
// directory holding project.db, markdown mirrors under md/, imported assets
// under assets/ and zip archives under backups/.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/migration"
)

const (
	DatabaseFile = "project.db"
	MarkdownDir  = "md"
	BackupsDir   = "backups"
	AssetsDir    = "assets"

	DefaultSearchLimit    = 50
	DefaultThumbnailWidth = 256
)

// Options configures an Engine.
type Options struct {
	SearchLimit    int
	ThumbnailWidth int
	Now            func() time.Time
	Logger         *logrus.Entry
}

// Engine serves every project operation. Database handles are opened on
// first use and kept until Close.
type Engine struct {
	searchLimit    int
	thumbnailWidth int
	now            func() time.Time
	logger         *logrus.Entry

	mu  sync.Mutex
	dbs map[string]*projectDB
}

type projectDB struct {
	db     *sql.DB
	useFTS bool
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = DefaultThumbnailWidth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(l)
	}
	return &Engine{
		searchLimit:    opts.SearchLimit,
		thumbnailWidth: opts.ThumbnailWidth,
		now:            opts.Now,
		logger:         opts.Logger.WithField("component", "persistence"),
		dbs:            make(map[string]*projectDB),
	}
}

// CreateProject creates dir/name with its directory layout and an initialized
// database, and returns the project path.
func (e *Engine) CreateProject(ctx context.Context, dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid project name %q", name)
	}

	root, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if entries, err := os.ReadDir(root); err == nil && len(entries) > 0 {
		return "", fmt.Errorf("%s: %w", root, ErrProjectExists)
	}

	for _, sub := range []string{MarkdownDir, BackupsDir, AssetsDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", sub, err)
		}
	}

	if _, err := e.connect(ctx, root, true); err != nil {
		return "", err
	}

	e.logger.WithField("project", root).Info("Created project")
	return root, nil
}

// Open checks that path is a project and migrates its database.
func (e *Engine) Open(ctx context.Context, path string) (string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := e.connect(ctx, root, false); err != nil {
		return "", err
	}
	return root, nil
}

// MigrateProject reports the schema migrations of a project; with dryRun
// nothing is applied. It works on a dedicated handle so that a dry run does
// not leave a migrated connection in the cache.
func (e *Engine) MigrateProject(ctx context.Context, path string, dryRun bool) (*migration.MigrationReport, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	db, err := openDatabase(root, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	m, err := migration.NewMigrator(Migrations, migration.MigrationOptions{DryRun: dryRun}, e.logger)
	if err != nil {
		return nil, err
	}
	return m.Migrate(ctx, db)
}

// Close releases every open database handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for path, p := range e.dbs {
		if err := p.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(e.dbs, path)
	}
	return errors.Join(errs...)
}

func (e *Engine) project(ctx context.Context, path string) (*projectDB, string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	p, err := e.connect(ctx, root, false)
	return p, root, err
}

func (e *Engine) connect(ctx context.Context, root string, create bool) (*projectDB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.dbs[root]; ok {
		return p, nil
	}

	db, err := openDatabase(root, create)
	if err != nil {
		return nil, err
	}

	m, err := migration.NewMigrator(Migrations, migration.MigrationOptions{}, e.logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	report, err := m.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", root, err)
	}
	if len(report.Applied) > 0 {
		e.logger.WithFields(logrus.Fields{
			"project": root,
			"applied": report.Applied,
		}).Debug("Migrated project database")
	}

	var n int
	if err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'body_fts'",
	).Scan(&n); err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &projectDB{db: db, useFTS: n > 0}
	e.dbs[root] = p
	return p, nil
}

func openDatabase(root string, create bool) (*sql.DB, error) {
	dbPath := filepath.Join(root, DatabaseFile)
	if !create {
		if _, err := os.Stat(dbPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", root, ErrNotAProject)
			}
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newID() string {
	return ulid.Make().String()
}

// nullableParent maps the root sentinel and the unassigned value to NULL.
func nullableParent(id string) any {
	if id == "" || id == rootID {
		return nil
	}
	return id
}

func parentFromDB(v sql.NullString) string {
	if !v.Valid || v.String == "" {
		return rootID
	}
	return v.String
}

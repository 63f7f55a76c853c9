// Package projects keeps the list of recently opened projects.
package projects

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

// ErrNotRegistered is returned when a project is not in the registry.
var ErrNotRegistered = errors.New("project not registered")

// Registry stores known projects in data_dir/projects.db.
type Registry struct {
	db      *sql.DB
	dataDir string
	now     func() time.Time
}

// NewRegistry opens (or creates) the registry in dataDir.
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "projects.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &Registry{
		db:      db,
		dataDir: dataDir,
		now:     time.Now,
	}

	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return r, nil
}

// init creates the database schema
func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		last_used TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);
	CREATE INDEX IF NOT EXISTS idx_projects_last_used ON projects(last_used);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Touch registers a project, or bumps its last-used time when already known.
func (r *Registry) Touch(path string) (*models.Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	now := r.now()
	_, err = r.db.Exec(`
	INSERT INTO projects (path, name, created_at, last_used) VALUES (?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET last_used = excluded.last_used
	`, absPath, filepath.Base(absPath), now, now)
	if err != nil {
		return nil, fmt.Errorf("register project: %w", err)
	}

	return r.Get(absPath)
}

// Get retrieves a project by path
func (r *Registry) Get(path string) (*models.Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	p := &models.Project{}
	err = r.db.QueryRow(
		`SELECT name, path, created_at, last_used FROM projects WHERE path = ?`, absPath,
	).Scan(&p.Name, &p.Path, &p.CreatedAt, &p.LastUsed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", absPath, ErrNotRegistered)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByName returns the most recently used project with the given
// directory name.
func (r *Registry) FindByName(name string) (*models.Project, error) {
	p := &models.Project{}
	err := r.db.QueryRow(`
	SELECT name, path, created_at, last_used FROM projects
	WHERE name = ? ORDER BY last_used DESC LIMIT 1
	`, name).Scan(&p.Name, &p.Path, &p.CreatedAt, &p.LastUsed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegistered)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all registered projects, most recently used first
func (r *Registry) List() ([]*models.Project, error) {
	rows, err := r.db.Query(`SELECT name, path, created_at, last_used FROM projects ORDER BY last_used DESC, path ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.Name, &p.Path, &p.CreatedAt, &p.LastUsed); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// Last returns the most recently used project.
func (r *Registry) Last() (*models.Project, error) {
	projects, err := r.List()
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, ErrNotRegistered
	}
	return projects[0], nil
}

// Prune removes every project for which keep returns false and reports how
// many were removed.
func (r *Registry) Prune(keep func(path string) bool) (int, error) {
	projects, err := r.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range projects {
		if keep(p.Path) {
			continue
		}
		if err := r.Remove(p.Path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Remove removes a project from the registry. The project itself is untouched.
func (r *Registry) Remove(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	_, err = r.db.Exec("DELETE FROM projects WHERE path = ?", absPath)
	return err
}

// Close closes the registry database
func (r *Registry) Close() error {
	return r.db.Close()
}

package migration

import (
	"context"
	"database/sql"
	"time"
)

// Migration is one versioned schema step. Versions must be strictly
// increasing and are recorded in PRAGMA user_version.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx *sql.Tx) error
}

type MigrationOptions struct {
	DryRun bool
}

type MigrationReport struct {
	FromVersion int
	ToVersion   int
	Applied     []string
	Pending     []string
	StartTime   time.Time
	EndTime     time.Time
}

func NewMigrationReport() *MigrationReport {
	return &MigrationReport{
		StartTime: time.Now(),
	}
}

func (r *MigrationReport) Complete() {
	r.EndTime = time.Now()
}

func (r *MigrationReport) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// UpToDate reports whether nothing was, or would be, applied.
func (r *MigrationReport) UpToDate() bool {
	return len(r.Applied) == 0 && len(r.Pending) == 0
}

// Package migration applies ordered schema migrations to a SQLite database.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

type Migrator struct {
	migrations []Migration
	options    MigrationOptions
	logger     *logrus.Entry
}

func NewMigrator(migrations []Migration, options MigrationOptions, logger *logrus.Entry) (*Migrator, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	for i, m := range sorted {
		if m.Version <= 0 {
			return nil, fmt.Errorf("migration %q: version must be positive", m.Name)
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("duplicate migration version %d", m.Version)
		}
		if m.Up == nil {
			return nil, fmt.Errorf("migration %d (%s) has no Up step", m.Version, m.Name)
		}
	}

	return &Migrator{
		migrations: sorted,
		options:    options,
		logger:     logger.WithField("component", "migration"),
	}, nil
}

// CurrentVersion reads the schema version recorded in the database.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// Latest is the highest version known to the migrator.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// Migrate applies every migration newer than the recorded version. Each step
// runs in its own transaction together with the version bump.
func (m *Migrator) Migrate(ctx context.Context, db *sql.DB) (*MigrationReport, error) {
	report := NewMigrationReport()
	defer report.Complete()

	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return report, err
	}
	report.FromVersion = current
	report.ToVersion = current

	if current > m.Latest() {
		return report, fmt.Errorf("database schema version %d is newer than supported version %d", current, m.Latest())
	}

	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		label := fmt.Sprintf("%04d_%s", mig.Version, mig.Name)

		if m.options.DryRun {
			report.Pending = append(report.Pending, label)
			continue
		}

		if err := m.apply(ctx, db, mig); err != nil {
			return report, fmt.Errorf("apply migration %s: %w", label, err)
		}
		report.Applied = append(report.Applied, label)
		report.ToVersion = mig.Version

		m.logger.WithFields(logrus.Fields{
			"version": mig.Version,
			"name":    mig.Name,
		}).Debug("Applied migration")
	}

	return report, nil
}

func (m *Migrator) apply(ctx context.Context, db *sql.DB, mig Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := mig.Up(ctx, tx); err != nil {
		return err
	}

	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", mig.Version)); err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	return tx.Commit()
}

// Exec returns an Up step that runs a fixed SQL script.
func Exec(script string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, script)
		return err
	}
}

package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var testMigrations = []Migration{
	{Version: 2, Name: "add_index", Up: Exec(`CREATE INDEX idx_items_name ON items(name)`)},
	{Version: 1, Name: "init", Up: Exec(`CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT)`)},
}

func TestMigrateAppliesInOrder(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	m, err := NewMigrator(testMigrations, MigrationOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Latest())

	report, err := m.Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init", "0002_add_index"}, report.Applied)
	assert.Equal(t, 0, report.FromVersion)
	assert.Equal(t, 2, report.ToVersion)

	v, err := CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// Second run is a no-op.
	report, err = m.Migrate(ctx, db)
	require.NoError(t, err)
	assert.True(t, report.UpToDate())
}

func TestMigrateDryRunListsPending(t *testing.T) {
	db := openDB(t)

	m, err := NewMigrator(testMigrations, MigrationOptions{DryRun: true}, nil)
	require.NoError(t, err)

	report, err := m.Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
	assert.Equal(t, []string{"0001_init", "0002_add_index"}, report.Pending)

	v, err := CurrentVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestMigrateFailureRollsBack(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	failing := append([]Migration{}, testMigrations...)
	failing = append(failing, Migration{
		Version: 3,
		Name:    "broken",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `CREATE TABLE extra (id TEXT)`); err != nil {
				return err
			}
			return errors.New("boom")
		},
	})

	m, err := NewMigrator(failing, MigrationOptions{}, nil)
	require.NoError(t, err)

	report, err := m.Migrate(ctx, db)
	require.Error(t, err)
	assert.Equal(t, 2, report.ToVersion)

	v, err := CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'extra'`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrateRejectsNewerDatabase(t *testing.T) {
	db := openDB(t)
	_, err := db.Exec("PRAGMA user_version = 9")
	require.NoError(t, err)

	m, err := NewMigrator(testMigrations, MigrationOptions{}, nil)
	require.NoError(t, err)

	_, err = m.Migrate(context.Background(), db)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestNewMigratorValidates(t *testing.T) {
	tests := []struct {
		name       string
		migrations []Migration
	}{
		{"zero version", []Migration{{Version: 0, Name: "x", Up: Exec("")}}},
		{"duplicate", []Migration{{Version: 1, Name: "a", Up: Exec("")}, {Version: 1, Name: "b", Up: Exec("")}}},
		{"missing up", []Migration{{Version: 1, Name: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMigrator(tt.migrations, MigrationOptions{}, nil)
			assert.Error(t, err)
		})
	}
}

package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsPrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_b.sql"), []byte("SELECT 2;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_a.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	files, err := loadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "0001_a.sql", files[0].name)
	assert.Equal(t, "0002_b.sql", files[1].name)

	files, err = loadMigrations(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_init.sql", files[0].name)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite3", "file:"+filepath.Join(t.TempDir(), "bot.db")+"?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, RunMigrations(ctx, conn, ""))
	require.NoError(t, RunMigrations(ctx, conn, ""))

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM survey_records`).Scan(&n))
	assert.Zero(t, n)
}

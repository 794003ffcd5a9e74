package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/shopdesk/backoffice/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add media title", "add_media_title"},
		{"Add-Media-Title", "add_media_title"},
		{"ADD_MEDIA_TITLE", "add_media_title"},
		{"add__media__title", "add_media_title"},
		{"Add Variants 2", "add_variants_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_create_catalog.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_create_catalog.down.sql"), nil, 0o644))

	mf, err := CreateMigration(dir, "add media title", "Adds a title column")
	require.NoError(t, err)

	assert.Equal(t, "000002", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_media_title.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000002_add_media_title.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add media title")
	assert.Contains(t, string(up), "-- Adds a title column")
	assert.FileExists(t, mf.DownPath)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "first", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
	assert.DirExists(t, dir)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {},
		"000002_b.down.sql": {},
		"000001_a.up.sql":   {},
		"000001_a.down.sql": {},
		"README.md":         {},
		"archive/x.up.sql":  {},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a", "000002_b"}, got)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_catalog", "000002_create_outbox_events"}, got)

	for _, name := range got {
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}

package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMigrationDir(t *testing.T) {
	root := t.TempDir()
	migrations := filepath.Join(root, "db", "migrations")
	nested := filepath.Join(root, "internal", "service")
	require.NoError(t, os.MkdirAll(migrations, 0o755))
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, migrations, findMigrationDir(nested))
	assert.Equal(t, migrations, findMigrationDir(root))
}

func TestFindMigrationDir_Fallback(t *testing.T) {
	assert.Equal(t, defaultMigrationDir, findMigrationDir(t.TempDir()))
}

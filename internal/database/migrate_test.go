package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	src := `-- users
CREATE TABLE a (
  id INT
);

-- second
CREATE TABLE b (id INT);
INSERT INTO b VALUES (1)`
	stmts := SplitStatements(src)
	require.Len(t, stmts, 3)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.NotContains(t, stmts[0], ";")
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
	assert.Equal(t, "INSERT INTO b VALUES (1)", stmts[2])
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, n := range names {
		b, err := fs.ReadFile(migrationFiles, n)
		require.NoError(t, err)
		assert.NotEmpty(t, SplitStatements(string(b)), n)
	}
}

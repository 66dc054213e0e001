package database_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/database"
)

func TestIsUniqueViolation(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "unique.db") + "?_pragma=foreign_keys(1)"
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.MustExec(`CREATE TABLE pairs (id TEXT PRIMARY KEY, a TEXT NOT NULL, b TEXT NOT NULL, UNIQUE (a, b))`)
	db.MustExec(`INSERT INTO pairs (id, a, b) VALUES ('1', 'x', 'y')`)

	_, err = db.Exec(`INSERT INTO pairs (id, a, b) VALUES ('2', 'x', 'y')`)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err), "unique pair")

	_, err = db.Exec(`INSERT INTO pairs (id, a, b) VALUES ('1', 'z', 'z')`)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err), "primary key")

	_, err = db.Exec(`INSERT INTO pairs (id, a, b) VALUES ('3', 'x', NULL)`)
	require.Error(t, err)
	assert.False(t, database.IsUniqueViolation(err), "not null")

	assert.False(t, database.IsUniqueViolation(errors.New("boom")))
	assert.False(t, database.IsUniqueViolation(nil))
}

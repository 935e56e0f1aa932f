package dialect

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/logger"
	"github.com/mkoline/schemascope/internal/schema"
)

// newFixtureDB creates a real SQLite file with two related tables and a few
// rows, and returns the connection config pointing at it.
func newFixtureDB(t *testing.T) schema.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT
		)`,
		`CREATE TABLE posts (
			id INTEGER PRIMARY KEY,
			user_id INTEGER REFERENCES users(id),
			title TEXT NOT NULL DEFAULT 'untitled'
		)`,
		`INSERT INTO users (email, name) VALUES ('a@example.com', 'Alice'), ('b@example.com', NULL)`,
		`INSERT INTO posts (user_id, title) VALUES (1, 'hello'), (1, 'world'), (2, 'third')`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}

	return schema.Config{Database: path, Dialect: schema.DialectSQLite}
}

func TestSQLiteConnect(t *testing.T) {
	a := &SQLite{log: logger.Nop()}
	cfg := newFixtureDB(t)

	res := a.Connect(context.Background(), cfg)
	require.True(t, res.Success, res.Message)
	assert.NotEmpty(t, res.Version)
	assert.Contains(t, res.Message, "Connected to")
}

func TestSQLiteConnectMissingFile(t *testing.T) {
	a := &SQLite{log: logger.Nop()}
	res := a.Connect(context.Background(), schema.Config{
		Database: filepath.Join(t.TempDir(), "absent.db"),
		Dialect:  schema.DialectSQLite,
	})

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not found")
	assert.LessOrEqual(t, len(res.Message), 100)
}

func TestSQLiteFetchSchema(t *testing.T) {
	a := &SQLite{log: logger.Nop()}
	cfg := newFixtureDB(t)

	info, err := a.FetchSchema(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, schema.DialectSQLite, info.Dialect)
	assert.NotEmpty(t, info.Version)
	require.Len(t, info.Tables, 2)

	users := info.Table("users")
	require.NotNil(t, users)
	assert.Equal(t, int64(2), users.RowCount)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	require.Len(t, users.Columns, 3)
	assert.Equal(t, "id", users.Columns[0].Name)
	assert.Equal(t, schema.KeyPrimary, users.Columns[0].Key)
	assert.False(t, users.Columns[1].Nullable) // email NOT NULL
	assert.True(t, users.Columns[2].Nullable)  // name

	posts := info.Table("posts")
	require.NotNil(t, posts)
	assert.Equal(t, int64(3), posts.RowCount)
	assert.Equal(t, "users.id", posts.ForeignKeys["user_id"])

	var userID *schema.ColumnInfo
	for i := range posts.Columns {
		if posts.Columns[i].Name == "user_id" {
			userID = &posts.Columns[i]
		}
	}
	require.NotNil(t, userID)
	assert.Equal(t, "users.id", userID.FKRef)

	title := posts.Columns[2]
	require.NotNil(t, title.Default)
	assert.Contains(t, *title.Default, "untitled")
}

func TestSQLiteFetchSampleRows(t *testing.T) {
	a := &SQLite{log: logger.Nop()}
	cfg := newFixtureDB(t)

	lines, err := a.FetchSampleRows(context.Background(), cfg, "users", schema.SampleRows)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(lines), 4)

	assert.Contains(t, lines[0], "email")
	assert.Contains(t, lines[2], "a@example.com")
	assert.Contains(t, lines[3], "NULL") // Bob has no name
}

func TestSQLiteFetchSampleRowsRevalidatesTable(t *testing.T) {
	a := &SQLite{log: logger.Nop()}
	cfg := newFixtureDB(t)

	_, err := a.FetchSampleRows(context.Background(), cfg, "users; DROP TABLE users", schema.SampleRows)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestSQLiteSkipsInternalTables(t *testing.T) {
	a := &SQLite{log: logger.Nop()}
	cfg := newFixtureDB(t)

	info, err := a.FetchSchema(context.Background(), cfg)
	require.NoError(t, err)
	for _, tbl := range info.Tables {
		assert.NotContains(t, tbl.Name, "sqlite_")
	}
}

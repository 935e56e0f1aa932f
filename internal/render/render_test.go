package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoline/schemascope/internal/schema"
)

// blogSchema mirrors a small two-table database: users with a serial PK and
// posts referencing it.
func blogSchema() *schema.Info {
	return &schema.Info{
		Database: "blog",
		Dialect:  schema.DialectMySQL,
		Version:  "8.0.36",
		Tables: []*schema.TableInfo{
			{
				Name: "users",
				Columns: []schema.ColumnInfo{
					{Name: "id", Type: "int", Key: schema.KeyPrimary, Extra: "auto_increment"},
					{Name: "email", Type: "varchar(255)", Nullable: true},
					{Name: "name", Type: "varchar(100)", Nullable: true},
				},
				RowCount:   3,
				PrimaryKey: []string{"id"},
			},
			{
				Name: "posts",
				Columns: []schema.ColumnInfo{
					{Name: "id", Type: "int", Key: schema.KeyPrimary},
					{Name: "user_id", Type: "int", Nullable: true, FKRef: "users.id"},
					{Name: "title", Type: "varchar(255)", Nullable: true},
				},
				RowCount:    7,
				PrimaryKey:  []string{"id"},
				ForeignKeys: map[string]string{"user_id": "users.id"},
			},
		},
	}
}

func TestSchemaNilSentinel(t *testing.T) {
	assert.Equal(t, NoSchema, Schema(nil, schema.DefaultTTL, time.Now()))
}

func TestSchemaEndToEnd(t *testing.T) {
	out := Schema(blogSchema(), schema.DefaultTTL, time.Now())

	assert.Contains(t, out, "Database: blog (mysql 8.0.36)")
	assert.Contains(t, out, "users (3 cols, ~3 rows)")
	assert.Contains(t, out, "posts (3 cols, ~7 rows)")
	assert.Contains(t, out, "id: int PK AUTO")
	assert.Contains(t, out, "user_id: int FK→users.id")
	assert.Contains(t, out, "~3")
	assert.Contains(t, out, "~7")
}

func TestSchemaTableAndColumnOrderPreserved(t *testing.T) {
	out := Schema(blogSchema(), schema.DefaultTTL, time.Now())

	usersIdx := strings.Index(out, "users (")
	postsIdx := strings.Index(out, "posts (")
	require.Greater(t, usersIdx, -1)
	require.Greater(t, postsIdx, -1)
	assert.Less(t, usersIdx, postsIdx)

	// Last column of each table gets the closing tree prefix.
	assert.Contains(t, out, "└─ name: varchar(100)")
	assert.Contains(t, out, "└─ title: varchar(255)")
	assert.Contains(t, out, "├─ email: varchar(255)")
}

func TestSchemaCacheAgeLine(t *testing.T) {
	now := time.Now()
	info := blogSchema()
	info.CachedAt = now.Add(-42 * time.Second)

	out := Schema(info, schema.DefaultTTL, now)
	assert.Contains(t, out, "(cache: 42s old, ttl: 300s)")

	never := blogSchema()
	assert.NotContains(t, Schema(never, schema.DefaultTTL, now), "cache:")
}

func TestFlagOrderFixed(t *testing.T) {
	col := &schema.ColumnInfo{
		Name:     "id",
		Type:     "int",
		Nullable: false,
		Key:      schema.KeyPrimary,
		Extra:    "auto_increment",
		FKRef:    "other.id",
	}

	assert.Equal(t, " PK AUTO FK→other.id NOT NULL", flagString(col))
}

func TestFlagStringUniqueAndEmpty(t *testing.T) {
	uniq := &schema.ColumnInfo{Name: "email", Type: "text", Nullable: true, Key: schema.KeyUnique}
	assert.Equal(t, " UNIQUE", flagString(uniq))

	plain := &schema.ColumnInfo{Name: "bio", Type: "text", Nullable: true}
	assert.Empty(t, flagString(plain))
}

func TestTableDetails(t *testing.T) {
	posts := blogSchema().Tables[1]
	out := TableDetails(posts, nil)

	assert.Contains(t, out, "## posts")
	assert.Contains(t, out, "Rows: ~7")
	assert.Contains(t, out, "### Columns")
	assert.Contains(t, out, "- user_id: int FK→users.id")
	assert.Contains(t, out, "### Foreign Keys")
	assert.Contains(t, out, "- user_id → users.id")
	assert.NotContains(t, out, "Sample Data")
}

func TestTableDetailsWithSample(t *testing.T) {
	users := blogSchema().Tables[0]
	sample := []string{
		"id | email | name",
		"-----------------",
		"1 | a@example.com | Alice",
		"2 | b@example.com | NULL",
	}

	out := TableDetails(users, sample)
	assert.Contains(t, out, "### Sample Data (2 rows)")
	assert.Contains(t, out, "1 | a@example.com | Alice")
}

func TestTableDetailsEmptySampleOmitsSection(t *testing.T) {
	users := blogSchema().Tables[0]

	// The placeholder an adapter returns for an empty table is not a row.
	out := TableDetails(users, []string{"(no rows)"})
	assert.NotContains(t, out, "Sample Data")
	assert.NotContains(t, out, "(no rows)")

	// A header and dash rule with no data lines is not a sample either.
	out = TableDetails(users, []string{"id | email", "----------"})
	assert.NotContains(t, out, "Sample Data")
}

func TestTableDetailsNoForeignKeysSection(t *testing.T) {
	users := blogSchema().Tables[0]
	assert.NotContains(t, TableDetails(users, nil), "Foreign Keys")
}

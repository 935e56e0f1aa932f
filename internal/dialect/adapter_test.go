package dialect

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoline/schemascope/internal/logger"
	"github.com/mkoline/schemascope/internal/schema"
)

func TestNewSelectsVariant(t *testing.T) {
	tests := []struct {
		dialect schema.Dialect
	}{
		{schema.DialectMySQL},
		{schema.DialectPostgres},
		{schema.DialectSQLite},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			a, err := New(tt.dialect, logger.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, a.Dialect())
		})
	}

	_, err := New("oracle", logger.Nop())
	assert.Error(t, err)
}

func TestFilterTablesCapsAtMaxTables(t *testing.T) {
	names := make([]string, 60)
	for i := range names {
		names[i] = fmt.Sprintf("table_%02d", i)
	}

	kept := filterTables(names, logger.Nop())
	require.Len(t, kept, schema.MaxTables)
	assert.Equal(t, "table_00", kept[0])
	assert.Equal(t, "table_49", kept[len(kept)-1])
}

func TestFilterTablesSkipsInvalidNames(t *testing.T) {
	names := []string{"users", "bad name", "posts", "1table", "drop; table"}

	kept := filterTables(names, logger.Nop())
	assert.Equal(t, []string{"users", "posts"}, kept)
}

func TestPasswordTraits(t *testing.T) {
	n, special := passwordTraits("hunter2")
	assert.Equal(t, 7, n)
	assert.False(t, special)

	n, special = passwordTraits("p@ss!")
	assert.Equal(t, 5, n)
	assert.True(t, special)

	n, special = passwordTraits("")
	assert.Zero(t, n)
	assert.False(t, special)
}

func TestConnectFailureTruncatesAndHints(t *testing.T) {
	err := errors.New(strings.Repeat("x", 200))
	res := connectFailure(err, " (check credentials)")

	assert.False(t, res.Success)
	assert.LessOrEqual(t, len(res.Message), 100)
	assert.True(t, strings.HasPrefix(res.Message, strings.Repeat("x", 80)))
}

func TestConnectFailureKeepsShortMessageAndHint(t *testing.T) {
	res := connectFailure(errors.New("Access denied for user"), " (check credentials)")
	assert.Equal(t, "Access denied for user (check credentials)", res.Message)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil is NULL literal", nil, "NULL"},
		{"short string", "abc", "abc"},
		{"long string truncated", strings.Repeat("a", 30), strings.Repeat("a", 20)},
		{"bytes", []byte("hello"), "hello"},
		{"int", 42, "42"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, truncate(ts.Format(time.RFC3339), valueLimit), formatValue(ts))
	assert.Len(t, formatValue(ts), valueLimit)
}

func TestRenderSample(t *testing.T) {
	lines := renderSample(
		[]string{"id", "email"},
		[][]any{
			{int64(1), "a@example.com"},
			{int64(2), nil},
		},
	)

	require.Len(t, lines, 4)
	assert.Equal(t, "id | email", lines[0])
	assert.Equal(t, strings.Repeat("-", len("id | email")), lines[1])
	assert.Equal(t, "1 | a@example.com", lines[2])
	assert.Equal(t, "2 | NULL", lines[3])
}

func TestRenderSampleEmpty(t *testing.T) {
	assert.Equal(t, []string{"(no rows)"}, renderSample([]string{"id"}, nil))
}

func TestMySQLDSNCarriesTimeout(t *testing.T) {
	a := &MySQL{log: logger.Nop()}
	dsn := a.dsn(schema.Config{
		Host: "db.internal", Port: 3306,
		User: "app", Password: "p@ss!word",
		Database: "shop", Dialect: schema.DialectMySQL,
	})

	assert.Contains(t, dsn, "tcp(db.internal:3306)")
	assert.Contains(t, dsn, "/shop")
	assert.Contains(t, dsn, "timeout=10s")
}

func TestMySQLConnectHint(t *testing.T) {
	a := &MySQL{log: logger.Nop()}

	assert.Equal(t, " (check credentials)",
		a.connectHint(errors.New("Error 1045: Access denied for user 'app'"), false))
	assert.Equal(t, " (password has special chars - try escaping or changing)",
		a.connectHint(errors.New("Error 1045: Access denied for user 'app'"), true))
	assert.Equal(t, " (check host/port)",
		a.connectHint(errors.New("dial tcp 10.0.0.1:3306: connection refused"), false))
	assert.Empty(t, a.connectHint(errors.New("some other failure"), false))
}

func TestPostgresConnString(t *testing.T) {
	a := &Postgres{log: logger.Nop()}
	cs := a.connString(schema.Config{
		Host: "pg.internal", Port: 5432,
		User: "app", Password: `we'ird\pass`,
		Database: "appdb", Dialect: schema.DialectPostgres,
	})

	assert.Contains(t, cs, "host='pg.internal'")
	assert.Contains(t, cs, "port=5432")
	assert.Contains(t, cs, `password='we\'ird\\pass'`)
	assert.Contains(t, cs, "connect_timeout=10")
}

func TestPostgresConnectHint(t *testing.T) {
	a := &Postgres{log: logger.Nop()}

	assert.Equal(t, " (check credentials)",
		a.connectHint(errors.New("FATAL: password authentication failed for user \"app\""), false))
	assert.Equal(t, " (password has special chars)",
		a.connectHint(errors.New("FATAL: password authentication failed for user \"app\""), true))
	assert.Equal(t, " (check host/port)",
		a.connectHint(errors.New("dial tcp: connection refused"), false))
}

func TestShortVersion(t *testing.T) {
	assert.Equal(t, "16.2", shortVersion("PostgreSQL 16.2 on x86_64-pc-linux-gnu"))
	assert.Equal(t, "odd", shortVersion("odd"))
}

func TestSampleQueryUsesFixedLimit(t *testing.T) {
	assert.Equal(t, "SELECT * FROM `users` LIMIT 5", sampleQuery("`users`", schema.SampleRows))
	assert.Equal(t, `SELECT COUNT(*) FROM "users"`, countQuery(`"users"`))
}

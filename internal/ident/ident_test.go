package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/schema"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"simple", "users", true},
		{"leading underscore", "_private1", true},
		{"mixed case", "OrderItems", true},
		{"digits inside", "tbl2024", true},
		{"max length", strings.Repeat("a", 128), true},
		{"empty", "", false},
		{"leading digit", "1table", false},
		{"injection attempt", "users; DROP TABLE x", false},
		{"backtick smuggling", "users`--", false},
		{"quote smuggling", `users"`, false},
		{"space", "user accounts", false},
		{"hyphen", "user-accounts", false},
		{"over max length", strings.Repeat("a", 129), false},
		{"unicode", "täble", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestQuotePerDialect(t *testing.T) {
	tests := []struct {
		dialect schema.Dialect
		want    string
	}{
		{schema.DialectMySQL, "`users`"},
		{schema.DialectSQLite, "`users`"},
		{schema.DialectPostgres, `"users"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			got, err := Quote("users", tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteRejectsInvalid(t *testing.T) {
	for _, dialect := range []schema.Dialect{
		schema.DialectMySQL, schema.DialectPostgres, schema.DialectSQLite,
	} {
		for _, bad := range []string{"", "1table", "users; DROP TABLE x", strings.Repeat("a", 129)} {
			_, err := Quote(bad, dialect)
			require.Error(t, err, "dialect %s input %q", dialect, bad)
			assert.True(t, errs.IsValidation(err))
		}
	}
}

// Package ident validates and quotes SQL identifiers (table and column
// names) discovered at runtime.
//
// None of the supported engines allow identifiers in parameter placeholders,
// so any dynamically discovered name must be embedded into SQL text. Quote
// is the only sanctioned path for doing that: it rejects anything outside a
// strict allow-list before wrapping the name in dialect quoting.
package ident

import (
	"fmt"
	"regexp"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/schema"
)

// maxLen matches the identifier length limit shared by all three engines'
// practical configurations.
const maxLen = 128

var pattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Valid reports whether name is a safe SQL identifier: starts with a letter
// or underscore, contains only letters, digits, and underscores, and is at
// most 128 characters.
func Valid(name string) bool {
	if name == "" || len(name) > maxLen {
		return false
	}
	return pattern.MatchString(name)
}

// Quote validates name and wraps it in the dialect's identifier quoting:
// backticks for MySQL and SQLite, double quotes for Postgres. Returns a
// validation error when name fails the allow-list.
func Quote(name string, dialect schema.Dialect) (string, error) {
	if !Valid(name) {
		return "", errs.New(errs.KindValidation, fmt.Sprintf("invalid identifier: %q", name))
	}

	if dialect == schema.DialectPostgres {
		return `"` + name + `"`, nil
	}
	return "`" + name + "`", nil
}

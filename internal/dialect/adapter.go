// Package dialect implements per-engine schema introspection behind a
// single Adapter interface. Each operation opens a short-lived connection,
// uses it, and closes it before returning; no connection survives a call.
package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/ident"
	"github.com/mkoline/schemascope/internal/schema"
)

// ConnectResult is the outcome of a connection test. Message carries the
// failure reason (truncated, with a short hint) and never the raw password.
type ConnectResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
}

// Adapter is the per-engine introspection contract. Implementations are
// stateless; every method receives the connection parameters and manages
// its own connection lifecycle.
type Adapter interface {
	// Dialect returns the engine this adapter speaks to.
	Dialect() schema.Dialect

	// Connect opens a short-lived connection to validate reachability and
	// credentials and to read the engine version. The connection is always
	// closed before returning. Failures are encoded in the result, never
	// panicked or leaked as driver internals.
	Connect(ctx context.Context, cfg schema.Config) ConnectResult

	// FetchSchema crawls the catalog: up to schema.MaxTables base tables,
	// their columns, keys, approximate row counts, and foreign-key edges.
	// Tables whose names fail identifier validation are skipped, not fatal.
	FetchSchema(ctx context.Context, cfg schema.Config) (*schema.Info, error)

	// FetchSampleRows returns up to limit rows of the table, each rendered
	// as a compact " | "-separated line. The table name is re-validated
	// here regardless of what the caller did.
	FetchSampleRows(ctx context.Context, cfg schema.Config, table string, limit int) ([]string, error)
}

// New returns the adapter for the given dialect.
func New(d schema.Dialect, log zerolog.Logger) (Adapter, error) {
	switch d {
	case schema.DialectMySQL:
		return &MySQL{log: log.With().Str("dialect", "mysql").Logger()}, nil
	case schema.DialectPostgres:
		return &Postgres{log: log.With().Str("dialect", "postgres").Logger()}, nil
	case schema.DialectSQLite:
		return &SQLite{log: log.With().Str("dialect", "sqlite").Logger()}, nil
	default:
		return nil, errs.New(errs.KindValidation, fmt.Sprintf("unsupported dialect: %q", d))
	}
}

// Output limits for externally surfaced diagnostics.
const (
	rawErrorLimit = 80  // raw driver message, before the hint
	messageLimit  = 100 // full connect message
	valueLimit    = 20  // sample row cell width
)

// specialChars is the fixed set checked when diagnosing password quoting
// issues. The password itself is never logged.
const specialChars = "!@#$%^&*()"

// passwordTraits returns the password length and whether it contains any
// character from the special set.
func passwordTraits(pw string) (int, bool) {
	return len(pw), strings.ContainsAny(pw, specialChars)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// connectFailure builds a failed ConnectResult from a driver error and an
// optional classification hint. The raw message is truncated before the
// hint is appended, and the whole message is capped again after.
func connectFailure(err error, hint string) ConnectResult {
	msg := truncate(err.Error(), rawErrorLimit) + hint
	return ConnectResult{Success: false, Message: truncate(msg, messageLimit)}
}

// filterTables applies the table cap and the identifier allow-list to a raw
// catalog listing. Capping happens first, so a crawl that discovers 60
// tables inspects exactly the first 50 in discovery order. Invalid names
// inside the cap are skipped with a warning and never reach a query.
func filterTables(names []string, log zerolog.Logger) []string {
	if len(names) > schema.MaxTables {
		names = names[:schema.MaxTables]
	}

	kept := names[:0:len(names)]
	for _, name := range names {
		if !ident.Valid(name) {
			log.Warn().Str("table", name).Msg("skipping table with invalid name")
			continue
		}
		kept = append(kept, name)
	}
	return kept
}

// countQuery and sampleQuery take an already-quoted identifier. The LIMIT
// value is a fixed constant chosen by the caller, never user input.
func countQuery(quoted string) string {
	return "SELECT COUNT(*) FROM " + quoted
}

func sampleQuery(quoted string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, limit)
}

// formatValue renders a single cell for sample output: NULL literally,
// everything else stringified and truncated to the cell width.
func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		return truncate(string(t), valueLimit)
	case time.Time:
		return truncate(t.Format(time.RFC3339), valueLimit)
	default:
		return truncate(fmt.Sprintf("%v", t), valueLimit)
	}
}

// renderSample formats a result set as a header line, a dash rule, and one
// line per row.
func renderSample(cols []string, rows [][]any) []string {
	if len(rows) == 0 {
		return []string{"(no rows)"}
	}

	header := strings.Join(cols, " | ")
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, header, strings.Repeat("-", len(header)))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return lines
}

// Package schema defines the value types shared by all schemascope
// subsystems: connection parameters and the introspected structure of a
// database. The types here do no I/O.
package schema

import "time"

// Dialect identifies the database engine.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Valid reports whether d is one of the supported engines.
func (d Dialect) Valid() bool {
	switch d {
	case DialectMySQL, DialectPostgres, DialectSQLite:
		return true
	}
	return false
}

// Resource limits applied uniformly across dialects.
const (
	// MaxTables caps table enumeration per schema crawl. Excess tables
	// are dropped, never queried.
	MaxTables = 50

	// SampleRows is the fixed LIMIT used when fetching sample data.
	SampleRows = 5

	// DefaultTTL is the schema cache validity window.
	DefaultTTL = 300 * time.Second

	// ConnectTimeout bounds every connection attempt.
	ConnectTimeout = 10 * time.Second
)

// Config holds the connection parameters for one database. It lives only
// in memory for the lifetime of an inspector and is never persisted.
type Config struct {
	Host     string  `json:"host" yaml:"host"`
	Port     int     `json:"port" yaml:"port"`
	User     string  `json:"user" yaml:"user"`
	Password string  `json:"-" yaml:"password"`
	Database string  `json:"database" yaml:"database"`
	Dialect  Dialect `json:"dialect" yaml:"dialect"`
}

// KeyClass is the catalog's key classification for a column.
type KeyClass string

const (
	KeyNone    KeyClass = ""
	KeyPrimary KeyClass = "PRI"
	KeyUnique  KeyClass = "UNI"
	KeyMulti   KeyClass = "MUL"
)

// ColumnInfo describes a single column. Type and Default are opaque
// dialect-native strings kept verbatim for display fidelity.
type ColumnInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Nullable bool     `json:"nullable"`
	Key      KeyClass `json:"key,omitempty"`
	Default  *string  `json:"default,omitempty"`
	Extra    string   `json:"extra,omitempty"`  // "auto_increment", "serial"
	FKRef    string   `json:"fk_ref,omitempty"` // "table.column" when a foreign key
}

// AutoIncrement reports whether the engine assigns this column's value on
// insert (MySQL auto_increment, Postgres sequence-backed default).
func (c *ColumnInfo) AutoIncrement() bool {
	return c.Extra == "auto_increment" || c.Extra == "serial"
}

// TableInfo describes a table: its columns in catalog ordinal order, an
// approximate row count, and its key relationships.
type TableInfo struct {
	Name        string            `json:"name"`
	Columns     []ColumnInfo      `json:"columns"`
	RowCount    int64             `json:"row_count"`
	PrimaryKey  []string          `json:"primary_key,omitempty"`
	ForeignKeys map[string]string `json:"foreign_keys,omitempty"` // column -> "table.column"
}

// Info is the full introspected schema of one database. Tables preserve
// discovery order.
type Info struct {
	Database string       `json:"database"`
	Dialect  Dialect      `json:"dialect"`
	Version  string       `json:"version,omitempty"`
	Tables   []*TableInfo `json:"tables"`
	CachedAt time.Time    `json:"cached_at,omitzero"` // zero = never fetched
}

// Table returns the table with the given name, or nil if absent.
func (s *Info) Table(name string) *TableInfo {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Stale reports whether the cached schema has outlived ttl as of now.
// A schema that was never fetched is always stale.
func (s *Info) Stale(ttl time.Duration, now time.Time) bool {
	if s.CachedAt.IsZero() {
		return true
	}
	return now.Sub(s.CachedAt) >= ttl
}

// CacheAge returns how long ago the schema was fetched, or zero if never.
func (s *Info) CacheAge(now time.Time) time.Duration {
	if s.CachedAt.IsZero() {
		return 0
	}
	return now.Sub(s.CachedAt)
}

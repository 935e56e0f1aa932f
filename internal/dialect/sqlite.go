package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/ident"
	"github.com/mkoline/schemascope/internal/schema"
)

// SQLite implements Adapter for file-backed SQLite databases. Config.Database
// is the file path; host, port, and credentials are ignored. The file is
// always opened read-only.
type SQLite struct {
	log zerolog.Logger
}

func (a *SQLite) Dialect() schema.Dialect { return schema.DialectSQLite }

func (a *SQLite) dsn(cfg schema.Config) string {
	path := cfg.Database
	if !strings.Contains(path, "?") {
		return path + "?mode=ro"
	}
	return path
}

func (a *SQLite) open(cfg schema.Config) (*sql.DB, error) {
	if _, err := os.Stat(cfg.Database); err != nil {
		return nil, errs.New(errs.KindConnection, fmt.Sprintf("SQLite file not found: %s", cfg.Database))
	}

	db, err := sql.Open("sqlite", a.dsn(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "failed to open sqlite file", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (a *SQLite) Connect(ctx context.Context, cfg schema.Config) ConnectResult {
	ctx, cancel := context.WithTimeout(ctx, schema.ConnectTimeout)
	defer cancel()

	db, err := a.open(cfg)
	if err != nil {
		a.log.Error().Err(err).Str("path", cfg.Database).Msg("sqlite connect failed")
		return ConnectResult{Success: false, Message: truncate(err.Error(), messageLimit)}
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return connectFailure(err, "")
	}

	return ConnectResult{
		Success: true,
		Message: truncate("Connected to "+cfg.Database, messageLimit),
		Version: version,
	}
}

func (a *SQLite) FetchSchema(ctx context.Context, cfg schema.Config) (*schema.Info, error) {
	db, err := a.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	info := &schema.Info{Database: cfg.Database, Dialect: schema.DialectSQLite}

	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&info.Version); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to read sqlite version", err)
	}

	names, err := a.listTables(ctx, db)
	if err != nil {
		return nil, err
	}

	for _, name := range filterTables(names, a.log) {
		table, err := a.inspectTable(ctx, db, name)
		if err != nil {
			a.log.Warn().Err(err).Str("table", name).Msg("skipping table after inspect failure")
			continue
		}
		info.Tables = append(info.Tables, table)
	}

	return info, nil
}

// listTables reads user tables from sqlite_master; engine-internal
// sqlite_* tables are excluded.
func (a *SQLite) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	const q = `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Wrap(errs.KindFetch, "failed to scan table name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (a *SQLite) inspectTable(ctx context.Context, db *sql.DB, name string) (*schema.TableInfo, error) {
	quoted, err := ident.Quote(name, schema.DialectSQLite)
	if err != nil {
		return nil, err
	}

	table := &schema.TableInfo{Name: name, ForeignKeys: map[string]string{}}

	// PRAGMA arguments cannot be parameterized; quoted has passed the
	// identifier allow-list.
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to read table info pragma", err)
	}
	for rows.Next() {
		// cid, name, type, notnull, dflt_value, pk
		var (
			cid, notNull, pk int
			colName, typ     string
			def              sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &typ, &notNull, &def, &pk); err != nil {
			rows.Close()
			return nil, errs.Wrap(errs.KindFetch, "failed to scan column", err)
		}

		col := schema.ColumnInfo{
			Name:     colName,
			Type:     typ,
			Nullable: notNull == 0,
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		if pk > 0 {
			col.Key = schema.KeyPrimary
			table.PrimaryKey = append(table.PrimaryKey, col.Name)
		}
		table.Columns = append(table.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "error iterating columns", err)
	}

	if err := db.QueryRowContext(ctx, countQuery(quoted)).Scan(&table.RowCount); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to count rows", err)
	}

	if err := a.joinForeignKeys(ctx, db, quoted, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (a *SQLite) joinForeignKeys(ctx context.Context, db *sql.DB, quoted string, table *schema.TableInfo) error {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoted+")")
	if err != nil {
		return errs.Wrap(errs.KindFetch, "failed to read foreign key pragma", err)
	}
	defer rows.Close()

	for rows.Next() {
		// id, seq, table, from, to, on_update, on_delete, match
		var (
			id, seq                         int
			refTable, from                  string
			to                              sql.NullString
			onUpdate, onDelete, matchClause string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchClause); err != nil {
			return errs.Wrap(errs.KindFetch, "failed to scan foreign key", err)
		}
		// A NULL "to" column means the FK targets the referenced table's PK.
		refCol := to.String
		if refCol == "" {
			refCol = "rowid"
		}
		applyForeignKey(table, from, refTable+"."+refCol)
	}
	return rows.Err()
}

func (a *SQLite) FetchSampleRows(ctx context.Context, cfg schema.Config, table string, limit int) ([]string, error) {
	quoted, err := ident.Quote(table, schema.DialectSQLite)
	if err != nil {
		return nil, err
	}

	db, err := a.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, sampleQuery(quoted, limit))
	if err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to fetch sample rows", err)
	}

	cols, data, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	return renderSample(cols, data), nil
}

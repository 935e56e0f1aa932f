package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/ident"
	"github.com/mkoline/schemascope/internal/schema"
)

// Postgres implements Adapter using jackc/pgx. Only the public schema is
// crawled.
type Postgres struct {
	log zerolog.Logger
}

func (a *Postgres) Dialect() schema.Dialect { return schema.DialectPostgres }

// connString builds a keyword/value conninfo string. Every value is quoted
// so passwords containing spaces, quotes, or backslashes parse correctly.
func (a *Postgres) connString(cfg schema.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s connect_timeout=%d sslmode=prefer",
		pgValue(cfg.Host), cfg.Port, pgValue(cfg.User), pgValue(cfg.Password),
		pgValue(cfg.Database), int(schema.ConnectTimeout.Seconds()),
	)
}

// pgValue quotes a conninfo value per the libpq rules: backslashes and
// single quotes escaped with a backslash, the whole value single-quoted.
func pgValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// open returns a connection scoped to a single operation. Callers must
// Close it on every exit path.
func (a *Postgres) open(ctx context.Context, cfg schema.Config) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, a.connString(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "failed to connect to postgres", err)
	}
	return conn, nil
}

func (a *Postgres) Connect(ctx context.Context, cfg schema.Config) ConnectResult {
	pwLen, pwSpecial := passwordTraits(cfg.Password)
	a.log.Debug().
		Str("user", cfg.User).
		Str("database", cfg.Database).
		Int("pw_len", pwLen).
		Bool("pw_has_special", pwSpecial).
		Msg("testing postgres connection")

	ctx, cancel := context.WithTimeout(ctx, schema.ConnectTimeout)
	defer cancel()

	conn, err := a.open(ctx, cfg)
	if err != nil {
		a.log.Error().Err(err).Str("database", cfg.Database).Msg("postgres connect failed")
		if pwSpecial {
			a.log.Warn().Msg("password contains special characters, check quoting")
		}
		return connectFailure(err, a.connectHint(err, pwSpecial))
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return connectFailure(err, "")
	}

	return ConnectResult{
		Success: true,
		Message: truncate("Connected to "+cfg.Database, messageLimit),
		Version: shortVersion(version),
	}
}

// shortVersion extracts the numeric version from the full banner, e.g.
// "PostgreSQL 16.2 on x86_64..." -> "16.2".
func shortVersion(banner string) string {
	fields := strings.Fields(banner)
	if len(fields) >= 2 {
		return fields[1]
	}
	return banner
}

func (a *Postgres) connectHint(err error, pwSpecial bool) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password authentication failed"),
		strings.Contains(msg, "role") && strings.Contains(msg, "does not exist"):
		if pwSpecial {
			return " (password has special chars)"
		}
		return " (check credentials)"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"):
		return " (check host/port)"
	default:
		return ""
	}
}

func (a *Postgres) FetchSchema(ctx context.Context, cfg schema.Config) (*schema.Info, error) {
	conn, err := a.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close(context.WithoutCancel(ctx))

	info := &schema.Info{Database: cfg.Database, Dialect: schema.DialectPostgres}

	var banner string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&banner); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to read server version", err)
	}
	info.Version = shortVersion(banner)

	names, err := a.listTables(ctx, conn)
	if err != nil {
		return nil, err
	}

	for _, name := range filterTables(names, a.log) {
		table, err := a.inspectTable(ctx, conn, name)
		if err != nil {
			a.log.Warn().Err(err).Str("table", name).Msg("skipping table after inspect failure")
			continue
		}
		info.Tables = append(info.Tables, table)
	}

	return info, nil
}

func (a *Postgres) listTables(ctx context.Context, conn *pgx.Conn) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := conn.Query(ctx, q)
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

func (a *Postgres) inspectTable(ctx context.Context, conn *pgx.Conn, name string) (*schema.TableInfo, error) {
	quoted, err := ident.Quote(name, schema.DialectPostgres)
	if err != nil {
		return nil, err
	}

	table := &schema.TableInfo{Name: name, ForeignKeys: map[string]string{}}

	if err := a.fetchColumns(ctx, conn, name, table); err != nil {
		return nil, err
	}
	if err := a.fetchPrimaryKey(ctx, conn, quoted, table); err != nil {
		return nil, err
	}

	if err := conn.QueryRow(ctx, countQuery(quoted)).Scan(&table.RowCount); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to count rows", err)
	}

	if err := a.joinForeignKeys(ctx, conn, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (a *Postgres) fetchColumns(ctx context.Context, conn *pgx.Conn, name string, table *schema.TableInfo) error {
	const q = `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name   = $1
		ORDER BY ordinal_position`

	rows, err := conn.Query(ctx, q, name)
	if err != nil {
		return errs.Wrap(errs.KindFetch, "failed to fetch columns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			colName, typ, nullable string
			def                    *string
		)
		if err := rows.Scan(&colName, &typ, &nullable, &def); err != nil {
			return errs.Wrap(errs.KindFetch, "failed to scan column", err)
		}

		col := schema.ColumnInfo{
			Name:     colName,
			Type:     typ,
			Nullable: nullable == "YES",
			Default:  def,
		}
		// Sequence-backed defaults are Postgres' auto-increment signal.
		if def != nil && strings.Contains(*def, "nextval") {
			col.Extra = "serial"
		}
		table.Columns = append(table.Columns, col)
	}
	return rows.Err()
}

// fetchPrimaryKey resolves the PK column set through pg_index/pg_attribute.
// The validated, quoted table name is passed as a text parameter and cast
// to regclass server-side.
func (a *Postgres) fetchPrimaryKey(ctx context.Context, conn *pgx.Conn, quoted string, table *schema.TableInfo) error {
	const q = `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass
		  AND i.indisprimary`

	rows, err := conn.Query(ctx, q, quoted)
	if err != nil {
		return errs.Wrap(errs.KindFetch, "failed to fetch primary key", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return errs.Wrap(errs.KindFetch, "failed to scan primary key column", err)
		}
		table.PrimaryKey = append(table.PrimaryKey, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range table.Columns {
		for _, pk := range table.PrimaryKey {
			if table.Columns[i].Name == pk {
				table.Columns[i].Key = schema.KeyPrimary
			}
		}
	}
	return nil
}

func (a *Postgres) joinForeignKeys(ctx context.Context, conn *pgx.Conn, table *schema.TableInfo) error {
	const q = `
		SELECT kcu.column_name,
		       ccu.table_name  AS ref_table,
		       ccu.column_name AS ref_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema    = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema    = 'public'
		  AND tc.table_name      = $1`

	rows, err := conn.Query(ctx, q, table.Name)
	if err != nil {
		return errs.Wrap(errs.KindFetch, "failed to fetch foreign keys", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col, refTable, refCol string
		if err := rows.Scan(&col, &refTable, &refCol); err != nil {
			return errs.Wrap(errs.KindFetch, "failed to scan foreign key", err)
		}
		applyForeignKey(table, col, refTable+"."+refCol)
	}
	return rows.Err()
}

func (a *Postgres) FetchSampleRows(ctx context.Context, cfg schema.Config, table string, limit int) ([]string, error) {
	quoted, err := ident.Quote(table, schema.DialectPostgres)
	if err != nil {
		return nil, err
	}

	conn, err := a.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close(context.WithoutCancel(ctx))

	rows, err := conn.Query(ctx, sampleQuery(quoted, limit))
	if err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to fetch sample rows", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errs.Wrap(errs.KindFetch, "failed to read row values", err)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "error during row iteration", err)
	}

	return renderSample(cols, data), nil
}

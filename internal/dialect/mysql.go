package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/ident"
	"github.com/mkoline/schemascope/internal/schema"
)

// MySQL implements Adapter using database/sql with go-sql-driver/mysql.
type MySQL struct {
	log zerolog.Logger
}

func (a *MySQL) Dialect() schema.Dialect { return schema.DialectMySQL }

// dsn builds the driver DSN through mysql.Config so credentials with
// special characters survive intact.
func (a *MySQL) dsn(cfg schema.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.Timeout = schema.ConnectTimeout
	mc.ParseTime = true
	return mc.FormatDSN()
}

// open returns a connection handle scoped to a single operation. Callers
// must Close it on every exit path.
func (a *MySQL) open(cfg schema.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", a.dsn(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "failed to open mysql connection", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (a *MySQL) Connect(ctx context.Context, cfg schema.Config) ConnectResult {
	pwLen, pwSpecial := passwordTraits(cfg.Password)
	a.log.Debug().
		Str("user", cfg.User).
		Str("database", cfg.Database).
		Int("pw_len", pwLen).
		Bool("pw_has_special", pwSpecial).
		Msg("testing mysql connection")

	ctx, cancel := context.WithTimeout(ctx, schema.ConnectTimeout)
	defer cancel()

	db, err := a.open(cfg)
	if err != nil {
		return connectFailure(err, "")
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		a.log.Error().Err(err).Str("database", cfg.Database).Msg("mysql connect failed")
		if pwSpecial {
			a.log.Warn().Msg("password contains special characters, check quoting")
		}
		return connectFailure(err, a.connectHint(err, pwSpecial))
	}

	return ConnectResult{
		Success: true,
		Message: truncate("Connected to "+cfg.Database, messageLimit),
		Version: version,
	}
}

// connectHint classifies common MySQL connect failures into a short
// actionable suffix.
func (a *MySQL) connectHint(err error, pwSpecial bool) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Access denied"):
		if pwSpecial {
			return " (password has special chars - try escaping or changing)"
		}
		return " (check credentials)"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "i/o timeout"):
		return " (check host/port)"
	default:
		return ""
	}
}

func (a *MySQL) FetchSchema(ctx context.Context, cfg schema.Config) (*schema.Info, error) {
	db, err := a.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	info := &schema.Info{Database: cfg.Database, Dialect: schema.DialectMySQL}

	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&info.Version); err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to read server version", err)
	}

	names, err := a.listTables(ctx, db)
	if err != nil {
		return nil, err
	}

	for _, name := range filterTables(names, a.log) {
		table, err := a.inspectTable(ctx, db, cfg, name)
		if err != nil {
			a.log.Warn().Err(err).Str("table", name).Msg("skipping table after inspect failure")
			continue
		}
		info.Tables = append(info.Tables, table)
	}

	return info, nil
}

func (a *MySQL) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SHOW TABLES")
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

// inspectTable reads columns, keys, the approximate row count, and foreign
// keys for one validated table.
func (a *MySQL) inspectTable(ctx context.Context, db *sql.DB, cfg schema.Config, name string) (*schema.TableInfo, error) {
	quoted, err := ident.Quote(name, schema.DialectMySQL)
	if err != nil {
		return nil, err
	}

	table := &schema.TableInfo{Name: name, ForeignKeys: map[string]string{}}

	// DESCRIBE yields Field, Type, Null, Key, Default, Extra in catalog order.
	rows, err := db.QueryContext(ctx, "DESCRIBE "+quoted)
	if err != nil {
		return nil, errs.Wrap(errs.KindFetch, "failed to describe table", err)
	}
	for rows.Next() {
		var (
			field, typ, null string
			key, extra       sql.NullString
			def              sql.NullString
		)
		if err := rows.Scan(&field, &typ, &null, &key, &def, &extra); err != nil {
			rows.Close()
			return nil, errs.Wrap(errs.KindFetch, "failed to scan column", err)
		}

		col := schema.ColumnInfo{
			Name:     field,
			Type:     typ,
			Nullable: null == "YES",
			Key:      schema.KeyClass(key.String),
			Extra:    extra.String,
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		if col.Key == schema.KeyPrimary {
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

	if err := a.joinForeignKeys(ctx, db, cfg.Database, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (a *MySQL) joinForeignKeys(ctx context.Context, db *sql.DB, dbName string, table *schema.TableInfo) error {
	const q = `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		  AND table_name   = ?
		  AND referenced_table_name IS NOT NULL`

	rows, err := db.QueryContext(ctx, q, dbName, table.Name)
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

func (a *MySQL) FetchSampleRows(ctx context.Context, cfg schema.Config, table string, limit int) ([]string, error) {
	quoted, err := ident.Quote(table, schema.DialectMySQL)
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

// applyForeignKey records an FK edge on the table and on the owning column.
func applyForeignKey(table *schema.TableInfo, col, ref string) {
	table.ForeignKeys[col] = ref
	for i := range table.Columns {
		if table.Columns[i].Name == col {
			table.Columns[i].FKRef = ref
		}
	}
}

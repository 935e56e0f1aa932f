package dialect

import (
	"database/sql"

	"github.com/mkoline/schemascope/internal/errs"
)

// scanAll drains a database/sql result set into column names and row value
// slices. The Rows are always closed, even on error.
func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindFetch, "failed to read column names", err)
	}

	var out [][]any
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errs.Wrap(errs.KindFetch, "failed to scan row", err)
		}
		out = append(out, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errs.Wrap(errs.KindFetch, "error during row iteration", err)
	}
	return cols, out, nil
}

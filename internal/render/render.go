// Package render turns introspected schemas into compact, token-minimal
// text for a consumer that generates SQL. Output is deterministic: tables
// in discovery order, columns in catalog ordinal order, flags in a fixed
// order.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkoline/schemascope/internal/schema"
)

// NoSchema is returned when there is nothing to render.
const NoSchema = "No schema loaded."

// Schema renders the whole database as a compact tree. A nil info yields
// the NoSchema sentinel, never a panic.
func Schema(info *schema.Info, ttl time.Duration, now time.Time) string {
	if info == nil {
		return NoSchema
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s (%s %s)\n\n", info.Database, info.Dialect, info.Version)

	for _, t := range info.Tables {
		fmt.Fprintf(&b, "%s (%d cols, ~%d rows)\n", t.Name, len(t.Columns), t.RowCount)

		for i := range t.Columns {
			prefix := "├─"
			if i == len(t.Columns)-1 {
				prefix = "└─"
			}
			col := &t.Columns[i]
			fmt.Fprintf(&b, "%s %s: %s%s\n", prefix, col.Name, col.Type, flagString(col))
		}
		b.WriteString("\n")
	}

	if age := info.CacheAge(now); age > 0 {
		fmt.Fprintf(&b, "(cache: %ds old, ttl: %ds)\n", int(age.Seconds()), int(ttl.Seconds()))
	}

	return b.String()
}

// TableDetails renders one table as a markdown-like block with columns,
// foreign keys, and optional sample rows.
func TableDetails(t *schema.TableInfo, sample []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", t.Name)
	fmt.Fprintf(&b, "Rows: ~%d\n\n", t.RowCount)
	b.WriteString("### Columns\n")

	for i := range t.Columns {
		col := &t.Columns[i]
		fmt.Fprintf(&b, "- %s: %s%s\n", col.Name, col.Type, flagString(col))
	}

	if len(t.ForeignKeys) > 0 {
		b.WriteString("\n### Foreign Keys\n")
		// Walk columns rather than the map so output order is stable.
		for i := range t.Columns {
			col := &t.Columns[i]
			if ref, ok := t.ForeignKeys[col.Name]; ok {
				fmt.Fprintf(&b, "- %s → %s\n", col.Name, ref)
			}
		}
	}

	// A sample without data lines (empty, or just the placeholder an
	// adapter emits for an empty table) gets no section at all.
	if n := sampleRowCount(sample); n > 0 {
		fmt.Fprintf(&b, "\n### Sample Data (%d rows)\n", n)
		b.WriteString(strings.Join(sample, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}

// flagString composes a column's flags in the fixed order
// PK, AUTO, UNIQUE, FK→ref, NOT NULL, prefixed with a space when non-empty.
func flagString(col *schema.ColumnInfo) string {
	var flags []string
	if col.Key == schema.KeyPrimary {
		flags = append(flags, "PK")
	}
	if col.AutoIncrement() {
		flags = append(flags, "AUTO")
	}
	if col.Key == schema.KeyUnique {
		flags = append(flags, "UNIQUE")
	}
	if col.FKRef != "" {
		flags = append(flags, "FK→"+col.FKRef)
	}
	if !col.Nullable {
		flags = append(flags, "NOT NULL")
	}

	if len(flags) == 0 {
		return ""
	}
	return " " + strings.Join(flags, " ")
}

// sampleRowCount is the number of data lines in a rendered sample: the
// header and dash rule are not rows.
func sampleRowCount(sample []string) int {
	if len(sample) <= 2 {
		return 0
	}
	return len(sample) - 2
}

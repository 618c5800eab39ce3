package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
)

type ForeignKey struct {
	Name            string `db:"name"`
	Table           string `db:"table_name"`
	ReferencedTable string `db:"referenced_table"`
	Definition      string `db:"definition"`
}

// cascades that upload and account deletion rely on, child -> parent
var requiredCascades = [][2]string{
	{"contacts", "uploads"},
	{"uploads", "users"},
	{"refresh_tokens", "users"},
}

// ForeignKeys lists the foreign key constraints of a postgres database.
func ForeignKeys(ctx context.Context, db *sqlx.DB) ([]ForeignKey, error) {
	var out []ForeignKey
	err := db.SelectContext(ctx, &out, `
		SELECT con.conname AS name, rel.relname AS table_name, confrel.relname AS referenced_table,
		       pg_get_constraintdef(con.oid) AS definition
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class confrel ON confrel.oid = con.confrelid
		WHERE con.contype = 'f'
		ORDER BY rel.relname, con.conname`)
	if err != nil {
		return nil, fmt.Errorf("query constraints: %w", err)
	}
	return out, nil
}

// MissingCascades returns the required child -> parent edges that have no
// ON DELETE CASCADE constraint.
func MissingCascades(fks []ForeignKey) []string {
	var missing []string
	for _, edge := range requiredCascades {
		found := false
		for _, fk := range fks {
			if fk.Table == edge[0] && fk.ReferencedTable == edge[1] && strings.Contains(strings.ToUpper(fk.Definition), "ON DELETE CASCADE") {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, edge[0]+" -> "+edge[1])
		}
	}
	return missing
}

func PrintForeignKeys(w io.Writer, fks []ForeignKey) {
	fmt.Fprintln(w, "Foreign keys:")
	for _, fk := range fks {
		fmt.Fprintf(w, "- %s: %s -> %s\n    def: %s\n", fk.Name, fk.Table, fk.ReferencedTable, fk.Definition)
	}
	for _, m := range MissingCascades(fks) {
		fmt.Fprintf(w, "WARNING: no ON DELETE CASCADE for %s\n", m)
	}
}

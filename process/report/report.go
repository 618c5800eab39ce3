// Package report inspects uploads whose imported total no longer matches the
// number of contacts they hold, and per-user import totals.
package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
)

// Drift is an upload whose contacts were deleted after import.
type Drift struct {
	UploadID         uint      `db:"upload_id"`
	OriginalFileName string    `db:"original_file_name"`
	UploadedBy       string    `db:"email"`
	UploadedAt       time.Time `db:"uploaded_at"`
	TotalRecords     int       `db:"total_records"`
	ActualRecords    int       `db:"actual_records"`
}

// UserTotals aggregates the uploads of one account.
type UserTotals struct {
	Email    string `db:"email"`
	Uploads  int    `db:"uploads"`
	Imported int    `db:"imported"`
	Contacts int    `db:"contacts"`
}

const driftQuery = `
SELECT u.id AS upload_id, u.original_file_name, COALESCE(us.email, '') AS email, u.uploaded_at,
       u.total_records, COUNT(c.id) AS actual_records
FROM uploads u
LEFT JOIN users us ON us.id = u.uploaded_by_id
LEFT JOIN contacts c ON c.upload_id = u.id
GROUP BY u.id, u.original_file_name, us.email, u.uploaded_at, u.total_records
HAVING COUNT(c.id) <> u.total_records
ORDER BY u.id`

const totalsQuery = `
SELECT us.email,
       COUNT(u.id) AS uploads,
       COALESCE(SUM(u.total_records), 0) AS imported,
       COALESCE(SUM(cc.n), 0) AS contacts
FROM users us
LEFT JOIN uploads u ON u.uploaded_by_id = us.id
LEFT JOIN (SELECT upload_id, COUNT(*) AS n FROM contacts GROUP BY upload_id) cc ON cc.upload_id = u.id
GROUP BY us.email
ORDER BY us.email`

func FindDrift(ctx context.Context, db *sqlx.DB) ([]Drift, error) {
	var out []Drift
	if err := db.SelectContext(ctx, &out, driftQuery); err != nil {
		return nil, fmt.Errorf("drift query: %w", err)
	}
	return out, nil
}

func Totals(ctx context.Context, db *sqlx.DB) ([]UserTotals, error) {
	var out []UserTotals
	if err := db.SelectContext(ctx, &out, totalsQuery); err != nil {
		return nil, fmt.Errorf("totals query: %w", err)
	}
	return out, nil
}

// FixDrift sets total_records to the current contact count of the given uploads.
func FixDrift(ctx context.Context, db *sqlx.DB, uploadIDs []uint) (int64, error) {
	if len(uploadIDs) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`UPDATE uploads SET total_records = (SELECT COUNT(*) FROM contacts c WHERE c.upload_id = uploads.id) WHERE id IN (?)`, uploadIDs)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("fix drift: %w", err)
	}
	return res.RowsAffected()
}

func PrintDrift(w io.Writer, drifts []Drift) {
	if len(drifts) == 0 {
		fmt.Fprintln(w, "no drifted uploads")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tUPLOADED BY\tUPLOADED AT\tIMPORTED\tCURRENT")
	for _, d := range drifts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", d.UploadID, d.OriginalFileName, d.UploadedBy, d.UploadedAt.Format(time.RFC3339), d.TotalRecords, d.ActualRecords)
	}
	tw.Flush()
}

func PrintTotals(w io.Writer, totals []UserTotals) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tUPLOADS\tIMPORTED\tCONTACTS")
	for _, u := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", u.Email, u.Uploads, u.Imported, u.Contacts)
	}
	tw.Flush()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gradtrack-engine/internal/domain"
)

const upsertSQL = `
INSERT INTO applicants
  (detail_url, program_raw, degree, origin_classification, status_type,
   status_date, date_added, term, comments, gpa, gre_quant, gre_verbal, gre_writing)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(detail_url) DO UPDATE SET
  program_raw = CASE WHEN excluded.program_raw != '' THEN excluded.program_raw ELSE program_raw END,
  degree = COALESCE(excluded.degree, degree),
  origin_classification = COALESCE(excluded.origin_classification, origin_classification),
  status_type = COALESCE(excluded.status_type, status_type),
  status_date = COALESCE(excluded.status_date, status_date),
  date_added = COALESCE(excluded.date_added, date_added),
  term = COALESCE(excluded.term, term),
  comments = COALESCE(excluded.comments, comments),
  gpa = COALESCE(excluded.gpa, gpa),
  gre_quant = COALESCE(excluded.gre_quant, gre_quant),
  gre_verbal = COALESCE(excluded.gre_verbal, gre_verbal),
  gre_writing = COALESCE(excluded.gre_writing, gre_writing);`

// Loader performs idempotent batch upserts keyed by detail_url. Fields the
// incoming record does not supply keep their stored values.
type Loader struct {
	DB *sql.DB
}

// Load commits one batch all-or-nothing and reports how many rows were newly
// inserted versus already present (and merely updated). A cancelled context
// or storage failure rolls the whole batch back.
func (l Loader) Load(ctx context.Context, recs []domain.Record) (inserted, skipped int, err error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin load tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range recs {
		if rec.DetailURL == "" {
			// no identity key, nothing to upsert against
			skipped++
			continue
		}

		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM applicants WHERE detail_url = ?;`, rec.DetailURL,
		).Scan(&exists)
		if err != nil {
			return 0, 0, fmt.Errorf("precheck %s: %w", rec.DetailURL, err)
		}

		_, err = tx.ExecContext(ctx, upsertSQL,
			rec.DetailURL, rec.ProgramRaw, rec.Degree, rec.Origin, rec.StatusType,
			isoDate(rec.StatusDate), isoDate(rec.AddedOn), rec.Term, rec.Comments,
			rec.GPA, rec.GREQuant, rec.GREVerbal, rec.GREWriting,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("upsert %s: %w", rec.DetailURL, err)
		}

		if exists > 0 {
			skipped++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit load tx: %w", err)
	}
	return inserted, skipped, nil
}

func isoDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

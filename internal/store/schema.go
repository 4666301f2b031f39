package store

import "database/sql"

// Migrate brings the database to the current schema version. The wide
// applicants table is keyed by detail_url; every analytical column is
// nullable so a malformed field never rejects a row.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS applicants (
  detail_url TEXT PRIMARY KEY,
  program_raw TEXT NOT NULL DEFAULT '',
  degree TEXT,
  origin_classification TEXT,
  status_type TEXT,
  status_date TEXT,
  date_added TEXT,
  term TEXT,
  comments TEXT,
  gpa REAL,
  gre_quant REAL,
  gre_verbal REAL,
  gre_writing REAL,
  llm_generated_program TEXT,
  llm_generated_university TEXT
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_applicants_status_date
ON applicants(status_date);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_applicants_date_added
ON applicants(date_added);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

package store

import (
	"database/sql"
	"time"
)

// IngestRun records one import of production rows for auditing.
type IngestRun struct {
	ID              int64
	BatchID         string
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	SourceID        int64
	Kind            string // "csv", "ftp", "simulated"
	Origin          sql.NullString
	OutputPath      sql.NullString
	RecordsTotal    sql.NullInt64
	RecordsAccepted sql.NullInt64
	Success         bool
	ErrorMessage    sql.NullString
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(batchID string, sourceID int64, kind string, origin *string) (*IngestRun, error) {
	run := &IngestRun{
		BatchID:   batchID,
		StartedAt: time.Now().UTC(),
		SourceID:  sourceID,
		Kind:      kind,
	}
	if origin != nil {
		run.Origin = sql.NullString{String: *origin, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (batch_id, started_at, source_id, kind, origin, success)
		VALUES (?, ?, ?, ?, ?, FALSE)
	`, run.BatchID, run.StartedAt, run.SourceID, run.Kind, run.Origin)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			output_path = ?,
			records_total = ?,
			records_accepted = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.OutputPath, run.RecordsTotal, run.RecordsAccepted,
		run.Success, run.ErrorMessage, run.ID)
	return err
}

// HasSuccessfulImport reports whether origin was already imported for the
// source by a successful run of the given kind.
func (s *Store) HasSuccessfulImport(sourceID int64, kind, origin string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM ingest_runs
		WHERE source_id = ? AND kind = ? AND origin = ? AND success = TRUE
	`, sourceID, kind, origin).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetIngestRuns returns the most recent runs for a source, newest first.
func (s *Store) GetIngestRuns(sourceID int64, limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, batch_id, started_at, finished_at, source_id, kind, origin, output_path,
		       records_total, records_accepted, success, error_message
		FROM ingest_runs
		WHERE source_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.BatchID, &r.StartedAt, &r.FinishedAt, &r.SourceID, &r.Kind,
			&r.Origin, &r.OutputPath, &r.RecordsTotal, &r.RecordsAccepted, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

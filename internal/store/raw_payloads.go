package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// RawPayload is a stored weather provider response.
type RawPayload struct {
	ID                int64
	FetchedAt         time.Time
	Provider          string
	Endpoint          string
	SourceID          sql.NullInt64
	Location          sql.NullString
	PayloadCompressed []byte
	PayloadHash       string
	SchemaVersion     int
}

// StoreRawPayload stores a gzip-compressed provider response. Identical
// payloads are stored once; a duplicate returns 0.
func (s *Store) StoreRawPayload(provider, endpoint string, sourceID int64, location string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	var sourceIDNull sql.NullInt64
	if sourceID > 0 {
		sourceIDNull = sql.NullInt64{Int64: sourceID, Valid: true}
	}
	var locationNull sql.NullString
	if location != "" {
		locationNull = sql.NullString{String: location, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads
		(fetched_at, provider, endpoint, source_id, location, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(payload_hash) DO NOTHING
	`, time.Now().UTC(), provider, endpoint, sourceIDNull, locationNull, buf.Bytes(), hashHex)
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// getRawPayload retrieves and decompresses a stored payload by ID.
func (s *Store) getRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// CountRawPayloads returns the number of stored payloads for a provider.
func (s *Store) CountRawPayloads(provider string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_payloads WHERE provider = ?`, provider).Scan(&n)
	return n, err
}

// CleanupOldRawPayloads deletes payloads older than retentionDays and returns
// the number removed.
func (s *Store) CleanupOldRawPayloads(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

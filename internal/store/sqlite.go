package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lox/solarforecast/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the SQLite database at path with WAL
// journaling, and runs migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	s := New(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSource inserts src when its ID is zero, otherwise updates the existing
// row. The returned source carries the assigned ID.
func (s *Store) SaveSource(src models.EnergySource) (models.EnergySource, error) {
	if src.ID == 0 {
		result, err := s.db.Exec(`
			INSERT INTO sources (name, location, nominal_capacity, brand, model, install_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`, src.Name, src.Location, src.NominalCapacity, src.Brand, src.Model, src.InstallDate)
		if err != nil {
			return src, fmt.Errorf("insert source: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return src, err
		}
		src.ID = id
		return src, nil
	}

	result, err := s.db.Exec(`
		UPDATE sources SET
			name = ?,
			location = ?,
			nominal_capacity = ?,
			brand = ?,
			model = ?,
			install_date = ?
		WHERE id = ?
	`, src.Name, src.Location, src.NominalCapacity, src.Brand, src.Model, src.InstallDate, src.ID)
	if err != nil {
		return src, fmt.Errorf("update source %d: %w", src.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return src, err
	}
	if n == 0 {
		return src, fmt.Errorf("update source %d: %w", src.ID, sql.ErrNoRows)
	}
	return src, nil
}

// GetSource returns nil, nil when no source has the given id.
func (s *Store) GetSource(id int64) (*models.EnergySource, error) {
	row := s.db.QueryRow(`
		SELECT id, name, COALESCE(location, ''), COALESCE(nominal_capacity, ''),
		       COALESCE(brand, ''), COALESCE(model, ''), COALESCE(install_date, '')
		FROM sources WHERE id = ?
	`, id)

	var src models.EnergySource
	err := row.Scan(&src.ID, &src.Name, &src.Location, &src.NominalCapacity, &src.Brand, &src.Model, &src.InstallDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *Store) ListSources() ([]models.EnergySource, error) {
	rows, err := s.db.Query(`
		SELECT id, name, COALESCE(location, ''), COALESCE(nominal_capacity, ''),
		       COALESCE(brand, ''), COALESCE(model, ''), COALESCE(install_date, '')
		FROM sources ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []models.EnergySource
	for rows.Next() {
		var src models.EnergySource
		if err := rows.Scan(&src.ID, &src.Name, &src.Location, &src.NominalCapacity, &src.Brand, &src.Model, &src.InstallDate); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// DeleteSource reports whether a row was removed.
func (s *Store) DeleteSource(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

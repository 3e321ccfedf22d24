package ingest

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lox/solarforecast/internal/metrics"
	"github.com/lox/solarforecast/internal/store"
)

const (
	KindCSV       = "csv"
	KindFTP       = "ftp"
	KindSimulated = "simulated"
)

// ErrNoValidRows is returned when an import contains no usable row. Nothing
// is written in that case.
var ErrNoValidRows = errors.New("no valid production rows")

// RunRecorder audits imports. *store.Store implements it.
type RunRecorder interface {
	StartIngestRun(batchID string, sourceID int64, kind string, origin *string) (*store.IngestRun, error)
	CompleteIngestRun(run *store.IngestRun) error
}

type ImportResult struct {
	BatchID  string `json:"batch_id"`
	SourceID int64  `json:"source_id"`
	Path     string `json:"path"`
	Total    int    `json:"total"`
	Accepted int    `json:"accepted"`
}

// Importer normalizes raw production exports and writes them as origin files.
type Importer struct {
	layout     Layout
	normalizer *Normalizer
	runs       RunRecorder
	now        func() time.Time
}

// NewImporter creates an importer. runs may be nil to skip auditing.
func NewImporter(layout Layout, normalizer *Normalizer, runs RunRecorder) *Importer {
	return &Importer{
		layout:     layout,
		normalizer: normalizer,
		runs:       runs,
		now:        time.Now,
	}
}

// Import reads a CSV export from r and stores its valid rows as a new
// processed origin for the source.
func (i *Importer) Import(sourceID int64, r io.Reader, kind, origin string) (*ImportResult, error) {
	run := i.startRun(sourceID, kind, origin)
	result := &ImportResult{BatchID: run.BatchID, SourceID: sourceID}

	err := i.importTable(result, r, kind)
	i.completeRun(run, result, err)
	if err != nil {
		return result, err
	}
	log.Printf("import: source %d: accepted %d of %d rows from %s into %s", sourceID, result.Accepted, result.Total, origin, result.Path)
	return result, nil
}

// ImportFile imports a CSV file from the local filesystem.
func (i *Importer) ImportFile(sourceID int64, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return i.Import(sourceID, f, KindCSV, path)
}

func (i *Importer) importTable(result *ImportResult, r io.Reader, kind string) error {
	table, err := ReadTable(r)
	if err != nil {
		return err
	}

	norm := i.normalizer.Normalize(result.SourceID, table)
	result.Total = norm.Total
	result.Accepted = norm.Accepted
	metrics.ImportRows.WithLabelValues(kind, "accepted").Add(float64(norm.Accepted))
	metrics.ImportRows.WithLabelValues(kind, "dropped").Add(float64(norm.Dropped()))

	if norm.Accepted == 0 {
		return fmt.Errorf("import source %d: %w (0 of %d rows)", result.SourceID, ErrNoValidRows, norm.Total)
	}

	path, err := i.nextProcessedPath(result.SourceID)
	if err != nil {
		return err
	}
	if err := WriteSamplesFile(path, norm.Samples); err != nil {
		return fmt.Errorf("write processed file: %w", err)
	}
	result.Path = path
	return nil
}

// nextProcessedPath picks an unused processed file name. Imports within the
// same second get a numeric suffix so the earlier file is never replaced.
func (i *Importer) nextProcessedPath(sourceID int64) (string, error) {
	base := i.layout.ProcessedPath(sourceID, i.now())
	path := base
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("stat processed file: %w", err)
		}
		if n > 99 {
			return "", fmt.Errorf("too many imports for source %d within one second", sourceID)
		}
		path = fmt.Sprintf("%s-%d.csv", base[:len(base)-len(".csv")], n)
	}
}

func (i *Importer) startRun(sourceID int64, kind, origin string) *store.IngestRun {
	batchID := uuid.NewString()
	if i.runs == nil {
		return &store.IngestRun{BatchID: batchID}
	}
	var originPtr *string
	if origin != "" {
		originPtr = &origin
	}
	run, err := i.runs.StartIngestRun(batchID, sourceID, kind, originPtr)
	if err != nil {
		log.Printf("import: start ingest run: %v", err)
		return &store.IngestRun{BatchID: batchID}
	}
	return run
}

func (i *Importer) completeRun(run *store.IngestRun, result *ImportResult, err error) {
	if i.runs == nil || run.ID == 0 {
		return
	}
	run.Success = err == nil
	run.RecordsTotal = sql.NullInt64{Int64: int64(result.Total), Valid: true}
	run.RecordsAccepted = sql.NullInt64{Int64: int64(result.Accepted), Valid: true}
	if result.Path != "" {
		run.OutputPath = sql.NullString{String: result.Path, Valid: true}
	}
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
	if err := i.runs.CompleteIngestRun(run); err != nil {
		log.Printf("import: complete ingest run: %v", err)
	}
}

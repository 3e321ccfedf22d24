package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lox/solarforecast/internal/models"
)

// ReadTable reads a CSV document into a Table. Semicolon-separated exports
// are detected from the header line.
func ReadTable(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		cr.Comma = ';'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}

// ReadTableFile opens path and reads it with ReadTable.
func ReadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return ReadTable(f)
}

// WriteSamples writes samples using the canonical column layout.
func WriteSamples(w io.Writer, samples []models.ProductionSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColTimestamp, ColPowerKW, ColEnergyKWh, ColInverterTmp, ColSourceID}); err != nil {
		return err
	}
	for _, s := range samples {
		temp := ""
		if s.InverterTempC != nil {
			temp = strconv.FormatFloat(*s.InverterTempC, 'f', -1, 64)
		}
		rec := []string{
			s.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(s.PowerKW, 'f', -1, 64),
			strconv.FormatFloat(s.EnergyKWh, 'f', -1, 64),
			temp,
			strconv.FormatInt(s.SourceID, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamplesFile writes samples to path through a temp file and rename, so
// readers never observe a partially written origin.
func WriteSamplesFile(path string, samples []models.ProductionSample) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := WriteSamples(bw, samples); err != nil {
		tmp.Close()
		return fmt.Errorf("write samples: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush samples: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

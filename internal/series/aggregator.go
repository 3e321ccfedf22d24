// Package series merges the production origins of a source into one
// canonical time series and derives the reporting rollups from it.
package series

import (
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/models"
)

// Status separates a source that was never imported from one whose origins
// hold no valid rows.
type Status int

const (
	Absent Status = iota
	Empty
	Present
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Empty:
		return "empty"
	case Present:
		return "present"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Series is the canonical series of one source: strictly increasing
// timestamps, at most one sample per timestamp.
type Series struct {
	SourceID int64
	Status   Status
	Samples  []models.ProductionSample
	// Origins lists the files merged, lowest precedence first.
	Origins []string

	loc *time.Location
}

// Location is the zone calendar rollups are computed in.
func (s Series) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// Aggregator rebuilds canonical series from the origin files on every call.
type Aggregator struct {
	layout     ingest.Layout
	normalizer *ingest.Normalizer
	loc        *time.Location
}

func NewAggregator(layout ingest.Layout, normalizer *ingest.Normalizer, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{layout: layout, normalizer: normalizer, loc: loc}
}

// Origins returns the origin files of a source in precedence order: the
// simulated dataset first, then processed imports by ascending import time.
func (a *Aggregator) Origins(sourceID int64) ([]string, error) {
	var origins []string
	simulated := a.layout.SimulatedPath(sourceID)
	if _, err := os.Stat(simulated); err == nil {
		origins = append(origins, simulated)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat simulated origin: %w", err)
	}

	processed, err := a.layout.ProcessedFiles(sourceID)
	if err != nil {
		return nil, err
	}
	return append(origins, processed...), nil
}

// Aggregate merges every origin of the source. When two samples share a
// timestamp the one from the later origin wins. A source with no origin
// files is Absent, which is not an error.
func (a *Aggregator) Aggregate(sourceID int64) (Series, error) {
	s := Series{SourceID: sourceID, Status: Absent, loc: a.loc}

	origins, err := a.Origins(sourceID)
	if err != nil {
		return s, fmt.Errorf("discover origins for source %d: %w", sourceID, err)
	}
	if len(origins) == 0 {
		return s, nil
	}
	s.Origins = origins

	var all []models.ProductionSample
	for _, path := range origins {
		table, err := ingest.ReadTableFile(path)
		if err != nil {
			log.Printf("series: source %d: skip unreadable origin %s: %v", sourceID, path, err)
			continue
		}
		all = append(all, a.normalizer.Normalize(sourceID, table).Samples...)
	}

	s.Samples = Merge(all)
	if len(s.Samples) == 0 {
		s.Status = Empty
	} else {
		s.Status = Present
	}
	return s, nil
}

// Merge deduplicates samples by timestamp, keeping the last occurrence, and
// returns them sorted by timestamp. The input is not modified.
func Merge(samples []models.ProductionSample) []models.ProductionSample {
	last := make(map[int64]int, len(samples))
	for i, s := range samples {
		last[s.Timestamp.UnixNano()] = i
	}

	out := make([]models.ProductionSample, 0, len(last))
	for i, s := range samples {
		if last[s.Timestamp.UnixNano()] == i {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

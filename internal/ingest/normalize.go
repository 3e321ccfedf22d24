package ingest

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/solarforecast/internal/models"
)

const (
	ColTimestamp   = "timestamp"
	ColPowerKW     = "power_kw"
	ColEnergyKWh   = "energy_kwh"
	ColInverterTmp = "inverter_temp_c"
	ColSourceID    = "source_id"
)

// columnAliases maps header names found in inverter exports onto canonical
// columns. It is consulted only when a required canonical column is missing.
var columnAliases = map[string]string{
	"timestamp":            ColTimestamp,
	"date":                 ColTimestamp,
	"time":                 ColTimestamp,
	"data_hora":            ColTimestamp,
	"power":                ColPowerKW,
	"pac":                  ColPowerKW,
	"potencia_kw":          ColPowerKW,
	"energy":               ColEnergyKWh,
	"e-day":                ColEnergyKWh,
	"energia_kwh":          ColEnergyKWh,
	"temp":                 ColInverterTmp,
	"temperature":          ColInverterTmp,
	"temperatura_inversor": ColInverterTmp,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"02/01/2006",
}

// Table is a raw tabular row set: a header plus rows of string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// NormalizeResult holds the accepted samples and row accounting.
type NormalizeResult struct {
	Samples  []models.ProductionSample
	Total    int
	Accepted int
}

func (r NormalizeResult) Dropped() int {
	return r.Total - r.Accepted
}

// Normalizer turns raw rows into production samples. Timestamps without an
// explicit offset are interpreted in loc.
type Normalizer struct {
	loc *time.Location
}

func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize maps columns, coerces values and drops rows missing a timestamp,
// power or energy. The result is sorted by timestamp; duplicates are kept.
func (n *Normalizer) Normalize(sourceID int64, t Table) NormalizeResult {
	result := NormalizeResult{Total: len(t.Rows)}
	cols := resolveColumns(t.Header)

	tsIdx, ok := cols[ColTimestamp]
	if !ok {
		return result
	}
	powerIdx, ok := cols[ColPowerKW]
	if !ok {
		return result
	}
	energyIdx, ok := cols[ColEnergyKWh]
	if !ok {
		return result
	}
	tempIdx, hasTemp := cols[ColInverterTmp]

	for _, row := range t.Rows {
		ts, ok := n.ParseTimestamp(cell(row, tsIdx))
		if !ok {
			continue
		}
		power, ok := parseMeasurement(cell(row, powerIdx))
		if !ok {
			continue
		}
		energy, ok := parseMeasurement(cell(row, energyIdx))
		if !ok {
			continue
		}

		sample := models.ProductionSample{
			Timestamp: ts,
			PowerKW:   power,
			EnergyKWh: energy,
			SourceID:  sourceID,
		}
		if hasTemp {
			if v, ok := parseNumber(cell(row, tempIdx)); ok {
				sample.InverterTempC = &v
			}
		}
		result.Samples = append(result.Samples, sample)
	}

	sort.SliceStable(result.Samples, func(i, j int) bool {
		return result.Samples[i].Timestamp.Before(result.Samples[j].Timestamp)
	})
	result.Accepted = len(result.Samples)
	return result
}

// ParseTimestamp accepts the layouts inverter exports commonly use, plus
// unix epoch seconds.
func (n *Normalizer) ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, n.loc); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).In(n.loc), true
	}
	return time.Time{}, false
}

// resolveColumns returns canonical column name -> cell index. Aliases only
// fill canonical columns that are absent, and the first alias to claim a
// column wins.
func resolveColumns(header []string) map[string]int {
	cols := make(map[string]int)
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch names[i] {
		case ColTimestamp, ColPowerKW, ColEnergyKWh, ColInverterTmp:
			if _, dup := cols[names[i]]; !dup {
				cols[names[i]] = i
			}
		}
	}

	_, hasTS := cols[ColTimestamp]
	_, hasPower := cols[ColPowerKW]
	_, hasEnergy := cols[ColEnergyKWh]
	if hasTS && hasPower && hasEnergy {
		return cols
	}

	for i, name := range names {
		target, ok := columnAliases[name]
		if !ok {
			continue
		}
		if _, taken := cols[target]; taken {
			continue
		}
		cols[target] = i
	}
	return cols
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseMeasurement is parseNumber restricted to non-negative values.
func parseMeasurement(raw string) (float64, bool) {
	v, ok := parseNumber(raw)
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

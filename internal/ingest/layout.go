package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const importStampLayout = "20060102150405"

// Layout locates origin files under a data directory:
//
//	simulated/source_{id}_simulated.csv
//	processed/source_{id}_{YYYYMMDDHHMMSS}.csv
type Layout struct {
	Root string
}

func (l Layout) SimulatedDir() string { return filepath.Join(l.Root, "simulated") }
func (l Layout) ProcessedDir() string { return filepath.Join(l.Root, "processed") }

func (l Layout) SimulatedPath(sourceID int64) string {
	return filepath.Join(l.SimulatedDir(), fmt.Sprintf("source_%d_simulated.csv", sourceID))
}

func (l Layout) ProcessedPath(sourceID int64, importedAt time.Time) string {
	return filepath.Join(l.ProcessedDir(), fmt.Sprintf("source_%d_%s.csv", sourceID, importedAt.UTC().Format(importStampLayout)))
}

// ProcessedFiles lists the processed imports of a source ordered by import
// time, oldest first. A missing directory yields no files.
func (l Layout) ProcessedFiles(sourceID int64) ([]string, error) {
	entries, err := os.ReadDir(l.ProcessedDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read processed dir: %w", err)
	}

	type stamped struct {
		path  string
		stamp string
		seq   int
	}
	var files []stamped
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, stamp, seq, ok := parseProcessedName(e.Name())
		if !ok || id != sourceID {
			continue
		}
		files = append(files, stamped{path: filepath.Join(l.ProcessedDir(), e.Name()), stamp: stamp, seq: seq})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].stamp != files[j].stamp {
			return files[i].stamp < files[j].stamp
		}
		if files[i].seq != files[j].seq {
			return files[i].seq < files[j].seq
		}
		return files[i].path < files[j].path
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// parseProcessedName splits "source_{id}_{stamp}[-{seq}].csv". Imports
// within the same second carry a numeric sequence, 0 for the first one.
func parseProcessedName(name string) (id int64, stamp string, seq int, ok bool) {
	if !strings.HasPrefix(name, "source_") || !strings.HasSuffix(name, ".csv") {
		return 0, "", 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, "source_"), ".csv")
	idPart, stampPart, found := strings.Cut(rest, "_")
	if !found {
		return 0, "", 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", 0, false
	}
	if len(stampPart) < len(importStampLayout) {
		return 0, "", 0, false
	}
	stamp, suffix := stampPart[:len(importStampLayout)], stampPart[len(importStampLayout):]
	if _, err := time.Parse(importStampLayout, stamp); err != nil {
		return 0, "", 0, false
	}
	if suffix != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(suffix, "-"))
		if !strings.HasPrefix(suffix, "-") || err != nil || n < 1 {
			return 0, "", 0, false
		}
		seq = n
	}
	return id, stamp, seq, true
}

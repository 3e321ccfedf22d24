package forecast

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/solarforecast/internal/metrics"
	"github.com/lox/solarforecast/internal/models"
)

// MaxAge is how long a persisted forecast stays fresh.
const MaxAge = 12 * time.Hour

// Cache keeps one forecast document per source as a JSON file.
type Cache struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
	locks  sourceLocks
}

// NewCache creates a forecast cache in dir. The directory is created on the
// first write.
func NewCache(dir string) *Cache {
	return &Cache{
		dir:    dir,
		maxAge: MaxAge,
		now:    time.Now,
	}
}

func (c *Cache) path(sourceID int64) string {
	return filepath.Join(c.dir, fmt.Sprintf("forecast_source_%d.json", sourceID))
}

// Get returns the source's document if it exists and is not stale. Stale
// documents are left on disk.
func (c *Cache) Get(sourceID int64) (*models.ForecastDocument, bool) {
	data, err := os.ReadFile(c.path(sourceID))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("cache: read forecast for source %d: %v", sourceID, err)
		}
		metrics.ForecastCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var doc models.ForecastDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("cache: decode forecast for source %d: %v", sourceID, err)
		metrics.ForecastCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	if c.now().Sub(doc.GeneratedAt) > c.maxAge {
		metrics.ForecastCacheLookups.WithLabelValues("stale").Inc()
		return nil, false
	}

	metrics.ForecastCacheLookups.WithLabelValues("hit").Inc()
	return &doc, true
}

// Put replaces the document for doc.SourceID. Readers see either the old or
// the new document, never a partial one.
func (c *Cache) Put(doc *models.ForecastDocument) error {
	unlock := c.locks.lock(doc.SourceID)
	defer unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create forecast dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write forecast: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(doc.SourceID)); err != nil {
		return fmt.Errorf("rename forecast: %w", err)
	}
	return nil
}

// Clear deletes the source's document. Clearing a missing document succeeds.
func (c *Cache) Clear(sourceID int64) error {
	unlock := c.locks.lock(sourceID)
	defer unlock()

	err := os.Remove(c.path(sourceID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove forecast: %w", err)
	}
	return nil
}

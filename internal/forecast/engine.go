package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lox/solarforecast/internal/metrics"
	"github.com/lox/solarforecast/internal/models"
	"github.com/lox/solarforecast/internal/series"
	"github.com/lox/solarforecast/internal/weather"
)

const (
	DefaultDays = 5
	MaxDays     = 7
)

// ErrSourceNotFound is the only failure Predict reports for data problems;
// everything else degrades to a fallback path.
var ErrSourceNotFound = errors.New("source not found")

// Path says how a forecast's estimates were produced.
type Path string

const (
	PathHistory   Path = "history"
	PathCapacity  Path = "capacity"
	PathSimulated Path = "simulated"
)

type SourceLookup interface {
	GetSource(id int64) (*models.EnergySource, error)
}

// WeatherProvider geocodes a location and fetches a daily forecast for it.
type WeatherProvider interface {
	Geocode(ctx context.Context, location string) (lat, lon float64, err error)
	Forecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherDay, error)
}

type SeriesSource interface {
	Aggregate(sourceID int64) (series.Series, error)
}

// Narrator writes a short outlook for a forecast.
type Narrator interface {
	Outlook(ctx context.Context, src *models.EnergySource, days []models.ForecastDay) (string, error)
}

// Prediction is the result of a forecast request.
type Prediction struct {
	Path     Path
	Document *models.ForecastDocument
	Cached   bool
}

type Engine struct {
	sources  SourceLookup
	weather  WeatherProvider
	history  SeriesSource
	cache    *Cache
	narrator Narrator
	loc      *time.Location
	rngMu    sync.Mutex // guards rng across sources
	rng      *rand.Rand
	now      func() time.Time
	locks    sourceLocks
}

// NewEngine creates a forecast engine. weather may be nil, in which case
// every forecast takes the simulated path.
func NewEngine(sources SourceLookup, weather WeatherProvider, history SeriesSource, cache *Cache, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		sources: sources,
		weather: weather,
		history: history,
		cache:   cache,
		loc:     loc,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xf0ca57)),
		now:     time.Now,
	}
}

// SetNarrator attaches an outlook writer for real-weather forecasts.
func (e *Engine) SetNarrator(n Narrator) {
	e.narrator = n
}

// ClampDays applies the default and the provider's seven day limit.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDays
	case days > MaxDays:
		return MaxDays
	default:
		return days
	}
}

// Forecast returns the persisted forecast for the source when it is fresh
// and covers the requested days, and generates a new one otherwise.
// refresh skips the persisted document.
func (e *Engine) Forecast(ctx context.Context, sourceID int64, days int, refresh bool) (*Prediction, error) {
	days = ClampDays(days)
	unlock := e.locks.lock(sourceID)
	defer unlock()

	src, err := e.source(sourceID)
	if err != nil {
		return nil, err
	}

	if !refresh {
		if doc, ok := e.cache.Get(sourceID); ok && len(doc.ForecastDays) >= days {
			doc.ForecastDays = doc.ForecastDays[:days]
			return &Prediction{Path: Path(doc.Path), Document: doc, Cached: true}, nil
		}
	}
	return e.predict(ctx, src, days), nil
}

// Predict always generates and persists a new forecast.
func (e *Engine) Predict(ctx context.Context, sourceID int64, days int) (*Prediction, error) {
	days = ClampDays(days)
	unlock := e.locks.lock(sourceID)
	defer unlock()

	src, err := e.source(sourceID)
	if err != nil {
		return nil, err
	}
	return e.predict(ctx, src, days), nil
}

// Clear drops the persisted forecast of a source.
func (e *Engine) Clear(sourceID int64) error {
	unlock := e.locks.lock(sourceID)
	defer unlock()
	return e.cache.Clear(sourceID)
}

func (e *Engine) source(sourceID int64) (*models.EnergySource, error) {
	src, err := e.sources.GetSource(sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", sourceID, err)
	}
	if src == nil {
		return nil, fmt.Errorf("source %d: %w", sourceID, ErrSourceNotFound)
	}
	return src, nil
}

func (e *Engine) predict(ctx context.Context, src *models.EnergySource, days int) *Prediction {
	capacity, ok := src.CapacityKWp()
	if !ok {
		log.Printf("engine: source %d: unusable capacity %q, assuming %.1f kWp", src.ID, src.NominalCapacity, capacity)
		metrics.CapacityDefaulted.Inc()
	}

	weather, err := e.fetchWeather(ctx, src, days)
	if err != nil {
		log.Printf("engine: source %d: %v; using simulated weather", src.ID, err)
		return e.finish(ctx, src, PathSimulated, e.estimateSimulated(capacity, days))
	}

	mean, ok := e.historicalMean(src.ID)
	if !ok {
		return e.finish(ctx, src, PathCapacity, estimate(weather, func(f float64) float64 {
			return round2(CapacityEstimate(capacity, f))
		}))
	}
	return e.finish(ctx, src, PathHistory, estimate(weather, func(f float64) float64 {
		return BlendedEstimate(mean, capacity, f)
	}))
}

func (e *Engine) fetchWeather(ctx context.Context, src *models.EnergySource, days int) ([]models.WeatherDay, error) {
	if e.weather == nil {
		return nil, errors.New("no weather provider configured")
	}
	ctx = weather.WithSource(ctx, src.ID)
	lat, lon, err := e.weather.Geocode(ctx, src.Location)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", src.Location, err)
	}
	forecast, err := e.weather.Forecast(ctx, lat, lon, days)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	if len(forecast) == 0 {
		return nil, errors.New("fetch weather: empty forecast")
	}
	if len(forecast) > days {
		forecast = forecast[:days]
	}
	return forecast, nil
}

// historicalMean returns the mean daily energy of the source's series, or
// false when there is no usable history.
func (e *Engine) historicalMean(sourceID int64) (float64, bool) {
	if e.history == nil {
		return 0, false
	}
	s, err := e.history.Aggregate(sourceID)
	if err != nil {
		log.Printf("engine: source %d: load history: %v", sourceID, err)
		return 0, false
	}
	if s.Status != series.Present {
		return 0, false
	}
	return series.Summarize(s.Samples, s.Location()).MeanDailyEnergyKWh, true
}

func estimate(weather []models.WeatherDay, energy func(factor float64) float64) []models.ForecastDay {
	out := make([]models.ForecastDay, 0, len(weather))
	for _, w := range weather {
		f := Factor(w)
		out = append(out, models.ForecastDay{
			WeatherDay:        w,
			ClimaticFactor:    f,
			EnergyEstimateKWh: energy(f),
			Advisory:          Advisory(f),
			Origin:            models.OriginReal,
		})
	}
	return out
}

func (e *Engine) estimateSimulated(capacity float64, days int) []models.ForecastDay {
	start := e.now().In(e.loc)
	e.rngMu.Lock()
	weather := simulateWeather(e.rng, start, days)
	e.rngMu.Unlock()

	out := estimate(weather, func(f float64) float64 {
		return round2(CapacityEstimate(capacity, f))
	})
	for i := range out {
		out[i].Origin = models.OriginSimulated
	}
	return out
}

func (e *Engine) finish(ctx context.Context, src *models.EnergySource, path Path, days []models.ForecastDay) *Prediction {
	doc := &models.ForecastDocument{
		SourceID:     src.ID,
		GeneratedAt:  e.now().UTC(),
		ForecastDays: days,
		IsSimulated:  path == PathSimulated,
		Path:         string(path),
	}

	if e.narrator != nil && path != PathSimulated {
		text, err := e.narrator.Outlook(ctx, src, days)
		if err != nil {
			log.Printf("engine: source %d: outlook: %v", src.ID, err)
		} else {
			doc.Narrative = text
		}
	}

	if err := e.cache.Put(doc); err != nil {
		log.Printf("engine: source %d: persist forecast: %v", src.ID, err)
	}
	metrics.ForecastsGenerated.WithLabelValues(string(path)).Inc()
	log.Printf("engine: source %d: %d day forecast via %s path", src.ID, len(days), path)
	return &Prediction{Path: path, Document: doc}
}

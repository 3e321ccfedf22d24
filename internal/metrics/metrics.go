package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforecast_weather_api_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	WeatherAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarforecast_weather_api_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ForecastsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforecast_forecasts_generated_total",
			Help: "Generation forecasts produced, by estimation path",
		},
		[]string{"path"},
	)

	ForecastCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforecast_forecast_cache_lookups_total",
			Help: "Persisted forecast lookups by result (hit, miss, stale)",
		},
		[]string{"result"},
	)

	CapacityDefaulted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solarforecast_capacity_defaulted_total",
			Help: "Forecasts that substituted the default nominal capacity",
		},
	)

	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforecast_import_rows_total",
			Help: "Production rows seen by imports, by outcome (accepted, dropped)",
		},
		[]string{"kind", "outcome"},
	)
)

package main

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/lox/solarforecast/internal/forecast"
	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/narrative"
	"github.com/lox/solarforecast/internal/series"
	"github.com/lox/solarforecast/internal/store"
	"github.com/lox/solarforecast/internal/weather"
)

// Globals are the settings shared by every command.
type Globals struct {
	DataDir        string        `name:"data-dir" env:"DATA_DIR" default:"data" help:"Directory for origin files and persisted forecasts."`
	DB             string        `name:"db" env:"DB_PATH" help:"SQLite database path (default: <data-dir>/solarforecast.db)."`
	Timezone       string        `name:"timezone" env:"TZ_NAME" default:"America/Sao_Paulo" help:"Zone used for calendar dates."`
	WeatherAPIKey  string        `name:"weather-api-key" env:"WEATHER_API_KEY" help:"OpenWeather API key. Forecasts are simulated without one."`
	WeatherTimeout time.Duration `name:"weather-timeout" env:"WEATHER_TIMEOUT" default:"10s" help:"Timeout for each weather API call."`
	OpenAIAPIKey   string        `name:"openai-api-key" env:"OPENAI_API_KEY" help:"Enables written outlooks on forecasts."`
	OpenAIModel    string        `name:"openai-model" env:"OPENAI_MODEL" help:"Chat model for outlooks."`
}

func (g *Globals) location() *time.Location {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		log.Printf("Warning: could not load %s timezone, using UTC: %v", g.Timezone, err)
		return time.UTC
	}
	return loc
}

func (g *Globals) dbPath() string {
	if g.DB != "" {
		return g.DB
	}
	return filepath.Join(g.DataDir, "solarforecast.db")
}

// app holds the wired components for one command invocation.
type app struct {
	loc       *time.Location
	store     *store.Store
	layout    ingest.Layout
	importer  *ingest.Importer
	simulator *ingest.Simulator
	series    *series.Aggregator
	reporter  *series.Reporter
	weather   *weather.Client
	engine    *forecast.Engine
}

func (g *Globals) open() (*app, error) {
	st, err := store.Open(g.dbPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{
		loc:    g.location(),
		store:  st,
		layout: ingest.Layout{Root: g.DataDir},
	}
	norm := ingest.NewNormalizer(a.loc)
	a.importer = ingest.NewImporter(a.layout, norm, st)
	a.simulator = ingest.NewSimulator(nil, a.loc)
	a.series = series.NewAggregator(a.layout, norm, a.loc)
	a.reporter = series.NewReporter(series.NewPlaceholder(a.simulator, a.loc))

	var provider forecast.WeatherProvider
	if g.WeatherAPIKey != "" {
		a.weather = weather.NewClient(g.WeatherAPIKey, g.WeatherTimeout, a.loc)
		a.weather.SetPayloadRecorder(st)
		provider = a.weather
	} else {
		log.Println("weather api key not set, forecasts will be simulated")
	}

	cache := forecast.NewCache(filepath.Join(g.DataDir, "forecasts"))
	a.engine = forecast.NewEngine(st, provider, a.series, cache, a.loc)

	if g.OpenAIAPIKey != "" {
		if w, err := narrative.NewWriter(g.OpenAIAPIKey, g.OpenAIModel); err != nil {
			log.Printf("Outlooks disabled: %v", err)
		} else {
			a.engine.SetNarrator(w)
		}
	}
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/solarforecast/internal/forecast"
	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/series"
	"github.com/lox/solarforecast/internal/store"
	"github.com/lox/solarforecast/internal/weather"
)

// Services are the components the HTTP layer exposes.
type Services struct {
	Store     *store.Store
	Series    *series.Aggregator
	Reporter  *series.Reporter
	Engine    *forecast.Engine
	Importer  *ingest.Importer
	Simulator *ingest.Simulator
}

// DefaultMaxImportBytes bounds the CSV body accepted by the import endpoint.
const DefaultMaxImportBytes = 32 << 20

type Server struct {
	Services
	port           string
	autoSimulate   bool
	maxImportBytes int64
}

func NewServer(svc Services, port string) *Server {
	return &Server{Services: svc, port: port, maxImportBytes: DefaultMaxImportBytes}
}

// SetMaxImportBytes changes the import body limit.
func (s *Server) SetMaxImportBytes(n int64) {
	if n > 0 {
		s.maxImportBytes = n
	}
}

// SetAutoSimulate makes reports generate a simulated dataset for sources that
// have never been imported.
func (s *Server) SetAutoSimulate(enabled bool) {
	s.autoSimulate = enabled
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("POST /api/sources", s.handleCreateSource)
	mux.HandleFunc("GET /api/sources/{id}", s.handleGetSource)
	mux.HandleFunc("PUT /api/sources/{id}", s.handleUpdateSource)
	mux.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource)

	mux.HandleFunc("GET /api/sources/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/sources/{id}/daily", s.handleDaily)
	mux.HandleFunc("GET /api/sources/{id}/hourly", s.handleHourly)
	mux.HandleFunc("POST /api/sources/{id}/import", s.handleImport)
	mux.HandleFunc("POST /api/sources/{id}/simulate", s.handleSimulate)

	mux.HandleFunc("GET /api/sources/{id}/forecast", s.handleGetForecast)
	mux.HandleFunc("DELETE /api/sources/{id}/forecast", s.handleClearForecast)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status        string `json:"status"`
	Sources       int    `json:"sources"`
	SchemaVersion int    `json:"schema_version"`
	Payloads      int    `json:"archived_payloads"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}
	sources, err := s.Store.ListSources()
	if err == nil {
		health.Sources = len(sources)
		health.SchemaVersion, err = s.Store.MigrationVersion()
	}
	if err == nil {
		health.Payloads, err = s.Store.CountRawPayloads(weather.Provider)
	}
	if err != nil {
		health.Status = "error"
		health.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sourceID parses the {id} path value, writing a 400 when it is invalid.
func sourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid source id")
		return 0, false
	}
	return id, true
}

// intParam reads an optional positive integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

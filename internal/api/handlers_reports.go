package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/models"
	"github.com/lox/solarforecast/internal/series"
)

// seriesFor aggregates the source's series, generating a simulated dataset
// first when auto-simulation is on and the source has never been imported.
func (s *Server) seriesFor(w http.ResponseWriter, r *http.Request) (series.Series, bool) {
	src, ok := s.lookupSource(w, r)
	if !ok {
		return series.Series{}, false
	}

	ser, err := s.Series.Aggregate(src.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return ser, false
	}
	if ser.Status == series.Absent && s.autoSimulate {
		capacity, _ := src.CapacityKWp()
		if _, err := s.Importer.Simulate(s.Simulator, src.ID, capacity, ingest.DefaultSimulatedDays); err != nil {
			log.Printf("api: auto-simulate source %d: %v", src.ID, err)
		} else if ser, err = s.Series.Aggregate(src.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return ser, false
		}
	}
	return ser, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ser, ok := s.seriesFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Reporter.Summary(ser))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	ser, ok := s.seriesFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Reporter.Daily(ser))
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	ser, ok := s.seriesFor(w, r)
	if !ok {
		return
	}
	report, err := s.Reporter.Hourly(ser, r.URL.Query().Get("day"))
	if errors.Is(err, series.ErrInvalidDay) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookupSource(w, r)
	if !ok {
		return
	}

	origin := r.URL.Query().Get("filename")
	if origin == "" {
		origin = "upload"
	}
	body := http.MaxBytesReader(w, r.Body, s.maxImportBytes)
	res, err := s.Importer.Import(src.ID, body, ingest.KindCSV, origin)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("import body exceeds %d bytes", tooLarge.Limit))
		return
	}
	if errors.Is(err, ingest.ErrNoValidRows) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "result": res})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.invalidateForecast(src)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookupSource(w, r)
	if !ok {
		return
	}
	days, err := intParam(r, "days", ingest.DefaultSimulatedDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	capacity, _ := src.CapacityKWp()
	res, err := s.Importer.Simulate(s.Simulator, src.ID, capacity, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidateForecast(src)
	writeJSON(w, http.StatusCreated, res)
}

// invalidateForecast drops a persisted forecast built from older history.
func (s *Server) invalidateForecast(src *models.EnergySource) {
	if err := s.Engine.Clear(src.ID); err != nil {
		log.Printf("api: clear forecast for source %d: %v", src.ID, err)
	}
}

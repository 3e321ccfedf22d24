package api

import (
	"errors"
	"net/http"

	"github.com/lox/solarforecast/internal/forecast"
	"github.com/lox/solarforecast/internal/models"
)

type ForecastResponse struct {
	*models.ForecastDocument
	Cached bool `json:"cached"`
}

func (s *Server) handleGetForecast(w http.ResponseWriter, r *http.Request) {
	id, ok := sourceID(w, r)
	if !ok {
		return
	}
	days, err := intParam(r, "days", forecast.DefaultDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	refresh := r.URL.Query().Get("refresh") != ""

	pred, err := s.Engine.Forecast(r.Context(), id, days, refresh)
	if errors.Is(err, forecast.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ForecastResponse{ForecastDocument: pred.Document, Cached: pred.Cached})
}

func (s *Server) handleClearForecast(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookupSource(w, r)
	if !ok {
		return
	}
	if err := s.Engine.Clear(src.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

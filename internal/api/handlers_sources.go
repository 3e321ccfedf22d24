package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/lox/solarforecast/internal/models"
)

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.Store.ListSources()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []models.EnergySource{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookupSource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	src, ok := decodeSource(w, r)
	if !ok {
		return
	}
	src.ID = 0
	saved, err := s.Store.SaveSource(src)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id, ok := sourceID(w, r)
	if !ok {
		return
	}
	src, ok := decodeSource(w, r)
	if !ok {
		return
	}
	src.ID = id
	saved, err := s.Store.SaveSource(src)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, ok := sourceID(w, r)
	if !ok {
		return
	}
	deleted, err := s.Store.DeleteSource(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	if err := s.Engine.Clear(id); err != nil {
		log.Printf("api: clear forecast for deleted source %d: %v", id, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeSource(w http.ResponseWriter, r *http.Request) (models.EnergySource, bool) {
	var src models.EnergySource
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		writeError(w, http.StatusBadRequest, "invalid source: "+err.Error())
		return src, false
	}
	src.Name = strings.TrimSpace(src.Name)
	if src.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return src, false
	}
	return src, true
}

// lookupSource resolves {id}, writing 400 or 404 when it cannot.
func (s *Server) lookupSource(w http.ResponseWriter, r *http.Request) (*models.EnergySource, bool) {
	id, ok := sourceID(w, r)
	if !ok {
		return nil, false
	}
	src, err := s.Store.GetSource(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if src == nil {
		writeError(w, http.StatusNotFound, "source not found")
		return nil, false
	}
	return src, true
}

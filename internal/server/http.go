package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// registerHTTP wires the admin surface (spec.md §6.3) onto mux, grounded on
// the teacher's handleHealth/handleGames/handleAdminGames style in
// internal/server/server.go: stdlib net/http, explicit status codes, no
// router dependency.
func (s *Server) registerHTTP() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/tables", s.handleTables)
	s.mux.HandleFunc("/api/tables/", s.handleTableDetail)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.registry.ListSummaries()); err != nil {
			s.logger.Error("failed to encode tables response", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		}

	case http.MethodPost:
		s.handleCreateTable(w, r)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type createTableRequest struct {
	Game    string `json:"game"`
	Name    string `json:"name,omitempty"`
	TableID string `json:"table_id,omitempty"`
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid JSON payload"))
		return
	}

	if req.Game == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("game is required"))
		return
	}

	tableID := req.TableID
	if tableID == "" {
		tableID = DefaultTableID(req.Game)
	}

	if err := s.registry.CreateNamed(req.Game, tableID, req.Name); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(err.Error()))
		return
	}

	detail, _ := s.registry.Detail(tableID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(detail); err != nil {
		s.logger.Error("failed to encode table detail response", "error", err)
	}
}

func (s *Server) handleTableDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/tables/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	detail, ok := s.registry.Detail(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(ErrTableNotFound.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(detail); err != nil {
		s.logger.Error("failed to encode table detail response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

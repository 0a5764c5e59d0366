package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
)

// handleControlConnection applies a control action to a connection. Lifecycle
// actions are handed to the worker and answered with 202 Accepted; commands
// complete inline.
func (s *Server) handleControlConnection(w http.ResponseWriter, r *http.Request) {
	var req connection.Connection
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	result, err := s.orch.ControlConnection(r.Context(), &req)
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}

	status := http.StatusOK
	if req.Control.IsLifecycle() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// handleGetConnection returns a single connection with credentials removed.
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.orch.GetConnection(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// handleListConnections returns one page of connections.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	token, limit, ok := pageParams(r)
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}

	page, err := s.orch.ListConnections(r.Context(), token, limit)
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

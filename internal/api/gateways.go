package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// pageParams reads the next_token and limit query parameters.
// A missing limit is 0, which lets the store pick its default.
func pageParams(r *http.Request) (token string, limit int, ok bool) {
	token = r.URL.Query().Get("next_token")
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return token, 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return "", 0, false
	}
	return token, limit, true
}

// handleListGateways returns one page of gateway records.
func (s *Server) handleListGateways(w http.ResponseWriter, r *http.Request) {
	token, limit, ok := pageParams(r)
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}

	page, err := s.orch.ListGateways(r.Context(), token, limit)
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleProvisionGateway provisions a new device or registers an existing one.
func (s *Server) handleProvisionGateway(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.ProvisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	result, err := s.orch.ProvisionGateway(r.Context(), req)
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleGetGateway returns a single gateway record.
func (s *Server) handleGetGateway(w http.ResponseWriter, r *http.Request) {
	gw, err := s.orch.GetGateway(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gw)
}

// handleDeprovisionGateway removes a gateway and, for system-provisioned
// gateways, its cloud resources.
func (s *Server) handleDeprovisionGateway(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.DeprovisionGateway(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListGatewayConnections returns one page of a gateway's connections.
func (s *Server) handleListGatewayConnections(w http.ResponseWriter, r *http.Request) {
	token, limit, ok := pageParams(r)
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}

	page, err := s.orch.ListGatewayConnections(r.Context(), chi.URLParam(r, "name"), token, limit)
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleAvailableDevices lists fleet devices that have no gateway record.
func (s *Server) handleAvailableDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.orch.AvailableDevices(r.Context())
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleStaleGateways lists gateway records whose device left the fleet.
func (s *Server) handleStaleGateways(w http.ResponseWriter, r *http.Request) {
	gateways, err := s.orch.StaleRecords(r.Context())
	if err != nil {
		s.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gateways": gateways,
		"count":    len(gateways),
	})
}

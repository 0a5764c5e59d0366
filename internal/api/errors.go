package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodePolicy      = "policy_violation"
	ErrCodeUnavailable = "upstream_unavailable"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
)

// kindCodes maps orchestrator error kinds to response codes.
var kindCodes = map[orchestrator.Kind]string{
	orchestrator.KindValidation: ErrCodeValidation,
	orchestrator.KindConflict:   ErrCodeConflict,
	orchestrator.KindNotFound:   ErrCodeNotFound,
	orchestrator.KindPolicy:     ErrCodePolicy,
	orchestrator.KindTransient:  ErrCodeUnavailable,
	orchestrator.KindInternal:   ErrCodeInternal,
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeOrchestratorError logs an orchestrator failure at the boundary and
// writes the response its kind calls for. Internal details stay in the log.
func (s *Server) writeOrchestratorError(w http.ResponseWriter, r *http.Request, err error) {
	e := orchestrator.AsError(err)

	args := []any{
		"kind", e.Kind,
		"operation", e.Op,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Context().Value(ctxKeyRequestID),
	}
	if e.Kind == orchestrator.KindInternal || e.Kind == orchestrator.KindTransient {
		s.logger.Error("request failed", args...)
	} else {
		s.logger.Warn("request rejected", args...)
	}

	code, ok := kindCodes[e.Kind]
	if !ok {
		code = ErrCodeInternal
	}
	writeError(w, e.Status(), code, e.PublicMessage())
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return err
	}
	return nil
}

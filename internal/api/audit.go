package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
)

// handleListAudit returns audit entries, newest first.
//
// Query parameters: action, entity_type, entity_id, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, p.name+" must be a non-negative integer")
			return
		}
		*p.dst = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries failed", "error", err,
			"request_id", r.Context().Value(ctxKeyRequestID))
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/itz-ankit01/inbotiq-core/internal/audit"
)

// handleListAudit returns paginated audit trail entries, newest first.
//
// Query parameters:
//   - action: filter by event type (signup, login, login_failed, logout, ...)
//   - outcome: success or denied
//   - user_id: filter by subject
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:  q.Get("action"),
		Outcome: q.Get("outcome"),
		UserID:  q.Get("user_id"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: result})
}

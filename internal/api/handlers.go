// Package api: helpers shared by the endpoint handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MindAthlete/backend/internal/auth"
	"github.com/MindAthlete/backend/internal/models"
)

// caller returns the authenticated identity stored by the auth middleware.
func caller(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

// decodeJSON decodes the request body into dst, answering 400 on malformed
// input. Reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Warn("Server: failed to decode JSON body", "path", r.URL.Path, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return false
	}
	return true
}

// checkPayloadUser rejects payloads that embed a user_id different from the
// authenticated caller. An empty payload user ID is fine.
func checkPayloadUser(w http.ResponseWriter, r *http.Request, payloadUserID string) bool {
	if payloadUserID == "" || payloadUserID == caller(r).UserID {
		return true
	}
	slog.Warn("Server: cross-user payload rejected", "path", r.URL.Path, "caller", caller(r).UserID)
	writeJSONResponse(w, http.StatusForbidden, models.Error(models.ErrForbidden.Error()))
	return false
}

// methodNotAllowed answers 405 with an Allow header.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
}

// sweepExpiredChats deletes chat messages older than the retention window.
// Failures are logged and never surface to the caller.
func (s *Server) sweepExpiredChats() {
	if s.retention <= 0 {
		return
	}
	cutoff := s.now().UTC().Add(-s.retention)
	deleted, err := s.st.DeleteChatMessagesBefore(cutoff)
	if err != nil {
		slog.Error("Server.sweepExpiredChats: retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Server.sweepExpiredChats: expired chat messages removed", "count", deleted)
	}
}

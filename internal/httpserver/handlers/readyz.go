package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

type readyzResponse struct {
	Ready   bool          `json:"ready"`
	Session session.State `json:"session"`
}

// Readyz is ready once the stored session has been restored, whatever the
// outcome.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := d.Session.Snapshot().State
		ready := state == session.StateAuthenticated || state == session.StateUnauthenticated

		w.Header().Set("Content-Type", "application/json")
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(readyzResponse{Ready: ready, Session: state})
	}
}

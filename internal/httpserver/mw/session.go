package mw

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// RequireSession answers 401 unless authenticated() is true.
func RequireSession(authenticated func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authenticated() {
				writeError(w, http.StatusUnauthorized, domain.MsgNotAuthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError answers with the same {"error": ...} body as the handlers.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

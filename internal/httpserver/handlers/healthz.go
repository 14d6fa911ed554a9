package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	Storage       string  `json:"storage,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
}

// Healthz is liveness only. It names the session storage backend so a
// misconfigured profile is visible without /infra, but never touches it.
func Healthz(d deps.Deps) http.HandlerFunc {
	var backend string
	if d.Storage != nil {
		backend = d.Storage.Name()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Storage:       backend,
			UptimeSeconds: time.Since(d.StartTime).Round(time.Millisecond).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
		})
	}
}

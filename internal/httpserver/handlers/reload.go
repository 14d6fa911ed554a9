package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Reload triggers an immediate bookmark sync and, when configured, a
// Homepage re-import.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SyncTrigger == nil && d.HomepageTrigger == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "background jobs disabled"})
			return
		}

		syncTriggered := trigger(d, d.SyncTrigger, "bookmark sync", r)
		homepageTriggered := trigger(d, d.HomepageTrigger, "homepage import", r)

		if syncTriggered || homepageTriggered {
			writeJSON(w, http.StatusAccepted, map[string]bool{
				"sync":     syncTriggered,
				"homepage": homepageTriggered,
			})
			return
		}
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "reload already in progress, please wait"})
	}
}

func trigger(d deps.Deps, t deps.Trigger, name string, r *http.Request) bool {
	if t == nil {
		return false
	}
	if t.Trigger() {
		d.Logger.Info("manual reload triggered via endpoint",
			logger.String("job", name),
			logger.String("remote_ip", r.RemoteAddr))
		return true
	}
	d.Logger.Warn("reload already queued",
		logger.String("job", name),
		logger.String("remote_ip", r.RemoteAddr))
	return false
}

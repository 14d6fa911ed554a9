package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

type activityRequest struct {
	Kind string `json:"kind"`
}

// Session returns the current snapshot. The token is never serialized.
func Session(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Session.Snapshot())
	}
}

// Activity relays a UI interaction to the session's activity listener.
func Activity(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		kind, ok := session.ParseActivityKind(req.Kind)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown activity kind", Field: "kind"})
			return
		}
		d.Activity.Publish(kind)
		w.WriteHeader(http.StatusNoContent)
	}
}

func Notifications(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": d.Notifications.Recent()})
	}
}

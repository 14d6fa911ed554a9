package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Backend   string `json:"backend,omitempty"`
	State     string `json:"state,omitempty"`
	Loaded    *int   `json:"loaded,omitempty"`
	Encrypted *bool  `json:"encrypted,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	API        string                     `json:"api"`
	Components map[string]componentStatus `json:"components"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type encrypter interface {
	Encrypted() bool
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Session.Snapshot()
		active := len(d.Bookmarks.State(bookmarks.ViewActive).Bookmarks)
		archived := len(d.Bookmarks.State(bookmarks.ViewArchived).Bookmarks)

		components := map[string]componentStatus{
			"storage": checkStorage(r.Context(), d),
			"session": {OK: snap.IsAuthenticated, State: snap.State.String()},
			"bookmarks": {
				OK:     d.Bookmarks.State(bookmarks.ViewActive).Error == "",
				Loaded: &active,
			},
			"archived": {
				OK:     d.Bookmarks.State(bookmarks.ViewArchived).Error == "",
				Loaded: &archived,
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			API:        d.APIBaseURL,
			Components: components,
		})
	}
}

// determineMode summarizes the components. A broken storage only costs
// persistence across restarts, so it degrades rather than fails.
func determineMode(components map[string]componentStatus) string {
	if s, ok := components["session"]; ok && !s.OK {
		return "signed-out"
	}
	if s, ok := components["storage"]; ok && !s.OK {
		return "degraded"
	}
	for _, name := range []string{"bookmarks", "archived"} {
		if c, ok := components[name]; ok && !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkStorage(ctx context.Context, d deps.Deps) componentStatus {
	if d.Storage == nil {
		return componentStatus{OK: false, Error: "not configured"}
	}
	st := componentStatus{OK: true, Backend: d.Storage.Name()}
	if e, ok := d.Storage.(encrypter); ok {
		enc := e.Encrypted()
		st.Encrypted = &enc
	}
	if p, ok := d.Storage.(pinger); ok {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			st.OK = false
			st.Error = err.Error()
		}
	}
	return st
}

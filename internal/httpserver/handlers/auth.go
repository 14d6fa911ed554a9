package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		u := domain.User{
			Username: strings.TrimSpace(req.Username),
			Email:    strings.TrimSpace(req.Email),
			Password: req.Password,
		}
		if err := d.Auth.Register(r.Context(), u); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.Logger.Info("account registered", logger.String("username", u.Username))
		writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
	}
}

// Login authenticates against the backend and starts the local session.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := d.Auth.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if err := d.Session.Login(r.Context(), res.Token, res.User); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.Logger.Info("signed in", logger.String("username", res.User.Username))
		writeJSON(w, http.StatusOK, d.Session.Snapshot())
	}
}

func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Session.Logout(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Session.IsAuthenticated() {
			writeError(w, d.Logger, domain.ErrNotAuthenticated)
			return
		}
		if _, err := d.Session.RefreshToken(r.Context()); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Session.Snapshot())
	}
}

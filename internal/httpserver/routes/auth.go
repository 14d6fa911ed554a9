package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register("auth", registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.RateLimit(d.AuthRateLimit))
		r.Post("/register", handlers.Register(d))
		r.Post("/login", handlers.Login(d))
		r.Post("/logout", handlers.Logout(d))
		r.Post("/refresh", handlers.Refresh(d))
	})
}

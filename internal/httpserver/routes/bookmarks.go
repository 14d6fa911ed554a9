package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register("bookmarks", registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.RequireSession(d.Session.IsAuthenticated))
		r.Get("/", handlers.ListBookmarks(d, bookmarks.ViewActive))
		r.Get("/archived", handlers.ListBookmarks(d, bookmarks.ViewArchived))
		r.Post("/", handlers.CreateBookmark(d))
		r.Put("/{id}", handlers.UpdateBookmark(d))
		r.Put("/{id}/archive", handlers.ArchiveBookmark(d))
		r.Delete("/{id}", handlers.DeleteBookmark(d))
	})
}

package mw

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// CORS lets the listed browser origins call the API. An empty list allows
// no cross-origin calls at all.
func CORS(origins []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		log.Debug("CORS: no allowed origins, cross-origin requests rejected")
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
	return c.Handler
}

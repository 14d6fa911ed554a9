package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/utils"
)

// AllowOnlyCIDRS guards the infra endpoints. An empty list disables the
// check; configuration defaults it to utils.LoopbackCIDRs so a fresh install
// only answers the local machine.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m, rejected := utils.NewIPMatcher(allowed)
	for _, s := range rejected {
		log.Warn("ignoring invalid allow-list entry", logger.String("entry", s))
	}
	if m.IsEmpty() {
		log.Debug("CIDR allow-list empty, infra endpoints open")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Debug("request outside allow-list",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path))
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package mw

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// loopbackHosts are always accepted so the local CLI and UI keep working
// when SHELF_ALLOWED_HOSTS names a public hostname.
var loopbackHosts = []string{"localhost", "127.0.0.1", "::1"}

// hostRules holds exact names and "*.example.com" suffixes, lowercased.
type hostRules struct {
	exact    map[string]bool
	suffixes []string
}

func newHostRules(allowed []string) hostRules {
	rules := hostRules{exact: make(map[string]bool)}
	for _, h := range append(allowed, loopbackHosts...) {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "":
		case strings.HasPrefix(h, "*."):
			rules.suffixes = append(rules.suffixes, h[1:])
		default:
			rules.exact[h] = true
		}
	}
	return rules
}

func (hr hostRules) match(host string) bool {
	host = strings.ToLower(stripPort(host))
	if hr.exact[host] {
		return true
	}
	for _, suffix := range hr.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

// EnforceHost rejects requests whose Host header is not allowed, which keeps
// DNS-rebinding pages away from the session. Ports are ignored. An empty list
// disables the check.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rules := newHostRules(allowedHosts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rules.match(r.Host) {
				log.Debug("host not allowed", logger.String("host", r.Host))
				writeError(w, http.StatusForbidden, "host not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

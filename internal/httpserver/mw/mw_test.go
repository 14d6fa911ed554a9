package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/utils"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestRateLimitRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 60, Now: func() time.Time { return now }})(ok)

	hit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if hit() != http.StatusOK {
		t.Fatal("first request limited")
	}
	if hit() != http.StatusTooManyRequests {
		t.Fatal("second request allowed")
	}
	now = now.Add(time.Second)
	if hit() != http.StatusOK {
		t.Error("bucket did not refill after a second")
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"shelf.example.com", "*.Example.org"}, logger.Nop())(ok)
	tests := []struct {
		host string
		want int
	}{
		{"shelf.example.com", http.StatusOK},
		{"SHELF.example.com:8080", http.StatusOK},
		{"a.example.org", http.StatusOK},
		{"example.org", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
		{"localhost:7878", http.StatusOK},
		{"127.0.0.1:7878", http.StatusOK},
		{"[::1]:7878", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("Host %q = %d, want %d", tt.host, rec.Code, tt.want)
		}
	}
}

func TestEnforceHostEmptyListPassesThrough(t *testing.T) {
	h := EnforceHost(nil, logger.Nop())(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "anything.test"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLogTagsRequestIDAndUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	user := "ada"
	h := middleware.RequestID(Log(logger.FromZap(zap.New(core)), func() string { return user })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/boom" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte("hello"))
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/session", nil))
	user = ""
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["request_id"] == "" || first["request_id"] == nil {
		t.Errorf("request_id missing: %v", first)
	}
	if first["user"] != "ada" || first["bytes"] != int64(5) || first["status"] != int64(http.StatusOK) {
		t.Errorf("fields = %v", first)
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("level = %s, want info", entries[0].Level)
	}

	second := entries[1].ContextMap()
	if _, ok := second["user"]; ok {
		t.Errorf("signed-out request logged a user: %v", second)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("5xx level = %s, want error", entries[1].Level)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"127.0.0.1", "10.0.0.0/8"}, false, logger.Nop())(ok)
	tests := map[string]int{
		"127.0.0.1:5000": http.StatusOK,
		"10.1.2.3:5000":  http.StatusOK,
		"192.168.1.1:80": http.StatusForbidden,
	}
	for addr, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/infra", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s = %d, want %d", addr, rec.Code, want)
		}
	}
}

func TestRequireSession(t *testing.T) {
	authenticated := false
	h := RequireSession(func() bool { return authenticated })(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d", rec.Code)
	}

	authenticated = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated = %d", rec.Code)
	}
}

func TestAllowOnlyCIDRSLoopbackDefault(t *testing.T) {
	h := AllowOnlyCIDRS(utils.LoopbackCIDRs, true, logger.Nop())(ok)
	tests := []struct {
		name, remote, xff string
		want              int
	}{
		{"local v4", "127.0.0.1:5000", "", http.StatusOK},
		{"local v6", "[::1]:5000", "", http.StatusOK},
		{"lan", "192.168.1.1:5000", "", http.StatusForbidden},
		{"forwarded from outside", "127.0.0.1:5000", "8.8.8.8", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/infra", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

// Package apitest provides an in-memory bookmark backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Backend mimics the REST API: auth, users and bookmarks with an archived
// flag. Tokens are opaque strings minted by login and refresh.
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[int64]domain.User
	tokens    map[string]int64
	bookmarks map[int64]*stored
	nextUser  int64
	nextMark  int64
	nextToken int
	failures  map[string]int
	requests  map[string]int
	lastIDs   []string

	// RefreshShape selects the refresh response body: "token",
	// "access_token", "data.token" or "data.access_token".
	RefreshShape string
}

type stored struct {
	domain.Bookmark
	archived bool
}

// New starts a backend closed with t.Cleanup.
func New(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		users:     make(map[int64]domain.User),
		tokens:    make(map[string]int64),
		bookmarks: make(map[int64]*stored),
		failures:  make(map[string]int),
		requests:  make(map[string]int),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/auth/register", b.register)
	r.Post("/auth/login", b.login)

	r.Group(func(r chi.Router) {
		r.Use(b.auth)
		r.Post("/auth/refresh", b.refresh)
		r.Post("/auth/token", b.refresh)
		r.Get("/users/{id}", b.getUser)
		r.Get("/bookmarks", b.list(false))
		r.Get("/bookmarks/archived", b.list(true))
		r.Post("/bookmarks", b.create)
		r.Put("/bookmarks/{id}", b.update)
		r.Put("/bookmarks/{id}/archive", b.archive)
		r.Delete("/bookmarks/{id}", b.remove)
	})
	return r
}

// ─────────────────────────────
// Fixtures and inspection
// ─────────────────────────────

// AddUser registers a user directly and returns it with its id.
func (b *Backend) AddUser(username, email, password string) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextUser++
	u := domain.User{ID: b.nextUser, Username: username, Email: email, Password: password}
	b.users[u.ID] = u
	return u.Sanitized()
}

// IssueToken mints a valid token for user id.
func (b *Backend) IssueToken(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(userID)
}

func (b *Backend) issueLocked(userID int64) string {
	b.nextToken++
	tok := "tok-" + strconv.Itoa(b.nextToken)
	b.tokens[tok] = userID
	return tok
}

// RevokeAll invalidates every token.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]int64)
}

// Seed stores a bookmark and returns it with its id.
func (b *Backend) Seed(bm domain.Bookmark, archived bool) domain.Bookmark {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextMark++
	bm.ID = b.nextMark
	if bm.CreatedAt.IsZero() {
		bm.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(bm.ID) * time.Hour)
	}
	bm.UpdatedAt = bm.CreatedAt
	b.bookmarks[bm.ID] = &stored{Bookmark: bm, archived: archived}
	return bm
}

// FailNext makes the next n requests on route answer 500. route is the
// method and literal path, ex: "PUT /bookmarks/5/archive".
func (b *Backend) FailNext(route string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = n
}

// Requests counts requests received on route, keyed like FailNext.
func (b *Backend) Requests(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

// RequestIDs returns the X-Request-ID header of every request, in order.
func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lastIDs...)
}

// Archived reports whether bookmark id is archived server-side.
func (b *Backend) Archived(id int64) (archived, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.bookmarks[id]
	if !ok {
		return false, false
	}
	return s.archived, true
}

// ─────────────────────────────
// Middleware
// ─────────────────────────────

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.requests[route]++
		b.lastIDs = append(b.lastIDs, r.Header.Get("X-Request-ID"))
		fail := b.failures[route] > 0
		if fail {
			b.failures[route]--
		}
		b.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		_, valid := b.tokens[tok]
		b.mu.Unlock()
		if !ok || !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─────────────────────────────
// Handlers
// ─────────────────────────────

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in domain.User
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": []string{"email should not be empty"}})
		return
	}
	b.mu.Lock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, in.Email) {
			b.mu.Unlock()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Email already registered"})
			return
		}
	}
	b.nextUser++
	in.ID = b.nextUser
	b.users[in.ID] = in
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, in.Sanitized())
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, in.Email) && u.Password == in.Password {
			tok := b.issueLocked(u.ID)
			// The login payload carries a partial user, the full profile
			// comes from /users/{id}.
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": tok,
				"user":         map[string]any{"id": u.ID, "username": u.Username},
			})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	old := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	userID := b.tokens[old]
	tok := b.issueLocked(userID)
	shape := b.RefreshShape
	b.mu.Unlock()

	switch shape {
	case "access_token":
		writeJSON(w, http.StatusOK, map[string]string{"access_token": tok})
	case "data.token":
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": tok}})
	case "data.access_token":
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"access_token": tok}})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": tok})
	}
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b.mu.Lock()
	u, ok := b.users[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, u.Sanitized())
}

func (b *Backend) list(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		out := make([]domain.Bookmark, 0, len(b.bookmarks))
		for _, s := range b.bookmarks {
			if s.archived == archived {
				out = append(out, s.Bookmark)
			}
		}
		b.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	}
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewBookmark
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Body == "" || in.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": []string{"body should not be empty", "url must be a URL address"}})
		return
	}
	bm := b.Seed(domain.Bookmark{Body: in.Body, URL: in.URL, Description: in.Description}, false)
	writeJSON(w, http.StatusCreated, map[string]any{"data": bm})
}

func (b *Backend) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.BookmarkPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	b.withBookmark(w, r, func(s *stored) {
		if patch.Body != nil {
			s.Body = *patch.Body
		}
		if patch.Description != nil {
			s.Description = *patch.Description
		}
		if patch.URL != nil {
			s.URL = *patch.URL
		}
		if patch.IconURL != nil {
			s.IconURL = *patch.IconURL
		}
	})
}

func (b *Backend) archive(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	b.withBookmark(w, r, func(s *stored) { s.archived = in.Archived })
}

func (b *Backend) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b.mu.Lock()
	_, ok := b.bookmarks[id]
	delete(b.bookmarks, id)
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Bookmark not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) withBookmark(w http.ResponseWriter, r *http.Request, mutate func(*stored)) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b.mu.Lock()
	s, ok := b.bookmarks[id]
	if ok {
		mutate(s)
		s.UpdatedAt = s.UpdatedAt.Add(time.Minute)
	}
	var out domain.Bookmark
	if ok {
		out = s.Bookmark
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Bookmark not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

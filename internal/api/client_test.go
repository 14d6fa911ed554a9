package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/api"
	"github.com/MrSnakeDoc/shelf/internal/api/apitest"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/google/uuid"
)

func newClient(t *testing.T, baseURL string, opts ...api.Option) *api.Client {
	t.Helper()
	c, err := api.New(baseURL, opts...)
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	return c
}

func TestNewValidatesURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "http://localhost:3000", wantErr: false},
		{in: "https://api.example.com/v1/", wantErr: false},
		{in: "localhost:3000", wantErr: true},
		{in: "ftp://example.com", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		_, err := api.New(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestLoginAndGetUser(t *testing.T) {
	ctx := context.Background()
	backend := apitest.New(t)
	ada := backend.AddUser("ada", "ada@example.com", "pw")
	c := newClient(t, backend.URL)

	res, err := c.Login(ctx, " ada@example.com ", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" || res.User.ID != ada.ID {
		t.Fatalf("Login() = %+v", res)
	}
	if res.User.Email != "" {
		t.Errorf("login payload is partial, got email %q", res.User.Email)
	}

	full, err := c.GetUser(ctx, res.Token, res.User.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if full != ada {
		t.Errorf("GetUser() = %+v, want %+v", full, ada)
	}
}

func TestLoginErrors(t *testing.T) {
	ctx := context.Background()
	backend := apitest.New(t)
	backend.AddUser("ada", "ada@example.com", "pw")
	c := newClient(t, backend.URL)

	_, err := c.Login(ctx, "ada@example.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if domain.IsUnauthorized(err) {
		t.Error("bad credentials must not look like an expired session")
	}

	var vErr *domain.ValidationError
	if _, err := c.Login(ctx, "", "pw"); !errors.As(err, &vErr) || vErr.Message != domain.MsgMissingCredentials {
		t.Errorf("empty email error = %v", err)
	}
	if backend.Requests("POST /auth/login") != 1 {
		t.Error("validation failures must not reach the backend")
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	backend := apitest.New(t)
	c := newClient(t, backend.URL)

	u := domain.User{Username: "bob", Email: "bob@example.com", Password: "pw"}
	if err := c.Register(ctx, u); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := c.Register(ctx, u)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Email already registered" {
		t.Errorf("duplicate Register() error = %v", err)
	}

	if err := c.Register(ctx, domain.User{Username: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("incomplete Register() error = %v, want validation error", err)
	}
}

func TestRefreshTokenShapes(t *testing.T) {
	for _, shape := range []string{"token", "access_token", "data.token", "data.access_token"} {
		t.Run(shape, func(t *testing.T) {
			backend := apitest.New(t)
			backend.RefreshShape = shape
			u := backend.AddUser("ada", "ada@example.com", "pw")
			tok := backend.IssueToken(u.ID)

			fresh, err := newClient(t, backend.URL).RefreshToken(context.Background(), tok)
			if err != nil {
				t.Fatalf("RefreshToken() error = %v", err)
			}
			if fresh == "" || fresh == tok {
				t.Errorf("RefreshToken() = %q, want a new token", fresh)
			}
		})
	}
}

func TestRefreshTokenCustomPath(t *testing.T) {
	backend := apitest.New(t)
	u := backend.AddUser("ada", "ada@example.com", "pw")
	tok := backend.IssueToken(u.ID)

	c := newClient(t, backend.URL, api.WithRefreshPath("auth/token"))
	if _, err := c.RefreshToken(context.Background(), tok); err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if backend.Requests("POST /auth/token") != 1 {
		t.Error("custom refresh path not used")
	}
}

func TestRefreshTokenUnauthorized(t *testing.T) {
	backend := apitest.New(t)
	_, err := newClient(t, backend.URL).RefreshToken(context.Background(), "stale")
	if !domain.IsUnauthorized(err) {
		t.Errorf("RefreshToken(stale) error = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshTokenWithoutTokenInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL).RefreshToken(context.Background(), "tok"); err == nil {
		t.Error("RefreshToken() should fail when no token comes back")
	}
}

func TestBookmarkCRUD(t *testing.T) {
	ctx := context.Background()
	backend := apitest.New(t)
	u := backend.AddUser("ada", "ada@example.com", "pw")
	tok := backend.IssueToken(u.ID)
	c := newClient(t, backend.URL)

	created, err := c.CreateBookmark(ctx, tok, domain.NewBookmark{Body: "Go", URL: "https://go.dev"})
	if err != nil {
		t.Fatalf("CreateBookmark() error = %v", err)
	}
	if created.ID == 0 || created.Body != "Go" {
		t.Fatalf("CreateBookmark() = %+v", created)
	}

	title := "Go website"
	updated, err := c.UpdateBookmark(ctx, tok, created.ID, domain.BookmarkPatch{Body: &title})
	if err != nil || updated.Body != title || updated.URL != "https://go.dev" {
		t.Fatalf("UpdateBookmark() = %+v, %v", updated, err)
	}

	if _, err := c.ArchiveBookmark(ctx, tok, created.ID, true); err != nil {
		t.Fatalf("ArchiveBookmark() error = %v", err)
	}
	active, err := c.ListBookmarks(ctx, tok)
	if err != nil || len(active) != 0 {
		t.Errorf("ListBookmarks() = %v, %v; want empty", active, err)
	}
	archived, err := c.ListArchivedBookmarks(ctx, tok)
	if err != nil || len(archived) != 1 || archived[0].ID != created.ID {
		t.Errorf("ListArchivedBookmarks() = %v, %v", archived, err)
	}

	if err := c.DeleteBookmark(ctx, tok, created.ID); err != nil {
		t.Fatalf("DeleteBookmark() error = %v", err)
	}
	var apiErr *domain.APIError
	if err := c.DeleteBookmark(ctx, tok, created.ID); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("second DeleteBookmark() error = %v, want 404", err)
	}
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	backend := apitest.New(t)
	u := backend.AddUser("ada", "ada@example.com", "pw")
	tok := backend.IssueToken(u.ID)
	c := newClient(t, backend.URL)

	if _, err := c.ListBookmarks(ctx, "nope"); !domain.IsUnauthorized(err) {
		t.Errorf("bad token error = %v, want ErrUnauthorized", err)
	}

	backend.FailNext("GET /bookmarks", 1)
	_, err := c.ListBookmarks(ctx, tok)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 || apiErr.Message != "injected failure" {
		t.Errorf("server error = %v", err)
	}

	_, err = c.CreateBookmark(ctx, tok, domain.NewBookmark{})
	if !errors.As(err, &apiErr) || apiErr.Message != "body should not be empty; url must be a URL address" {
		t.Errorf("validation message list = %v", err)
	}

	backend.Close()
	if _, err := c.ListBookmarks(ctx, tok); !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("closed server error = %v, want ErrNetwork", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ctx := context.Background()
	backend := apitest.New(t)
	u := backend.AddUser("ada", "ada@example.com", "pw")
	tok := backend.IssueToken(u.ID)
	c := newClient(t, backend.URL)

	_, _ = c.ListBookmarks(ctx, tok)
	_, _ = c.ListBookmarks(ctx, tok)

	ids := backend.RequestIDs()
	if len(ids) != 2 {
		t.Fatalf("got %d requests, want 2", len(ids))
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("X-Request-ID %q is not a uuid", id)
		}
	}
	if ids[0] == ids[1] {
		t.Error("request ids should be unique")
	}
}

func TestListAcceptsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"body":"a","url":"u","visit":2}]`))
	}))
	defer srv.Close()

	got, err := newClient(t, srv.URL).ListBookmarks(context.Background(), "tok")
	if err != nil || len(got) != 1 || got[0].Visits != 2 {
		t.Errorf("ListBookmarks() = %+v, %v", got, err)
	}
}

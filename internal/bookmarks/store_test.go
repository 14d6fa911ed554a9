package bookmarks_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/api"
	"github.com/MrSnakeDoc/shelf/internal/api/apitest"
	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/notify"
)

type staticToken struct {
	mu  sync.Mutex
	tok string
}

func (s *staticToken) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok
}

func (s *staticToken) clear() {
	s.mu.Lock()
	s.tok = ""
	s.mu.Unlock()
}

type fixture struct {
	backend  *apitest.Backend
	tokens   *staticToken
	recorder *notify.Recorder
	store    *bookmarks.Store
	logouts  int
}

func newFixture(t *testing.T, opts ...bookmarks.Option) *fixture {
	t.Helper()
	backend := apitest.New(t)
	u := backend.AddUser("ada", "ada@example.com", "pw")
	client, err := api.New(backend.URL)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		backend:  backend,
		tokens:   &staticToken{tok: backend.IssueToken(u.ID)},
		recorder: &notify.Recorder{},
	}
	opts = append([]bookmarks.Option{
		bookmarks.WithNotifier(f.recorder),
		bookmarks.WithUnauthorizedHandler(func(context.Context) {
			f.logouts++
			f.tokens.clear()
		}),
	}, opts...)
	f.store = bookmarks.NewStore(client, f.tokens, opts...)
	return f
}

func lastMessage(t *testing.T, r *notify.Recorder) notify.Notification {
	t.Helper()
	n, ok := r.Last()
	if !ok {
		t.Fatal("no notification emitted")
	}
	return n
}

func TestFetchBookmarks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.Seed(domain.Bookmark{Body: "a", URL: "https://a.test"}, false)
	f.backend.Seed(domain.Bookmark{Body: "b", URL: "https://b.test"}, false)
	f.backend.Seed(domain.Bookmark{Body: "old", URL: "https://old.test"}, true)

	got, err := f.store.FetchBookmarks(ctx)
	if err != nil || len(got) != 2 {
		t.Fatalf("FetchBookmarks() = %v, %v", got, err)
	}
	st := f.store.State(bookmarks.ViewActive)
	if len(st.Bookmarks) != 2 || st.Loading || st.Error != "" {
		t.Errorf("active state = %+v", st)
	}

	if _, err := f.store.FetchArchivedBookmarks(ctx); err != nil {
		t.Fatal(err)
	}
	if arch := f.store.State(bookmarks.ViewArchived); len(arch.Bookmarks) != 1 || arch.Bookmarks[0].Body != "old" {
		t.Errorf("archived state = %+v", arch)
	}
}

func TestFetchFailureSetsError(t *testing.T) {
	f := newFixture(t)
	f.backend.FailNext("GET /bookmarks", 1)

	if _, err := f.store.FetchBookmarks(context.Background()); err == nil {
		t.Fatal("FetchBookmarks() should fail")
	}
	st := f.store.State(bookmarks.ViewActive)
	if st.Loading || st.Error == "" {
		t.Errorf("state after failure = %+v", st)
	}
}

func TestOperationsWithoutToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tokens.clear()

	calls := []struct {
		name string
		view bookmarks.View
		run  func() error
	}{
		{"fetch", bookmarks.ViewActive, func() error { _, err := f.store.FetchBookmarks(ctx); return err }},
		{"fetch archived", bookmarks.ViewArchived, func() error { _, err := f.store.FetchArchivedBookmarks(ctx); return err }},
		{"create", bookmarks.ViewActive, func() error { _, err := f.store.CreateBookmark(ctx, "t", "https://u", ""); return err }},
		{"update", bookmarks.ViewActive, func() error {
			title := "x"
			_, err := f.store.UpdateBookmark(ctx, 1, domain.BookmarkPatch{Body: &title})
			return err
		}},
		{"archive", bookmarks.ViewActive, func() error { _, err := f.store.ArchiveBookmark(ctx, 1, true); return err }},
		{"delete", bookmarks.ViewActive, func() error { return f.store.DeleteBookmark(ctx, 1) }},
	}

	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			if err := c.run(); !errors.Is(err, domain.ErrNotAuthenticated) {
				t.Errorf("error = %v, want ErrNotAuthenticated", err)
			}
			if st := f.store.State(c.view); st.Error != domain.MsgNotAuthenticated {
				t.Errorf("state error = %q, want %q", st.Error, domain.MsgNotAuthenticated)
			}
		})
	}

	for _, route := range []string{"GET /bookmarks", "GET /bookmarks/archived", "POST /bookmarks", "PUT /bookmarks/1", "PUT /bookmarks/1/archive", "DELETE /bookmarks/1"} {
		if n := f.backend.Requests(route); n != 0 {
			t.Errorf("%s called %d times without a token", route, n)
		}
	}
}

func TestCreateBookmark(t *testing.T) {
	ctx := context.Background()

	t.Run("success prepends and notifies", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Seed(domain.Bookmark{Body: "existing", URL: "https://e.test"}, false)
		if _, err := f.store.FetchBookmarks(ctx); err != nil {
			t.Fatal(err)
		}

		created, err := f.store.CreateBookmark(ctx, "  Example ", "https://example.com", "")
		if err != nil {
			t.Fatalf("CreateBookmark() error = %v", err)
		}
		st := f.store.State(bookmarks.ViewActive)
		if len(st.Bookmarks) != 2 || st.Bookmarks[0].ID != created.ID || st.Bookmarks[0].Body != "Example" {
			t.Errorf("active = %+v", st.Bookmarks)
		}
		if n := lastMessage(t, f.recorder); n.Level != notify.LevelSuccess || n.Message != bookmarks.MsgCreated {
			t.Errorf("notification = %+v", n)
		}
	})

	t.Run("empty title fails locally", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.CreateBookmark(ctx, "   ", "https://example.com", "")
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Message != domain.MsgTitleRequired {
			t.Errorf("error = %v, want %q", err, domain.MsgTitleRequired)
		}
		if f.backend.Requests("POST /bookmarks") != 0 {
			t.Error("validation failure reached the backend")
		}
		if st := f.store.State(bookmarks.ViewActive); st.Error != domain.MsgTitleRequired {
			t.Errorf("state.Error = %q, want %q", st.Error, domain.MsgTitleRequired)
		}
	})

	t.Run("empty url fails locally", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.CreateBookmark(ctx, "Example", " ", "")
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Message != domain.MsgURLRequired {
			t.Errorf("error = %v, want %q", err, domain.MsgURLRequired)
		}
		if f.backend.Requests("POST /bookmarks") != 0 {
			t.Error("validation failure reached the backend")
		}
		if st := f.store.State(bookmarks.ViewActive); st.Error != domain.MsgURLRequired {
			t.Errorf("state.Error = %q, want %q", st.Error, domain.MsgURLRequired)
		}
	})

	t.Run("server failure sets error and notifies", func(t *testing.T) {
		f := newFixture(t)
		f.backend.FailNext("POST /bookmarks", 1)
		if _, err := f.store.CreateBookmark(ctx, "Example", "https://example.com", ""); err == nil {
			t.Fatal("CreateBookmark() should fail")
		}
		st := f.store.State(bookmarks.ViewActive)
		if st.Error == "" || len(st.Bookmarks) != 0 {
			t.Errorf("state = %+v", st)
		}
		if n := lastMessage(t, f.recorder); n.Level != notify.LevelError {
			t.Errorf("notification = %+v", n)
		}
	})
}

func TestUpdateBookmark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := f.backend.Seed(domain.Bookmark{Body: "old", URL: "https://e.test"}, false)
	if _, err := f.store.FetchBookmarks(ctx); err != nil {
		t.Fatal(err)
	}

	title := "new"
	if _, err := f.store.UpdateBookmark(ctx, seeded.ID, domain.BookmarkPatch{Body: &title}); err != nil {
		t.Fatalf("UpdateBookmark() error = %v", err)
	}
	got, _, ok := f.store.Find(seeded.ID)
	if !ok || got.Body != "new" || got.URL != "https://e.test" {
		t.Errorf("cached = %+v", got)
	}
	if n := lastMessage(t, f.recorder); n.Message != bookmarks.MsgUpdated {
		t.Errorf("notification = %+v", n)
	}

	if _, err := f.store.UpdateBookmark(ctx, seeded.ID, domain.BookmarkPatch{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty patch error = %v", err)
	}

	blank := " "
	before := f.backend.Requests("PUT /bookmarks/" + strconv.FormatInt(seeded.ID, 10))
	if _, err := f.store.UpdateBookmark(ctx, seeded.ID, domain.BookmarkPatch{Body: &blank}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank title error = %v", err)
	}
	if st := f.store.State(bookmarks.ViewActive); st.Error != domain.MsgTitleRequired {
		t.Errorf("state.Error = %q, want %q", st.Error, domain.MsgTitleRequired)
	}
	if f.backend.Requests("PUT /bookmarks/"+strconv.FormatInt(seeded.ID, 10)) != before {
		t.Error("invalid patch reached the backend")
	}
}

func TestArchiveBookmark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var five domain.Bookmark
	for i := 0; i < 5; i++ {
		five = f.backend.Seed(domain.Bookmark{Body: "b", URL: "https://b.test"}, false)
	}
	if five.ID != 5 {
		t.Fatalf("seeded id = %d, want 5", five.ID)
	}
	if _, err := f.store.FetchBookmarks(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.store.ArchiveBookmark(ctx, 5, true); err != nil {
		t.Fatalf("ArchiveBookmark() error = %v", err)
	}
	active := f.store.State(bookmarks.ViewActive).Bookmarks
	if len(active) != 4 {
		t.Errorf("active has %d records, want the other 4 kept", len(active))
	}
	for _, b := range active {
		if b.ID == 5 {
			t.Error("id 5 still in the active view")
		}
	}
	if arch := f.store.State(bookmarks.ViewArchived).Bookmarks; len(arch) != 1 || arch[0].ID != 5 {
		t.Errorf("archived view = %v", arch)
	}
	if n := lastMessage(t, f.recorder); n.Message != bookmarks.MsgArchived {
		t.Errorf("notification = %q, want %q", n.Message, bookmarks.MsgArchived)
	}

	if _, err := f.store.ArchiveBookmark(ctx, 5, false); err != nil {
		t.Fatalf("unarchive error = %v", err)
	}
	if active := f.store.State(bookmarks.ViewActive).Bookmarks; len(active) != 5 || active[0].ID != 5 {
		t.Errorf("active after unarchive = %v", active)
	}
	if arch := f.store.State(bookmarks.ViewArchived).Bookmarks; len(arch) != 0 {
		t.Errorf("archived after unarchive = %v", arch)
	}
	if n := lastMessage(t, f.recorder); n.Message != bookmarks.MsgUnarchived {
		t.Errorf("notification = %q, want %q", n.Message, bookmarks.MsgUnarchived)
	}
	if archived, _ := f.backend.Archived(5); archived {
		t.Error("backend still has id 5 archived")
	}
}

func TestDeleteBookmark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.backend.Seed(domain.Bookmark{Body: "a", URL: "https://a.test"}, false)
	f.backend.Seed(domain.Bookmark{Body: "b", URL: "https://b.test"}, false)
	if _, err := f.store.FetchBookmarks(ctx); err != nil {
		t.Fatal(err)
	}

	if err := f.store.DeleteBookmark(ctx, a.ID); err != nil {
		t.Fatalf("DeleteBookmark() error = %v", err)
	}
	if _, _, ok := f.store.Find(a.ID); ok {
		t.Error("deleted bookmark still cached")
	}
	if n := lastMessage(t, f.recorder); n.Message != bookmarks.MsgDeleted {
		t.Errorf("notification = %+v", n)
	}

	if err := f.store.DeleteBookmark(ctx, a.ID); err == nil {
		t.Error("deleting twice should fail with 404")
	}
	if st := f.store.State(bookmarks.ViewActive); st.Error == "" || len(st.Bookmarks) != 1 {
		t.Errorf("state after failed delete = %+v", st)
	}
}

func TestUnauthorizedRunsHook(t *testing.T) {
	f := newFixture(t)
	f.backend.RevokeAll()

	_, err := f.store.FetchBookmarks(context.Background())
	if !domain.IsUnauthorized(err) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if f.logouts != 1 {
		t.Errorf("unauthorized hook ran %d times, want 1", f.logouts)
	}
	if f.tokens.Token() != "" {
		t.Error("hook should have cleared the token")
	}
}

func TestSearchAndReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.backend.Seed(domain.Bookmark{Body: "Go", URL: "https://go.dev"}, false)
	f.backend.Seed(domain.Bookmark{Body: "Zap", URL: "https://github.com/uber-go/zap"}, false)
	f.backend.Seed(domain.Bookmark{Body: "chi", URL: "https://github.com/go-chi/chi"}, false)
	if _, err := f.store.FetchBookmarks(ctx); err != nil {
		t.Fatal(err)
	}

	got := f.store.Search(bookmarks.ViewActive, "GITHUB", domain.SortAlphabetical)
	if len(got) != 2 || got[0].Body != "chi" || got[1].Body != "Zap" {
		t.Errorf("Search() = %+v", got)
	}

	f.store.Reset()
	if st := f.store.State(bookmarks.ViewActive); len(st.Bookmarks) != 0 {
		t.Errorf("state after Reset = %+v", st)
	}
}

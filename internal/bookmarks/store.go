package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/notify"
)

// View selects one of the two cached collections.
type View int

const (
	ViewActive View = iota
	ViewArchived
)

func (v View) String() string {
	if v == ViewArchived {
		return "archived"
	}
	return "active"
}

// Notification texts.
const (
	MsgCreated    = "Bookmark created successfully"
	MsgUpdated    = "Bookmark updated successfully"
	MsgDeleted    = "Bookmark deleted successfully"
	MsgArchived   = "Bookmark archived successfully"
	MsgUnarchived = "Bookmark unarchived successfully"
)

// Backend is the subset of the API client the store calls.
type Backend interface {
	ListBookmarks(ctx context.Context, token string) ([]domain.Bookmark, error)
	ListArchivedBookmarks(ctx context.Context, token string) ([]domain.Bookmark, error)
	CreateBookmark(ctx context.Context, token string, in domain.NewBookmark) (domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, token string, id int64, patch domain.BookmarkPatch) (domain.Bookmark, error)
	ArchiveBookmark(ctx context.Context, token string, id int64, archived bool) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, token string, id int64) error
}

// TokenSource hands out the current bearer token, "" when logged out.
type TokenSource interface {
	Token() string
}

type Option func(*Store)

func WithNotifier(n notify.Notifier) Option { return func(s *Store) { s.notifier = n } }

func WithLogger(l logger.Logger) Option { return func(s *Store) { s.logger = l } }

// WithUnauthorizedHandler sets the callback run when the backend answers 401.
// It is wired to the session logout.
func WithUnauthorizedHandler(fn func(context.Context)) Option {
	return func(s *Store) { s.onUnauthorized = fn }
}

// WithOrderedResponses drops responses that arrive after a newer response
// for the same bookmark (or the same view, for fetches) was applied.
// Without it, responses are applied in arrival order.
func WithOrderedResponses() Option { return func(s *Store) { s.ordered = true } }

// Store is the client-side cache of bookmarks. All state changes go through
// Reduce; network calls run outside the lock.
type Store struct {
	backend        Backend
	tokens         TokenSource
	notifier       notify.Notifier
	logger         logger.Logger
	onUnauthorized func(context.Context)
	ordered        bool

	mu       sync.Mutex
	views    [2]State
	issued   map[int64]uint64
	applied  map[int64]uint64
	fetchSeq [2]uint64
	fetchApp [2]uint64
}

func NewStore(backend Backend, tokens TokenSource, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		tokens:   tokens,
		notifier: notify.Discard,
		logger:   logger.Nop(),
		issued:   make(map[int64]uint64),
		applied:  make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of one view.
func (s *Store) State(v View) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.views[v]
	st.Bookmarks = slices.Clone(st.Bookmarks)
	if st.Bookmarks == nil {
		st.Bookmarks = []domain.Bookmark{}
	}
	return st
}

// Search filters and sorts the cached view. It never calls the backend.
func (s *Store) Search(v View, query string, order domain.SortOrder) []domain.Bookmark {
	return domain.Search(s.State(v).Bookmarks, query, order)
}

// Find returns the cached bookmark with id from either view.
func (s *Store) Find(id int64) (domain.Bookmark, View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range []View{ViewActive, ViewArchived} {
		for _, b := range s.views[v].Bookmarks {
			if b.ID == id {
				return b, v, true
			}
		}
	}
	return domain.Bookmark{}, ViewActive, false
}

// Reset empties both views. Called when the session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	s.views = [2]State{}
	s.issued = make(map[int64]uint64)
	s.applied = make(map[int64]uint64)
	s.fetchSeq = [2]uint64{}
	s.fetchApp = [2]uint64{}
	s.mu.Unlock()
	s.logger.Debug("bookmark cache reset")
}

func (s *Store) dispatch(v View, actions ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.views[v] = Reduce(s.views[v], a)
	}
}

// token returns the bearer token or records the not-authenticated error on v.
func (s *Store) token(v View) (string, error) {
	tok := s.tokens.Token()
	if tok == "" {
		s.dispatch(v, SetError(domain.MsgNotAuthenticated))
		return "", domain.ErrNotAuthenticated
	}
	return tok, nil
}

// invalid records a local validation failure on v. No request is made.
func (s *Store) invalid(v View, err error) error {
	msg := err.Error()
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		msg = vErr.Message
	}
	s.dispatch(v, SetError(msg))
	return err
}

// fail records a failed call: error state, notification, and the session
// hook on 401.
func (s *Store) fail(ctx context.Context, v View, op string, err error, notifyUser bool) error {
	msg := fmt.Sprintf("Failed to %s: %v", op, err)
	s.dispatch(v, SetError(msg))
	s.logger.Warn("bookmark operation failed",
		logger.String("op", op),
		logger.String("view", v.String()),
		logger.Error(err))
	if notifyUser {
		s.notifier.Notify(notify.Error(msg))
	}
	if domain.IsUnauthorized(err) && s.onUnauthorized != nil {
		s.onUnauthorized(ctx)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) FetchBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	return s.fetch(ctx, ViewActive)
}

func (s *Store) FetchArchivedBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	return s.fetch(ctx, ViewArchived)
}

func (s *Store) fetch(ctx context.Context, v View) ([]domain.Bookmark, error) {
	tok, err := s.token(v)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.views[v] = Reduce(s.views[v], SetLoading(true))
	s.fetchSeq[v]++
	seq := s.fetchSeq[v]
	s.mu.Unlock()

	var list []domain.Bookmark
	if v == ViewArchived {
		list, err = s.backend.ListArchivedBookmarks(ctx, tok)
	} else {
		list, err = s.backend.ListBookmarks(ctx, tok)
	}
	if err != nil {
		op := "fetch bookmarks"
		if v == ViewArchived {
			op = "fetch archived bookmarks"
		}
		return nil, s.fail(ctx, v, op, err, false)
	}

	s.mu.Lock()
	if s.ordered && seq < s.fetchApp[v] {
		s.mu.Unlock()
		s.logger.Debug("dropping stale fetch", logger.String("view", v.String()))
		return list, nil
	}
	s.fetchApp[v] = seq
	s.views[v] = Reduce(s.views[v], SetAll(list))
	s.mu.Unlock()

	s.logger.Debug("bookmarks fetched",
		logger.String("view", v.String()),
		logger.Int("count", len(list)))
	return list, nil
}

// CreateBookmark validates locally, then creates and prepends the record.
func (s *Store) CreateBookmark(ctx context.Context, body, url, description string) (domain.Bookmark, error) {
	tok, err := s.token(ViewActive)
	if err != nil {
		return domain.Bookmark{}, err
	}
	in, err := domain.NewBookmark{Body: body, URL: url, Description: description}.Normalize()
	if err != nil {
		return domain.Bookmark{}, s.invalid(ViewActive, err)
	}

	created, err := s.backend.CreateBookmark(ctx, tok, in)
	if err != nil {
		return domain.Bookmark{}, s.fail(ctx, ViewActive, "create bookmark", err, true)
	}

	s.mu.Lock()
	s.views[ViewActive] = Reduce(s.views[ViewActive], AddOne(created))
	s.mu.Unlock()

	s.notifier.Notify(notify.Success(MsgCreated))
	return created, nil
}

// UpdateBookmark sends a partial update and replaces the cached record.
func (s *Store) UpdateBookmark(ctx context.Context, id int64, patch domain.BookmarkPatch) (domain.Bookmark, error) {
	tok, err := s.token(ViewActive)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.Bookmark{}, s.invalid(ViewActive, err)
	}

	seq := s.issue(id)
	updated, err := s.backend.UpdateBookmark(ctx, tok, id, patch)
	if err != nil {
		return domain.Bookmark{}, s.fail(ctx, ViewActive, "update bookmark", err, true)
	}

	if s.apply(id, seq, func() {
		for _, v := range []View{ViewActive, ViewArchived} {
			s.views[v] = Reduce(s.views[v], UpdateOne(updated))
		}
	}) {
		s.notifier.Notify(notify.Success(MsgUpdated))
	}
	return updated, nil
}

// ArchiveBookmark moves a bookmark between the active and archived views.
func (s *Store) ArchiveBookmark(ctx context.Context, id int64, archived bool) (domain.Bookmark, error) {
	from, to, op, msg := ViewActive, ViewArchived, "archive bookmark", MsgArchived
	if !archived {
		from, to, op, msg = ViewArchived, ViewActive, "unarchive bookmark", MsgUnarchived
	}

	tok, err := s.token(from)
	if err != nil {
		return domain.Bookmark{}, err
	}

	seq := s.issue(id)
	result, err := s.backend.ArchiveBookmark(ctx, tok, id, archived)
	if err != nil {
		return domain.Bookmark{}, s.fail(ctx, from, op, err, true)
	}
	if result.ID == 0 {
		// Some backends answer with an empty body; the id is what matters.
		if cached, _, ok := s.Find(id); ok {
			result = cached
		} else {
			result.ID = id
		}
	}

	if s.apply(id, seq, func() {
		s.views[from] = Reduce(s.views[from], ArchiveOne(id))
		s.views[to] = Reduce(s.views[to], AddOne(result))
	}) {
		s.notifier.Notify(notify.Success(msg))
	}
	return result, nil
}

// DeleteBookmark removes a bookmark from the backend and both views.
func (s *Store) DeleteBookmark(ctx context.Context, id int64) error {
	tok, err := s.token(ViewActive)
	if err != nil {
		return err
	}

	seq := s.issue(id)
	if err := s.backend.DeleteBookmark(ctx, tok, id); err != nil {
		return s.fail(ctx, ViewActive, "delete bookmark", err, true)
	}

	if s.apply(id, seq, func() {
		for _, v := range []View{ViewActive, ViewArchived} {
			s.views[v] = Reduce(s.views[v], DeleteOne(id))
		}
	}) {
		s.notifier.Notify(notify.Success(MsgDeleted))
	}
	return nil
}

// issue hands out the next sequence number for a mutation on id.
func (s *Store) issue(id int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[id]++
	return s.issued[id]
}

// apply runs mutate under the lock unless ordering is on and a newer
// response for id was already applied. It reports whether mutate ran.
func (s *Store) apply(id int64, seq uint64, mutate func()) bool {
	s.mu.Lock()
	if s.ordered && seq < s.applied[id] {
		s.mu.Unlock()
		s.logger.Debug("dropping stale response", logger.Int64("id", id))
		return false
	}
	s.applied[id] = seq
	mutate()
	s.mu.Unlock()
	return true
}

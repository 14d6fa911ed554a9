package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type listResponse struct {
	Data    []domain.Bookmark `json:"data"`
	Total   int               `json:"total"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// ListBookmarks refetches a view and returns it filtered by ?q= and
// ordered by ?sort=.
func ListBookmarks(d deps.Deps, view bookmarks.View) http.HandlerFunc {
	fetch := d.Bookmarks.FetchBookmarks
	if view == bookmarks.ViewArchived {
		fetch = d.Bookmarks.FetchArchivedBookmarks
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := fetch(r.Context()); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		q := r.URL.Query()
		found := d.Bookmarks.Search(view, q.Get("q"), domain.ParseSortOrder(q.Get("sort")))
		st := d.Bookmarks.State(view)
		writeJSON(w, http.StatusOK, listResponse{
			Data:    found,
			Total:   len(st.Bookmarks),
			Loading: st.Loading,
			Error:   st.Error,
		})
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.NewBookmark
		if !decodeJSON(w, r, &req) {
			return
		}
		b, err := d.Bookmarks.CreateBookmark(r.Context(), req.Body, req.URL, req.Description)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": b})
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(w, r)
		if !ok {
			return
		}
		var patch domain.BookmarkPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		b, err := d.Bookmarks.UpdateBookmark(r.Context(), id, patch)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": b})
	}
}

// ArchiveBookmark archives by default; {"archived": false} restores.
func ArchiveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(w, r)
		if !ok {
			return
		}
		var req archiveRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
		archived := req.Archived == nil || *req.Archived

		b, err := d.Bookmarks.ArchiveBookmark(r.Context(), id, archived)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": b})
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookmarkID(w, r)
		if !ok {
			return
		}
		if err := d.Bookmarks.DeleteBookmark(r.Context(), id); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func bookmarkID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid bookmark id", Field: "id"})
		return 0, false
	}
	return id, true
}

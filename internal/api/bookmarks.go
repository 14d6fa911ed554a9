package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func bookmarkPath(id int64) string {
	return "/bookmarks/" + strconv.FormatInt(id, 10)
}

func (c *Client) ListBookmarks(ctx context.Context, token string) ([]domain.Bookmark, error) {
	return c.list(ctx, token, "/bookmarks")
}

func (c *Client) ListArchivedBookmarks(ctx context.Context, token string) ([]domain.Bookmark, error) {
	return c.list(ctx, token, "/bookmarks/archived")
}

func (c *Client) list(ctx context.Context, token, path string) ([]domain.Bookmark, error) {
	raw, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	var out []domain.Bookmark
	if err := decodeData(raw, &out); err != nil {
		return nil, decodeError(http.MethodGet, path, err)
	}
	if out == nil {
		out = []domain.Bookmark{}
	}
	return out, nil
}

func (c *Client) CreateBookmark(ctx context.Context, token string, in domain.NewBookmark) (domain.Bookmark, error) {
	return c.one(ctx, http.MethodPost, "/bookmarks", token, in)
}

func (c *Client) UpdateBookmark(ctx context.Context, token string, id int64, patch domain.BookmarkPatch) (domain.Bookmark, error) {
	return c.one(ctx, http.MethodPut, bookmarkPath(id), token, patch)
}

func (c *Client) ArchiveBookmark(ctx context.Context, token string, id int64, archived bool) (domain.Bookmark, error) {
	return c.one(ctx, http.MethodPut, bookmarkPath(id)+"/archive", token, map[string]bool{"archived": archived})
}

func (c *Client) DeleteBookmark(ctx context.Context, token string, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, bookmarkPath(id), token, nil)
	return err
}

func (c *Client) one(ctx context.Context, method, path, token string, in any) (domain.Bookmark, error) {
	raw, err := c.do(ctx, method, path, token, in)
	if err != nil {
		return domain.Bookmark{}, err
	}
	var out domain.Bookmark
	if err := decodeData(raw, &out); err != nil {
		return domain.Bookmark{}, decodeError(method, path, err)
	}
	return out, nil
}

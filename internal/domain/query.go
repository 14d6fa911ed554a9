package domain

import (
	"slices"
	"strings"
)

// SortOrder controls how listed bookmarks are ordered.
type SortOrder string

const (
	SortRecent       SortOrder = "recent"
	SortOldest       SortOrder = "oldest"
	SortAlphabetical SortOrder = "alphabetical"
	// SortRelevance ranks by fuzzy match score, see ScoreBookmark.
	SortRelevance SortOrder = "relevance"
)

// ParseSortOrder maps user input to a SortOrder. Unknown or empty values
// fall back to SortRecent.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortOldest:
		return SortOldest
	case SortAlphabetical, "alpha", "title":
		return SortAlphabetical
	case SortRelevance, "best":
		return SortRelevance
	default:
		return SortRecent
	}
}

// Matches reports whether query is a case-insensitive substring of the
// title, URL or description. An empty query matches everything.
func (b Bookmark) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Body), q) ||
		strings.Contains(strings.ToLower(b.URL), q) ||
		strings.Contains(strings.ToLower(b.Description), q)
}

// FilterBookmarks returns the bookmarks matching query, preserving order.
func FilterBookmarks(bookmarks []Bookmark, query string) []Bookmark {
	out := make([]Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.Matches(query) {
			out = append(out, b)
		}
	}
	return out
}

// SortBookmarks returns a sorted copy. Missing creation dates sort as the
// zero time, so they land last for SortRecent and first for SortOldest.
func SortBookmarks(bookmarks []Bookmark, order SortOrder) []Bookmark {
	out := slices.Clone(bookmarks)
	switch order {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b Bookmark) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortAlphabetical:
		slices.SortStableFunc(out, func(a, b Bookmark) int {
			return strings.Compare(strings.ToLower(a.Body), strings.ToLower(b.Body))
		})
	default:
		slices.SortStableFunc(out, func(a, b Bookmark) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
	return out
}

// Search filters then sorts. SortRelevance keeps fuzzy matches too and
// orders them by score; without a query it falls back to SortRecent.
func Search(bookmarks []Bookmark, query string, order SortOrder) []Bookmark {
	if order == SortRelevance && strings.TrimSpace(query) != "" {
		ranked := RankBookmarks(bookmarks, query)
		out := make([]Bookmark, len(ranked))
		for i, r := range ranked {
			out[i] = r.Bookmark
		}
		return out
	}
	return SortBookmarks(FilterBookmarks(bookmarks, query), order)
}

package bookmarks

import (
	"slices"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// State is one cached collection with its status flags.
type State struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
}

type ActionKind int

const (
	ActionSetAll ActionKind = iota + 1
	ActionAddOne
	ActionUpdateOne
	ActionDeleteOne
	ActionArchiveOne
	ActionSetLoading
	ActionSetError
)

func (k ActionKind) String() string {
	switch k {
	case ActionSetAll:
		return "set-all"
	case ActionAddOne:
		return "add-one"
	case ActionUpdateOne:
		return "update-one"
	case ActionDeleteOne:
		return "delete-one"
	case ActionArchiveOne:
		return "archive-one"
	case ActionSetLoading:
		return "set-loading"
	case ActionSetError:
		return "set-error"
	default:
		return "unknown"
	}
}

// Action is a state transition request. Only the fields relevant to Kind are read.
type Action struct {
	Kind      ActionKind
	Bookmarks []domain.Bookmark
	Bookmark  domain.Bookmark
	ID        int64
	Loading   bool
	Error     string
}

func SetAll(list []domain.Bookmark) Action { return Action{Kind: ActionSetAll, Bookmarks: list} }
func AddOne(b domain.Bookmark) Action      { return Action{Kind: ActionAddOne, Bookmark: b} }
func UpdateOne(b domain.Bookmark) Action   { return Action{Kind: ActionUpdateOne, Bookmark: b} }
func DeleteOne(id int64) Action            { return Action{Kind: ActionDeleteOne, ID: id} }
func ArchiveOne(id int64) Action           { return Action{Kind: ActionArchiveOne, ID: id} }
func SetLoading(v bool) Action             { return Action{Kind: ActionSetLoading, Loading: v} }
func SetError(msg string) Action           { return Action{Kind: ActionSetError, Error: msg} }

// Reduce returns the state after applying a. It never mutates s and keeps
// ids unique within the collection. Unknown actions return s unchanged.
func Reduce(s State, a Action) State {
	switch a.Kind {
	case ActionSetAll:
		return State{Bookmarks: dedupe(a.Bookmarks)}

	case ActionAddOne:
		next := make([]domain.Bookmark, 0, len(s.Bookmarks)+1)
		next = append(next, a.Bookmark)
		next = append(next, without(s.Bookmarks, a.Bookmark.ID)...)
		return State{Bookmarks: next, Loading: s.Loading}

	case ActionUpdateOne:
		next := slices.Clone(s.Bookmarks)
		for i := range next {
			if next[i].ID == a.Bookmark.ID {
				next[i] = a.Bookmark
			}
		}
		return State{Bookmarks: next, Loading: s.Loading}

	case ActionDeleteOne:
		return State{Bookmarks: without(s.Bookmarks, a.ID), Loading: s.Loading}

	case ActionArchiveOne:
		if !contains(s.Bookmarks, a.ID) {
			return s
		}
		return State{Bookmarks: without(s.Bookmarks, a.ID), Loading: s.Loading}

	case ActionSetLoading:
		s.Loading = a.Loading
		return s

	case ActionSetError:
		s.Error = a.Error
		s.Loading = false
		return s

	default:
		return s
	}
}

// dedupe keeps the first record of every id.
func dedupe(list []domain.Bookmark) []domain.Bookmark {
	seen := make(map[int64]struct{}, len(list))
	out := make([]domain.Bookmark, 0, len(list))
	for _, b := range list {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return out
}

func without(list []domain.Bookmark, id int64) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(list))
	for _, b := range list {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

func contains(list []domain.Bookmark, id int64) bool {
	return slices.ContainsFunc(list, func(b domain.Bookmark) bool { return b.ID == id })
}

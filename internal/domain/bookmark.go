package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bookmark is a saved link as returned by the backend.
//
// Archived status is not a field: a bookmark is archived when it came from
// the archived collection.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (server assigned)
	// ─────────────────────────────

	// ID is unique within a collection.
	ID int64 `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Body is the bookmark title.
	Body        string `json:"body"`
	Description string `json:"description"`
	URL         string `json:"url"`
	IconURL     string `json:"icon_url,omitempty"`
	ShortURL    string `json:"short_url,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// Visits counts redirects through the short URL.
	// The backend names it "visit" or "visits" depending on the endpoint.
	Visits int64 `json:"visits"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// timestampLayouts are tried in order when decoding backend dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type bookmarkWire struct {
	ID          int64  `json:"id"`
	Body        string `json:"body"`
	Description string `json:"description"`
	URL         string `json:"url"`
	IconURL     string `json:"icon_url"`
	ShortURL    string `json:"short_url"`
	Visit       *int64 `json:"visit"`
	Visits      *int64 `json:"visits"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// UnmarshalJSON accepts both visit counter spellings and the date formats
// the backend is known to emit.
func (b *Bookmark) UnmarshalJSON(data []byte) error {
	var w bookmarkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	created, err := parseTimestamp(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	updated, err := parseTimestamp(w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updated_at: %w", err)
	}

	*b = Bookmark{
		ID:          w.ID,
		Body:        w.Body,
		Description: w.Description,
		URL:         w.URL,
		IconURL:     w.IconURL,
		ShortURL:    w.ShortURL,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	switch {
	case w.Visits != nil:
		b.Visits = *w.Visits
	case w.Visit != nil:
		b.Visits = *w.Visit
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// NewBookmark is the payload of a create request.
type NewBookmark struct {
	Body        string `json:"body"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Normalize trims every field and checks the required ones.
// Title is checked before URL, matching the order fields are shown to users.
func (n NewBookmark) Normalize() (NewBookmark, error) {
	out := NewBookmark{
		Body:        strings.TrimSpace(n.Body),
		Description: strings.TrimSpace(n.Description),
		URL:         strings.TrimSpace(n.URL),
	}
	if out.Body == "" {
		return out, &ValidationError{Field: "body", Message: MsgTitleRequired}
	}
	if out.URL == "" {
		return out, &ValidationError{Field: "url", Message: MsgURLRequired}
	}
	return out, nil
}

// BookmarkPatch carries the fields of a partial update. Nil fields are left
// untouched by the backend.
type BookmarkPatch struct {
	Body        *string `json:"body,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	IconURL     *string `json:"icon_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BookmarkPatch) IsEmpty() bool {
	return p.Body == nil && p.Description == nil && p.URL == nil && p.IconURL == nil
}

// Validate rejects patches that would blank a required field.
func (p BookmarkPatch) Validate() error {
	if p.IsEmpty() {
		return &ValidationError{Field: "patch", Message: "Nothing to update"}
	}
	if p.Body != nil && strings.TrimSpace(*p.Body) == "" {
		return &ValidationError{Field: "body", Message: MsgTitleRequired}
	}
	if p.URL != nil && strings.TrimSpace(*p.URL) == "" {
		return &ValidationError{Field: "url", Message: MsgURLRequired}
	}
	return nil
}

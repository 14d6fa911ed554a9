package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/importer"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
)

type recordingStore struct {
	saved []domain.Bookmark
}

func (r *recordingStore) FetchBookmarks(context.Context) ([]domain.Bookmark, error) {
	return r.saved, nil
}

func (r *recordingStore) CreateBookmark(_ context.Context, body, url, _ string) (domain.Bookmark, error) {
	b := domain.Bookmark{ID: int64(len(r.saved) + 1), Body: body, URL: url}
	r.saved = append(r.saved, b)
	return b, nil
}

func TestHomepageImporterOnlyReimportsChangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	write := func(content string, mod time.Time) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	base := time.Now().Add(-time.Hour)
	write("- Dev:\n    - Go:\n        - href: https://go.dev\n", base)

	store := &recordingStore{}
	h := NewHomepageImporter(importer.New(store), &fakeSession{auth: true}, path,
		homepage.FormatAuto, logger.Nop(), time.Hour)
	ctx := context.Background()

	if err := h.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(store.saved))
	}

	// Unchanged file: nothing happens even though the store forgot.
	store.saved = nil
	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 0 {
		t.Error("unchanged file was imported again")
	}

	write("- Dev:\n    - Go:\n        - href: https://go.dev\n    - Rust:\n        - href: https://rust-lang.org\n",
		base.Add(time.Minute))
	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 2 {
		t.Errorf("saved = %d after change, want 2", len(store.saved))
	}
}

func TestHomepageImporterWaitsForSession(t *testing.T) {
	store := &recordingStore{}
	h := NewHomepageImporter(importer.New(store), &fakeSession{}, "/does/not/exist",
		homepage.FormatAuto, logger.Nop(), 0)
	if err := h.Reload(context.Background()); err != nil {
		t.Errorf("Reload() without session error = %v", err)
	}
	if h.job.interval != DefaultHomepageInterval {
		t.Errorf("interval = %v", h.job.interval)
	}
}

func TestHomepageImporterMissingFile(t *testing.T) {
	h := NewHomepageImporter(importer.New(&recordingStore{}), &fakeSession{auth: true},
		filepath.Join(t.TempDir(), "nope.yaml"), homepage.FormatAuto, logger.Nop(), time.Hour)
	if err := h.Reload(context.Background()); err == nil {
		t.Error("Reload() of a missing file error = nil")
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const DefaultSyncInterval = 10 * time.Minute

// Fetcher refreshes the cached bookmark views.
type Fetcher interface {
	FetchBookmarks(ctx context.Context) ([]domain.Bookmark, error)
	FetchArchivedBookmarks(ctx context.Context) ([]domain.Bookmark, error)
}

// Session tells whether there is someone to sync for.
type Session interface {
	IsAuthenticated() bool
}

// BookmarkSyncer periodically refetches both bookmark views while a
// session is active, so a long-running server sees changes made elsewhere.
type BookmarkSyncer struct {
	fetcher Fetcher
	session Session
	logger  logger.Logger
	job     *job
}

func NewBookmarkSyncer(fetcher Fetcher, session Session, log logger.Logger, interval time.Duration) *BookmarkSyncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	s := &BookmarkSyncer{fetcher: fetcher, session: session, logger: log}
	s.job = newJob("bookmark-sync", interval, log, s.Sync)
	return s
}

// Start syncs once, then keeps syncing every interval until Stop or ctx ends.
func (s *BookmarkSyncer) Start(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("initial bookmark sync failed", logger.Error(err))
	}
	s.job.start(ctx)
}

func (s *BookmarkSyncer) Stop() { s.job.stop() }

// Trigger requests an immediate sync. It reports false when one is
// already queued.
func (s *BookmarkSyncer) Trigger() bool { return s.job.requestRun() }

// Sync refetches the active and archived views. Without a session it does
// nothing.
func (s *BookmarkSyncer) Sync(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		s.logger.Debug("bookmark sync skipped, no session")
		return nil
	}

	start := time.Now()
	active, err := s.fetcher.FetchBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("sync active bookmarks: %w", err)
	}
	archived, err := s.fetcher.FetchArchivedBookmarks(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return nil
		}
		return fmt.Errorf("sync archived bookmarks: %w", err)
	}

	s.logger.Info("bookmarks synced",
		logger.Int("active", len(active)),
		logger.Int("archived", len(archived)),
		logger.Duration("took", time.Since(start)))
	return nil
}

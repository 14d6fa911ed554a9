package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/importer"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
)

const DefaultHomepageInterval = 5 * time.Minute

// HomepageImporter re-imports a Homepage config file whenever it changes,
// so links added to the dashboard show up as bookmarks.
type HomepageImporter struct {
	importer *importer.Importer
	session  Session
	file     string
	format   homepage.Format
	logger   logger.Logger
	job      *job

	lastMod time.Time
}

func NewHomepageImporter(
	imp *importer.Importer,
	session Session,
	file string,
	format homepage.Format,
	log logger.Logger,
	interval time.Duration,
) *HomepageImporter {
	if interval <= 0 {
		interval = DefaultHomepageInterval
	}
	h := &HomepageImporter{
		importer: imp,
		session:  session,
		file:     file,
		format:   format,
		logger:   log,
	}
	h.job = newJob("homepage-import", interval, log, h.Reload)
	return h
}

func (h *HomepageImporter) Start(ctx context.Context) {
	if err := h.Reload(ctx); err != nil {
		h.logger.Warn("initial homepage import failed", logger.Error(err))
	}
	h.job.start(ctx)
}

func (h *HomepageImporter) Stop() { h.job.stop() }

func (h *HomepageImporter) Trigger() bool { return h.job.requestRun() }

// Reload imports the file when its modification time moved since the last
// successful import. Only the scheduler goroutine calls it after Start.
func (h *HomepageImporter) Reload(ctx context.Context) error {
	if !h.session.IsAuthenticated() {
		return nil
	}

	info, err := os.Stat(h.file)
	if err != nil {
		return fmt.Errorf("stat homepage file: %w", err)
	}
	if !info.ModTime().After(h.lastMod) {
		return nil
	}

	res, err := h.importer.Import(ctx, h.file, h.format)
	if err != nil {
		return fmt.Errorf("import %s: %w", h.file, err)
	}
	h.lastMod = info.ModTime()
	if res.Created > 0 {
		h.logger.Info("new homepage links imported", logger.Int("created", res.Created))
	}
	return nil
}

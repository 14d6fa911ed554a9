// Package importer creates bookmarks from a Homepage dashboard config.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
)

// Store is the part of the bookmark store the importer drives.
type Store interface {
	FetchBookmarks(ctx context.Context) ([]domain.Bookmark, error)
	CreateBookmark(ctx context.Context, body, url, description string) (domain.Bookmark, error)
}

// Result counts what happened to every link of the file.
type Result struct {
	Created int     `json:"created"`
	Skipped int     `json:"skipped"`
	Failed  int     `json:"failed"`
	Errors  []error `json:"-"`
}

func (r Result) String() string {
	return fmt.Sprintf("%d created, %d skipped, %d failed", r.Created, r.Skipped, r.Failed)
}

type Importer struct {
	store  Store
	logger logger.Logger
	dryRun bool
}

type Option func(*Importer)

// WithDryRun counts what would be created without creating anything.
func WithDryRun() Option { return func(i *Importer) { i.dryRun = true } }

func WithLogger(l logger.Logger) Option { return func(i *Importer) { i.logger = l } }

func New(store Store, opts ...Option) *Importer {
	i := &Importer{store: store, logger: logger.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import loads path and creates one bookmark per link whose URL is not
// already in the active collection. A failed create is counted and the
// import goes on; authentication errors abort it.
func (i *Importer) Import(ctx context.Context, path string, format homepage.Format) (Result, error) {
	links, err := homepage.Load(path, format)
	if err != nil {
		return Result{}, err
	}

	existing, err := i.store.FetchBookmarks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load existing bookmarks: %w", err)
	}
	seen := make(map[string]struct{}, len(existing)+len(links))
	for _, b := range existing {
		seen[normalizeURL(b.URL)] = struct{}{}
	}

	var res Result
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := normalizeURL(link.URL)
		if _, dup := seen[key]; dup {
			res.Skipped++
			i.logger.Debug("import skip, url already saved", logger.String("url", link.URL))
			continue
		}
		seen[key] = struct{}{}

		if i.dryRun {
			res.Created++
			continue
		}

		if _, err := i.store.CreateBookmark(ctx, link.Title, link.URL, link.Description); err != nil {
			if errors.Is(err, domain.ErrNotAuthenticated) || domain.IsUnauthorized(err) {
				return res, err
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", link.URL, err))
			i.logger.Warn("import create failed",
				logger.String("url", link.URL),
				logger.Error(err))
			continue
		}
		res.Created++
	}

	i.logger.Info("homepage import finished",
		logger.String("file", path),
		logger.Int("created", res.Created),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed),
		logger.Bool("dry_run", i.dryRun))
	return res, nil
}

// normalizeURL makes "HTTPS://Example.com/" and "https://example.com" equal.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.Fragment = ""
	return u.String()
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/api"
	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/importer"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/notify"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

// App wires the session, the bookmark cache and their surroundings.
type App struct {
	cfg    *config.Config
	logger logger.Logger

	storage       Storage
	client        *api.Client
	activity      *session.Hub
	session       *session.Manager
	bookmarks     *bookmarks.Store
	notifications *notify.Buffer

	unsubscribe func()
}

type Option func(*options)

type options struct {
	notifiers []notify.Notifier
	storage   Storage
	clock     session.Clock
	apiOpts   []api.Option
}

// WithNotifier adds a notification sink, for example the CLI's stdout.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithStorage replaces the backend cfg.Storage would open.
func WithStorage(s Storage) Option { return func(o *options) { o.storage = s } }

func WithClock(c session.Clock) Option { return func(o *options) { o.clock = c } }

// WithAPIOptions passes extra options to the API client.
func WithAPIOptions(opts ...api.Option) Option {
	return func(o *options) { o.apiOpts = append(o.apiOpts, opts...) }
}

// New builds the app. It does not restore the session; call Restore.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client, err := api.New(cfg.APIURL, append([]api.Option{
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRefreshPath(cfg.RefreshPath),
		api.WithLogger(log),
	}, o.apiOpts...)...)
	if err != nil {
		return nil, err
	}

	storage := o.storage
	if storage == nil {
		if storage, err = OpenStorage(ctx, cfg, log); err != nil {
			return nil, err
		}
	}

	buffer := notify.NewBuffer(cfg.NotificationBuffer)
	notifier := notify.Multi(append([]notify.Notifier{notify.Log(log), buffer}, o.notifiers...)...)

	sessOpts := []session.Option{session.WithNotifier(notifier)}
	if o.clock != nil {
		sessOpts = append(sessOpts, session.WithClock(o.clock))
	}
	sess := session.NewManager(session.Config{
		InactivityTimeout: cfg.SessionTimeout,
		RefreshThrottle:   cfg.RefreshThrottle,
		RefreshTimeout:    cfg.HTTPTimeout,
	}, storage, client, log.With(logger.String("component", "session")), sessOpts...)

	storeOpts := []bookmarks.Option{
		bookmarks.WithNotifier(notifier),
		bookmarks.WithLogger(log.With(logger.String("component", "bookmarks"))),
		bookmarks.WithUnauthorizedHandler(sess.Logout),
	}
	if cfg.OrderedResponses {
		storeOpts = append(storeOpts, bookmarks.WithOrderedResponses())
	}
	store := bookmarks.NewStore(client, sess, storeOpts...)

	// A cache must never outlive the session that filled it.
	unsubscribe := sess.Subscribe(func(ev session.Event) {
		switch ev.Kind {
		case session.EventLogout, session.EventExpired, session.EventLogin:
			store.Reset()
		}
	})

	return &App{
		cfg:           cfg,
		logger:        log,
		storage:       storage,
		client:        client,
		activity:      session.NewHub(),
		session:       sess,
		bookmarks:     store,
		notifications: buffer,
		unsubscribe:   unsubscribe,
	}, nil
}

func (a *App) Client() *api.Client { return a.client }
func (a *App) Session() *session.Manager { return a.session }
func (a *App) Bookmarks() *bookmarks.Store { return a.bookmarks }
func (a *App) Activity() *session.Hub { return a.activity }
func (a *App) Notifications() *notify.Buffer { return a.notifications }
func (a *App) StorageName() string { return a.storage.Name() }
func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() logger.Logger { return a.logger }
func (a *App) Restore(ctx context.Context) session.Snapshot { return a.session.Restore(ctx) }

// Importer returns a Homepage importer driving the bookmark cache.
func (a *App) Importer(dryRun bool) *importer.Importer {
	opts := []importer.Option{importer.WithLogger(a.logger)}
	if dryRun {
		opts = append(opts, importer.WithDryRun())
	}
	return importer.New(a.bookmarks, opts...)
}

// SignIn logs in against the backend and starts the session with the most
// complete user record available.
func (a *App) SignIn(ctx context.Context, email, password string) (session.Snapshot, error) {
	res, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := a.session.Login(ctx, res.Token, res.User); err != nil {
		return session.Snapshot{}, err
	}
	return a.session.Snapshot(), nil
}

// Close stops timers and releases the storage backend.
func (a *App) Close() {
	a.session.StopActivityListener()
	a.unsubscribe()
	a.session.Close()
	utils.MustClose(a.storage, "session storage", a.logger)
}

// Serve restores the session and runs the local server with its background
// jobs until SIGINT/SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infof("🚀 Starting shelf %s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Debugf("cfg: %+v", a.cfg.Redacted())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap := a.Restore(ctx)
	a.logger.Info("session state", logger.String("state", snap.State.String()))
	a.session.StartActivityListener(a.activity)

	d := deps.Deps{
		Logger:         a.logger,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		AllowedHosts:   a.cfg.AllowedHosts,
		AllowedCIDRS:   a.cfg.AllowedCIDRS,
		AllowedOrigins: a.cfg.AllowedOrigins,
		TrustProxy:     a.cfg.TrustProxy,
		RequestTimeout: a.cfg.RequestTimeout,
		AuthRateLimit: mw.RateLimitConfig{
			Burst:             a.cfg.AuthBurst,
			RefillPerIPPerMin: a.cfg.AuthRefillPerMin,
			MaxEntries:        mw.DefaultAuthRateLimit.MaxEntries,
			TrustProxy:        a.cfg.TrustProxy,
		},
		Auth:          a.client,
		Session:       a.session,
		Activity:      a.activity,
		Bookmarks:     a.bookmarks,
		Notifications: a.notifications,
		Storage:       a.storage,
		APIBaseURL:    a.client.BaseURL(),
	}

	var stoppers []func()
	if a.cfg.SyncInterval > 0 {
		syncer := scheduler.NewBookmarkSyncer(a.bookmarks, a.session, a.logger, a.cfg.SyncInterval)
		syncer.Start(ctx)
		stoppers = append(stoppers, syncer.Stop)
		d.SyncTrigger = syncer
		a.logger.Info("bookmark sync started", logger.Duration("interval", a.cfg.SyncInterval))
	}
	if a.cfg.HomepageFile != "" {
		format, err := homepage.ParseFormat(a.cfg.HomepageFormat)
		if err != nil {
			return err
		}
		imp := scheduler.NewHomepageImporter(a.Importer(false), a.session, a.cfg.HomepageFile,
			format, a.logger, a.cfg.HomepageInterval)
		imp.Start(ctx)
		stoppers = append(stoppers, imp.Stop)
		d.HomepageTrigger = imp
		a.logger.Info("homepage import started", logger.String("file", a.cfg.HomepageFile))
	}
	defer func() {
		for _, s := range stoppers {
			s()
		}
	}()

	server := httpserver.New(a.cfg, a.logger, d)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	a.logger.Info("✅ shelf stopped cleanly")
	return nil
}

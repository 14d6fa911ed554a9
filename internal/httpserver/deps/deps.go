package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/api"
	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/notify"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

// AuthBackend is the part of the API client the auth routes proxy to.
type AuthBackend interface {
	Register(ctx context.Context, u domain.User) error
	SignIn(ctx context.Context, email, password string) (api.LoginResult, error)
}

// Storage describes the session storage backend on /infra.
type Storage interface {
	Name() string
}

// Trigger starts a background job immediately. It reports false when a run
// is already queued.
type Trigger interface {
	Trigger() bool
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	AllowedHosts   []string // Host headers allowed to access the server
	AllowedCIDRS   []string // IPs allowed to access healthz/readyz/infra/reload
	AllowedOrigins []string // browser origins allowed by CORS
	TrustProxy     bool     // true if running behind a trusted reverse proxy
	AuthRateLimit  mw.RateLimitConfig
	RequestTimeout time.Duration

	Auth          AuthBackend
	Session       *session.Manager
	Activity      *session.Hub
	Bookmarks     *bookmarks.Store
	Notifications *notify.Buffer
	Storage       Storage
	APIBaseURL    string

	SyncTrigger     Trigger // nil when background sync is off
	HomepageTrigger Trigger // nil when no Homepage file is watched
}

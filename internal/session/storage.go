package session

import "context"

// Keys written to durable storage. Only the Manager writes them.
const (
	KeyToken        = "access_token"
	KeyUser         = "user"
	KeyLastActivity = "last_activity"
	KeyLastRefresh  = "last_refresh"
)

var sessionKeys = []string{KeyToken, KeyUser, KeyLastActivity, KeyLastRefresh}

// Storage is the durable key/value boundary for session data.
// Get returns domain.ErrNotFound for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// TokenRefresher exchanges a live token for a fresh one.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, token string) (string, error)
}

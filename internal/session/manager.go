package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/notify"
)

const (
	DefaultInactivityTimeout = 30 * time.Minute
	DefaultRefreshThrottle   = 5 * time.Minute
	DefaultRefreshTimeout    = 10 * time.Second

	// MsgSessionExpired is shown when the inactivity timer logs the user out.
	MsgSessionExpired = "Session expired, please log in again."

	// activityPersistInterval bounds how often last activity is written to storage.
	activityPersistInterval = time.Minute
)

// Config holds the expiry policy.
type Config struct {
	InactivityTimeout time.Duration // forced logout after this long without activity
	RefreshThrottle   time.Duration // minimum gap between refresh attempts
	RefreshTimeout    time.Duration // deadline of a background refresh call
}

func (c Config) withDefaults() Config {
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.RefreshThrottle <= 0 {
		c.RefreshThrottle = DefaultRefreshThrottle
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = DefaultRefreshTimeout
	}
	return c
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(m *Manager) { m.clock = c } }

// WithNotifier sets where user-facing session messages go.
func WithNotifier(n notify.Notifier) Option { return func(m *Manager) { m.notifier = n } }

// Manager owns the bearer token and user identity, persists them, and
// expires the session after a period without user activity.
//
// A refresh failure is not fatal: the token is kept and the inactivity timer
// remains the only expiry mechanism. The exception is a 401 from the refresh
// endpoint, which means the credential is dead and clears the session.
type Manager struct {
	cfg       Config
	storage   Storage
	refresher TokenRefresher
	clock     Clock
	logger    logger.Logger
	notifier  notify.Notifier

	// persistMu serializes storage writes so that a slow write cannot land
	// after a newer session's. Taken before mu, never while holding it.
	persistMu sync.Mutex

	mu              sync.Mutex
	state           State
	token           string
	user            *domain.User
	lastActivity    time.Time
	lastPersisted   time.Time
	lastRefresh     time.Time
	inactivity      Timer
	timerSeq        uint64
	generation      uint64
	listening       bool
	unsubscribe     func()
	refreshing      bool
	subscribers     map[int]func(Event)
	nextSubscriber  int
	refreshInFlight sync.WaitGroup
}

// NewManager builds a manager in the uninitialized state. Call Restore
// before reading the session.
func NewManager(cfg Config, storage Storage, refresher TokenRefresher, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg.withDefaults(),
		storage:     storage,
		refresher:   refresher,
		clock:       SystemClock(),
		logger:      log,
		notifier:    notify.Discard,
		state:       StateUninitialized,
		subscribers: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for every session event. Handlers run synchronously
// on the goroutine that caused the transition, outside the manager lock.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubscriber
	m.nextSubscriber++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		State:           m.state,
		Token:           m.token,
		IsAuthenticated: m.isAuthenticatedLocked(),
		Loading:         m.state == StateUninitialized || m.state == StateRestoring,
		LastActivity:    m.lastActivity,
		Listening:       m.listening,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

func (m *Manager) isAuthenticatedLocked() bool {
	return m.token != "" && m.user != nil
}

// Token returns the current bearer token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// IsAuthenticated is true iff both a token and a user are held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isAuthenticatedLocked()
}

// Loading stays true until Restore has reached a definitive state.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateUninitialized || m.state == StateRestoring
}

// Login installs a freshly obtained credential. Storage failures are logged
// and the in-memory session stays authenticated.
func (m *Manager) Login(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return &domain.ValidationError{Field: "token", Message: "token is required"}
	}
	u := user.Sanitized()

	m.persistMu.Lock()
	m.mu.Lock()
	now := m.clock.Now()
	m.generation++
	m.token = token
	m.user = &u
	m.state = StateAuthenticated
	m.lastActivity = now
	m.lastPersisted = now
	m.lastRefresh = now
	m.armInactivityLocked()
	m.mu.Unlock()

	m.persistCredentials(ctx, token, u, now)
	m.persistMu.Unlock()

	m.logger.Info("session started",
		logger.String("username", u.Username),
		logger.Int64("user_id", u.ID))
	m.emit(Event{Kind: EventLogin, User: &u, Time: now})
	return nil
}

// Logout clears memory and storage and cancels every pending timer.
func (m *Manager) Logout(ctx context.Context) {
	m.endSession(ctx, EventLogout, nil)
}

// endSession is shared by explicit logout, inactivity expiry and a 401 on refresh.
func (m *Manager) endSession(ctx context.Context, kind EventKind, cause error) {
	m.persistMu.Lock()
	m.mu.Lock()
	var user *domain.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	m.generation++
	m.token = ""
	m.user = nil
	m.state = StateUnauthenticated
	m.lastActivity = time.Time{}
	m.stopInactivityLocked()
	now := m.clock.Now()
	m.mu.Unlock()

	m.clearStorage(ctx)
	m.persistMu.Unlock()

	if cause != nil {
		m.logger.Info("session ended", logger.String("reason", string(kind)), logger.Error(cause))
	} else {
		m.logger.Info("session ended", logger.String("reason", string(kind)))
	}
	m.emit(Event{Kind: kind, User: user, Err: cause, Time: now})
}

// Restore reads durable storage and decides between authenticated and
// unauthenticated. Unreadable or partial entries are removed. A stored
// session whose last activity is older than the inactivity timeout is
// treated as expired.
//
// The refresh throttle resumes from the stored last refresh, so a process
// that records a single activity still refreshes once the window has passed.
func (m *Manager) Restore(ctx context.Context) Snapshot {
	m.mu.Lock()
	m.state = StateRestoring
	m.mu.Unlock()

	m.persistMu.Lock()
	stored, err := m.readStorage(ctx)

	var expired bool
	m.mu.Lock()
	now := m.clock.Now()
	switch {
	case err != nil:
		m.token, m.user = "", nil
		m.state = StateUnauthenticated
	case stored.token == "" || stored.user == nil:
		m.token, m.user = "", nil
		m.state = StateUnauthenticated
	case !stored.lastActivity.IsZero() && now.Sub(stored.lastActivity) >= m.cfg.InactivityTimeout:
		m.token, m.user = "", nil
		m.state = StateUnauthenticated
		expired = true
	default:
		m.generation++
		m.token = stored.token
		m.user = stored.user
		m.state = StateAuthenticated
		m.lastActivity = now
		m.lastPersisted = stored.lastActivity
		m.lastRefresh = stored.lastRefresh
		m.armInactivityLocked()
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err != nil || expired || stored.orphaned {
		m.clearStorage(ctx)
	}
	m.persistMu.Unlock()

	switch {
	case err != nil:
		m.logger.Warn("stored session unreadable, starting unauthenticated", logger.Error(err))
	case expired:
		m.logger.Info("stored session idle for too long, expiring",
			logger.Time("last_activity", stored.lastActivity))
		m.notifier.Notify(notify.Info(MsgSessionExpired))
		m.emit(Event{Kind: EventExpired, User: stored.user, Time: now})
	case snap.IsAuthenticated:
		m.logger.Info("session restored", logger.String("username", stored.user.Username))
	case stored.orphaned:
		m.logger.Warn("stored session entries without a token removed")
	default:
		m.logger.Debug("no stored session")
	}
	return snap
}

// storedSession is what readStorage found. orphaned reports leftover keys
// with no token to go with them.
type storedSession struct {
	token        string
	user         *domain.User
	lastActivity time.Time
	lastRefresh  time.Time
	orphaned     bool
}

func (m *Manager) readStorage(ctx context.Context) (storedSession, error) {
	var s storedSession
	token, err := m.storage.Get(ctx, KeyToken)
	if errors.Is(err, domain.ErrNotFound) {
		for _, key := range sessionKeys[1:] {
			if _, err := m.storage.Get(ctx, key); err == nil {
				s.orphaned = true
				break
			}
		}
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("%w: read token: %v", domain.ErrStorage, err)
	}

	raw, err := m.storage.Get(ctx, KeyUser)
	if errors.Is(err, domain.ErrNotFound) {
		return s, fmt.Errorf("%w: token stored without user", domain.ErrStorage)
	}
	if err != nil {
		return s, fmt.Errorf("%w: read user: %v", domain.ErrStorage, err)
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return s, fmt.Errorf("%w: parse user: %v", domain.ErrStorage, err)
	}

	// An unparsable timestamp only loses the check it feeds, not the session.
	s.token, s.user = token, &user
	s.lastActivity = m.readTime(ctx, KeyLastActivity)
	s.lastRefresh = m.readTime(ctx, KeyLastRefresh)
	return s, nil
}

func (m *Manager) readTime(ctx context.Context, key string) time.Time {
	raw, err := m.storage.Get(ctx, key)
	if err != nil {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (m *Manager) persistCredentials(ctx context.Context, token string, user domain.User, at time.Time) {
	raw, err := json.Marshal(user)
	if err != nil {
		m.logger.Error("failed to encode user for storage", logger.Error(err))
		return
	}
	m.storeKey(ctx, KeyToken, token)
	m.storeKey(ctx, KeyUser, string(raw))
	m.storeKey(ctx, KeyLastActivity, formatTime(at))
	m.storeKey(ctx, KeyLastRefresh, formatTime(at))
}

// storeIfCurrent writes key only while session gen is still the live one.
func (m *Manager) storeIfCurrent(ctx context.Context, gen uint64, key, value string) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	m.mu.Lock()
	current := m.generation == gen
	m.mu.Unlock()
	if current {
		m.storeKey(ctx, key, value)
	}
}

func (m *Manager) storeKey(ctx context.Context, key, value string) {
	if err := m.storage.Set(ctx, key, value); err != nil {
		m.logger.Error("failed to write session storage",
			logger.String("key", key),
			logger.Error(fmt.Errorf("%w: %v", domain.ErrStorage, err)))
	}
}

func (m *Manager) clearStorage(ctx context.Context) {
	for _, key := range sessionKeys {
		if err := m.storage.Remove(ctx, key); err != nil {
			m.logger.Error("failed to clear session storage",
				logger.String("key", key),
				logger.Error(fmt.Errorf("%w: %v", domain.ErrStorage, err)))
		}
	}
}

// RefreshToken swaps the current token for a fresh one. Without a token it
// does nothing and returns ("", nil).
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	token := m.token
	gen := m.generation
	if token == "" {
		m.mu.Unlock()
		return "", nil
	}
	attempted := m.clock.Now()
	m.lastRefresh = attempted
	m.mu.Unlock()

	fresh, err := m.refresher.RefreshToken(ctx, token)
	if err == nil && fresh == "" {
		err = errors.New("refresh endpoint returned no token")
	}
	if err != nil {
		if domain.IsUnauthorized(err) {
			m.logger.Warn("token rejected on refresh, ending session", logger.Error(err))
			m.mu.Lock()
			current := m.generation == gen
			m.mu.Unlock()
			if current {
				m.endSession(ctx, EventLogout, err)
			}
		} else {
			m.logger.Warn("token refresh failed, keeping current token", logger.Error(err))
		}
		m.emit(Event{Kind: EventRefreshFailed, Err: err, Time: m.clock.Now()})
		return "", fmt.Errorf("refresh token: %w", err)
	}

	m.persistMu.Lock()
	m.mu.Lock()
	if m.generation != gen || m.token != token {
		// Logged out or logged in again while the call was in flight.
		m.mu.Unlock()
		m.persistMu.Unlock()
		return "", domain.ErrNotAuthenticated
	}
	m.token = fresh
	m.mu.Unlock()

	m.storeKey(ctx, KeyToken, fresh)
	m.storeKey(ctx, KeyLastRefresh, formatTime(attempted))
	m.persistMu.Unlock()
	m.logger.Debug("token refreshed")
	m.emit(Event{Kind: EventRefreshed, Time: m.clock.Now()})
	return fresh, nil
}

// StartActivityListener subscribes to src. Calling it while already
// listening does nothing.
func (m *Manager) StartActivityListener(src ActivitySource) {
	m.mu.Lock()
	if m.listening {
		m.mu.Unlock()
		return
	}
	m.listening = true
	m.armInactivityLocked()
	m.mu.Unlock()

	unsubscribe := src.Subscribe(m.RecordActivity)

	m.mu.Lock()
	if !m.listening {
		// Stopped while subscribing.
		m.mu.Unlock()
		unsubscribe()
		return
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	m.logger.Debug("activity listener started")
}

// StopActivityListener removes the subscription and the inactivity timer.
// Calling it while not listening does nothing.
func (m *Manager) StopActivityListener() {
	m.mu.Lock()
	if !m.listening {
		m.mu.Unlock()
		return
	}
	m.listening = false
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.stopInactivityLocked()
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.logger.Debug("activity listener stopped")
}

// RecordActivity is the interaction callback: it restarts the inactivity
// countdown and, once the throttle window has passed since the last refresh
// attempt, refreshes the token in the background.
func (m *Manager) RecordActivity(kind ActivityKind) {
	m.mu.Lock()
	if !m.listening || !m.isAuthenticatedLocked() {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	m.lastActivity = now
	m.armInactivityLocked()

	gen := m.generation
	persist := now.Sub(m.lastPersisted) >= activityPersistInterval
	if persist {
		m.lastPersisted = now
	}
	refresh := !m.refreshing && now.Sub(m.lastRefresh) > m.cfg.RefreshThrottle
	if refresh {
		m.lastRefresh = now
		m.refreshing = true
		m.refreshInFlight.Add(1)
	}
	m.mu.Unlock()

	if persist {
		m.storeIfCurrent(context.Background(), gen, KeyLastActivity, formatTime(now))
	}
	if refresh {
		m.logger.Debug("activity triggered token refresh", logger.String("activity", string(kind)))
		go m.backgroundRefresh()
	}
}

func (m *Manager) backgroundRefresh() {
	defer m.refreshInFlight.Done()
	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RefreshTimeout)
	defer cancel()
	// Failures are logged inside RefreshToken.
	_, _ = m.RefreshToken(ctx)
}

func (m *Manager) armInactivityLocked() {
	m.stopInactivityLocked()
	if !m.listening || !m.isAuthenticatedLocked() {
		return
	}
	m.timerSeq++
	seq := m.timerSeq
	m.inactivity = m.clock.AfterFunc(m.cfg.InactivityTimeout, func() { m.onInactivity(seq) })
}

func (m *Manager) stopInactivityLocked() {
	if m.inactivity != nil {
		m.inactivity.Stop()
		m.inactivity = nil
	}
}

func (m *Manager) onInactivity(seq uint64) {
	m.mu.Lock()
	if seq != m.timerSeq || m.inactivity == nil || !m.isAuthenticatedLocked() {
		m.mu.Unlock()
		return
	}
	m.inactivity = nil
	m.mu.Unlock()

	m.logger.Info("session idle timeout reached",
		logger.Duration("timeout", m.cfg.InactivityTimeout))
	m.endSession(context.Background(), EventExpired, nil)
	m.notifier.Notify(notify.Info(MsgSessionExpired))
}

// Close stops listening and waits for an in-flight background refresh.
func (m *Manager) Close() {
	m.StopActivityListener()
	m.refreshInFlight.Wait()
}

func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	handlers := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

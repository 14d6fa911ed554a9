package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers outside the clock lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeRefresher struct {
	mu     sync.Mutex
	calls  int
	tokens []string
	err    error
}

func (r *fakeRefresher) RefreshToken(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.tokens = append(r.tokens, token)
	if r.err != nil {
		return "", r.err
	}
	return token + "-r", nil
}

func (r *fakeRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// brokenStorage fails every operation.
type brokenStorage struct{}

var errDisk = errors.New("disk on fire")

func (brokenStorage) Get(context.Context, string) (string, error) { return "", errDisk }
func (brokenStorage) Set(context.Context, string, string) error   { return errDisk }
func (brokenStorage) Remove(context.Context, string) error        { return errDisk }

var testUser = domain.User{ID: 7, Username: "ada", Email: "ada@example.com"}

// gatedStorage blocks the first Set of key=value until release is closed.
type gatedStorage struct {
	Storage
	key, value string
	entered    chan struct{}
	release    chan struct{}
	once       sync.Once
}

func newGatedStorage(inner Storage, key, value string) *gatedStorage {
	return &gatedStorage{
		Storage: inner,
		key:     key,
		value:   value,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *gatedStorage) Set(ctx context.Context, key, value string) error {
	if key == s.key && value == s.value {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return s.Storage.Set(ctx, key, value)
}

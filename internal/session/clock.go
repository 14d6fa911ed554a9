package session

import "time"

// Clock abstracts time so inactivity and throttle logic can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the manager needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// SystemClock is backed by the time package.
func SystemClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Package notify carries short user-facing messages (the "toasts" of a UI)
// from the core components to whatever surface is rendering them.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use and must not block.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops everything.
var Discard Notifier = Func(func(Notification) {})

// Success, Info and Error build a notification stamped with the current time.
func Success(msg string) Notification { return Notification{Level: LevelSuccess, Message: msg, Time: time.Now()} }
func Info(msg string) Notification    { return Notification{Level: LevelInfo, Message: msg, Time: time.Now()} }
func Error(msg string) Notification   { return Notification{Level: LevelError, Message: msg, Time: time.Now()} }

// Log forwards notifications to the structured logger.
func Log(log logger.Logger) Notifier {
	return Func(func(n Notification) {
		switch n.Level {
		case LevelError:
			log.Warn("notification", logger.String("level", string(n.Level)), logger.String("message", n.Message))
		default:
			log.Debug("notification", logger.String("level", string(n.Level)), logger.String("message", n.Message))
		}
	})
}

// Writer prints one line per notification, for CLI output.
func Writer(w io.Writer) Notifier {
	var mu sync.Mutex
	return Func(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		prefix := "✅"
		switch n.Level {
		case LevelError:
			prefix = "❌"
		case LevelInfo:
			prefix = "ℹ️"
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", prefix, n.Message)
	})
}

// Multi fans out to every non-nil notifier.
func Multi(ns ...Notifier) Notifier {
	out := make([]Notifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return Func(func(n Notification) {
		for _, target := range out {
			target.Notify(n)
		}
	})
}

package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// job is the periodic part shared by every scheduler.
type job struct {
	name     string
	interval time.Duration
	logger   logger.Logger
	run      func(ctx context.Context) error

	stopCh  chan struct{}
	trigger chan struct{}
	done    chan struct{}
	started atomic.Bool
}

func newJob(name string, interval time.Duration, log logger.Logger, run func(context.Context) error) *job {
	return &job{
		name:     name,
		interval: interval,
		logger:   log,
		run:      run,
		stopCh:   make(chan struct{}),
		// Buffered: a trigger while a run is in progress is kept, extra ones are dropped.
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (j *job) start(ctx context.Context) {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(j.interval)
	go func() {
		defer close(j.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.runOnce(ctx)
			case <-j.trigger:
				j.logger.Info("manual run triggered", logger.String("job", j.name))
				j.runOnce(ctx)
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (j *job) runOnce(ctx context.Context) {
	if err := j.run(ctx); err != nil {
		j.logger.Error("scheduled run failed",
			logger.String("job", j.name),
			logger.Error(err))
	}
}

// requestRun asks for an immediate run. It never blocks.
func (j *job) requestRun() bool {
	select {
	case j.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// stop ends the loop and waits for a run in progress. Safe to call twice.
func (j *job) stop() {
	select {
	case <-j.stopCh:
	default:
		close(j.stopCh)
	}
	if j.started.Load() {
		<-j.done
	}
}

// Package scheduler runs the periodic bulk refresh on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// refreshTimeout bounds a single scheduled refresh.
const refreshTimeout = time.Minute

// Refresher is the operation the schedule triggers. *service.Session satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (domain.IngestReport, error)
}

// Scheduler wraps a cron runner with one refresh job. A run that is still
// in progress when the next one is due causes that one to be skipped.
type Scheduler struct {
	cron *cron.Cron
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 15m") and registers the refresh job in loc.
func New(spec string, loc *time.Location, r Refresher, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		report, err := r.Refresh(ctx)
		if err != nil {
			log.Error("scheduled refresh failed", "error", err)
			return
		}
		log.Info("scheduled refresh", "admitted", report.Admitted, "invalid", report.Invalid)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler.New: %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running refresh to finish or ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger routes cron's own messages into slog. Info is debug-level
// because cron reports every scheduling step there.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

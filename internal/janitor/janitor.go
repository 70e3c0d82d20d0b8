// Package janitor removes temp media files left behind by a crashed or killed process.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor sweeps a directory on a cron schedule.
type Janitor struct {
	dir      string
	prefix   string
	maxAge   time.Duration
	schedule string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Janitor removing files in dir named prefix* and older than maxAge.
// schedule accepts standard cron expressions and descriptors such as "@every 10m".
func New(dir, prefix string, maxAge time.Duration, schedule string, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		dir:      dir,
		prefix:   prefix,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately, then on schedule until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	var running sync.Mutex
	if _, err := c.AddFunc(j.schedule, func() {
		if !running.TryLock() {
			j.logger.Warn("janitor: previous sweep still running, skipping tick")
			return
		}
		defer running.Unlock()
		j.sweepAndLog()
	}); err != nil {
		return fmt.Errorf("janitor: invalid schedule %q: %w", j.schedule, err)
	}

	j.sweepAndLog()

	c.Start()
	j.logger.Info("janitor: started", "dir", j.dir, "schedule", j.schedule, "max_age", j.maxAge)

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor: stopped")
	return nil
}

func (j *Janitor) sweepAndLog() {
	removed, err := j.Sweep()
	if err != nil {
		j.logger.Error("janitor: sweep failed", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("janitor: removed orphaned files", "count", removed)
	}
}

// Sweep removes matching files older than maxAge and reports how many were removed.
// A missing directory is not an error.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", j.dir, err)
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), j.prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(j.dir, e.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		j.logger.Debug("janitor: removed", "path", p, "age", j.now().Sub(info.ModTime()))
		removed++
	}
	return removed, errors.Join(errs...)
}

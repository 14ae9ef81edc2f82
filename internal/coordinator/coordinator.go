// Package coordinator drives the build loop: one forced build, then a
// rebuild for every qualifying change, restarting the run command after
// each success.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"watchf/internal/artifact"
	"watchf/internal/classify"
	"watchf/internal/config"
	"watchf/internal/watch"
)

var (
	// ErrBuild wraps every failure reported by the build command.
	ErrBuild = errors.New("build failed")
	// ErrSourceClosed is returned when the event stream ends while the
	// coordinator is still running.
	ErrSourceClosed = errors.New("watch stream closed")
)

// Builder runs the build command and reports the executables it produced.
type Builder interface {
	Build(ctx context.Context) ([]artifact.Artifact, error)
}

// Source delivers filesystem events and watch errors.
type Source interface {
	Events() <-chan watch.Event
	Errors() <-chan error
}

// Restarter is told to restart the run command after a successful build.
type Restarter interface {
	Restart()
}

type Options struct {
	Builder Builder
	Source  Source
	// Restarter is nil in build mode.
	Restarter Restarter

	Mode config.ArtifactMode
	// WaitOnFailure keeps the loop alive after a failed build; the next
	// change to any watched path triggers a retry.
	WaitOnFailure bool

	Now     func() time.Time
	ModTime classify.ModTimeFunc
	Logger  *zap.Logger
}

// Coordinator owns the rebuild state. It is not safe for concurrent use;
// the accessors are meant for after Run or RebuildOnce returned.
type Coordinator struct {
	opts   Options
	logger *zap.Logger

	pending     bool
	failed      bool
	lastRebuild time.Time
	artifacts   map[string]time.Time
	builds      int
}

func New(opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ModTime == nil {
		opts.ModTime = classify.ModTime
	}
	if opts.Mode == "" {
		opts.Mode = config.ArtifactsUpsert
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		opts:      opts,
		logger:    logger.Named("coordinator"),
		artifacts: make(map[string]time.Time),
	}
}

// Run performs the initial build and then rebuilds on qualifying events
// until ctx is cancelled, which returns nil. A build failure ends Run
// unless WaitOnFailure is set.
func (c *Coordinator) Run(ctx context.Context) error {
	var (
		events <-chan watch.Event
		errs   <-chan error
	)
	if c.opts.Source != nil {
		events = c.opts.Source.Events()
		errs = c.opts.Source.Errors()
	}

	c.pending = true
	for {
		for c.pending {
			c.pending = false
			err := c.rebuild(ctx)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, ErrBuild) || !c.opts.WaitOnFailure {
				return err
			}
			c.failed = true
			c.logger.Error("waiting for changes before retrying", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSourceClosed
			}
			if c.qualifies(ev) {
				c.logger.Debug("change detected", zap.Stringer("kind", ev.Kind), zap.Strings("paths", ev.Paths))
				c.pending = true
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Error("watch error", zap.Error(err))
		}
	}
}

// RebuildOnce runs a single build and updates the artifact map. The
// failure policy does not apply: any error is returned.
func (c *Coordinator) RebuildOnce(ctx context.Context) error {
	return c.rebuild(ctx)
}

func (c *Coordinator) qualifies(ev watch.Event) bool {
	if c.failed {
		return classify.ChangedSince(ev, c.lastRebuild, c.opts.ModTime)
	}
	return classify.ShouldRebuild(ev, c.artifacts, c.lastRebuild, c.opts.ModTime)
}

func (c *Coordinator) rebuild(ctx context.Context) error {
	logger := c.logger.With(zap.String("build_id", uuid.NewString()))
	c.lastRebuild = c.opts.Now()
	c.builds++

	logger.Info("building", zap.Int("build", c.builds))
	start := time.Now()
	built, err := c.opts.Builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	// Stat everything first so a failure leaves the map untouched.
	times := make(map[string]time.Time, len(built))
	for _, a := range built {
		mod, err := c.opts.ModTime(a.Path)
		if err != nil {
			return fmt.Errorf("stat artifact %s: %w", a.Path, err)
		}
		times[a.Path] = mod
	}
	if c.opts.Mode == config.ArtifactsReplace {
		c.artifacts = times
	} else {
		for path, mod := range times {
			c.artifacts[path] = mod
		}
	}
	c.failed = false

	logger.Info("build finished",
		zap.Int("artifacts", len(built)),
		zap.Duration("took", time.Since(start)))
	if len(c.artifacts) == 0 {
		logger.Warn("no executables recorded; changes will not trigger rebuilds")
	}

	if c.opts.Restarter != nil {
		c.opts.Restarter.Restart()
	}
	return nil
}

// Artifacts returns a copy of the artifact map.
func (c *Coordinator) Artifacts() map[string]time.Time {
	out := make(map[string]time.Time, len(c.artifacts))
	for path, mod := range c.artifacts {
		out[path] = mod
	}
	return out
}

// Builds is the number of build attempts so far.
func (c *Coordinator) Builds() int { return c.builds }

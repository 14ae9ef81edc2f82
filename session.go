package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"watchf/internal/artifact"
	"watchf/internal/config"
	"watchf/internal/coordinator"
	"watchf/internal/hook"
	"watchf/internal/supervisor"
	"watchf/internal/watch"
)

// epilogueTimeout bounds the epilogue, which runs after ctx is done.
const epilogueTimeout = 30 * time.Second

// session wires the components of one build or run invocation.
type session struct {
	cfg    *config.Config
	logger *zap.Logger

	// supervise starts the run command after every successful build.
	supervise bool
	// once performs the initial build and returns.
	once bool

	stdout io.Writer
	stderr io.Writer
}

func (s *session) run(ctx context.Context) (err error) {
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	cfg := s.cfg

	// Checked before the prologue so that nothing runs with a bad signal.
	var stopSignal os.Signal
	if s.supervise {
		stopSignal, err = supervisor.ParseSignal(cfg.StopSignal)
		if err != nil {
			return fmt.Errorf("%w: stop_signal: %w", errConfig, err)
		}
	}

	prologue := s.hook("prologue", cfg.Prologue)
	if err := prologue.Run(ctx); err != nil {
		return err
	}
	defer func() {
		ectx, cancel := context.WithTimeout(context.Background(), epilogueTimeout)
		defer cancel()
		if herr := s.hook("epilogue", cfg.Epilogue).Run(ectx); herr != nil && err == nil {
			err = herr
		}
	}()

	extractor := &artifact.Extractor{
		Command:    cfg.BuildCmd,
		FormatArgs: cfg.MessageFormat,
		Stderr:     s.stderr,
		Logger:     s.logger,
	}
	opts := coordinator.Options{
		Builder:       extractor,
		Mode:          cfg.Artifacts,
		WaitOnFailure: cfg.OnBuildFailure == config.BuildFailureWait,
		Logger:        s.logger,
	}

	if s.once {
		return coordinator.New(opts).RebuildOnce(ctx)
	}

	w, err := watch.New(s.logger, watch.Options{Ignore: cfg.Ignore, IgnoreHidden: cfg.IgnoreHidden})
	if err != nil {
		return fmt.Errorf("%w: %w", errWatchSetup, err)
	}
	defer func() { _ = w.Stop() }()
	for _, target := range cfg.Watch {
		if err := w.Watch(target); err != nil {
			return fmt.Errorf("%w %s: %w", errWatchSetup, target, err)
		}
	}
	opts.Source = w

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Start(gctx) })

	if s.supervise {
		sup := supervisor.New(supervisor.Options{
			Command:        cfg.RunCmd,
			StopSignal:     stopSignal,
			StopTimeout:    cfg.StopTimeout,
			AbortOnFailure: cfg.OnRestartFailure == config.RestartFailureAbort,
			Stdout:         s.stdout,
			Stderr:         s.stderr,
			Logger:         s.logger,
		})
		opts.Restarter = sup
		g.Go(func() error {
			if err := sup.Run(gctx); err != nil {
				return fmt.Errorf("%w: %w", errSupervisor, err)
			}
			return nil
		})
	}

	coord := coordinator.New(opts)
	g.Go(func() error { return coord.Run(gctx) })

	s.logger.Info("watching", zap.Strings("targets", cfg.Watch), zap.Bool("run", s.supervise))
	return g.Wait()
}

func (s *session) hook(name string, commands []string) *hook.Runner {
	return &hook.Runner{
		Name:     name,
		Commands: commands,
		Stdout:   s.stdout,
		Stderr:   s.stderr,
		Logger:   s.logger,
	}
}

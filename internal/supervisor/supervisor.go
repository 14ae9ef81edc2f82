// Package supervisor keeps one instance of the run command alive and
// restarts it on request.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSpawn is wrapped when the run command cannot be started.
var ErrSpawn = errors.New("cannot start run command")

// State is the lifecycle state of the supervised child.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateRestarting
	// StateExited means the child ended on its own; the next restart
	// request spawns it again.
	StateExited
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateExited:
		return "exited"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options configures a Supervisor.
type Options struct {
	// Command is the program and its arguments.
	Command []string
	// StopSignal is sent to the child's process group on restart and
	// shutdown. Nil means kill immediately.
	StopSignal os.Signal
	// StopTimeout bounds the wait after StopSignal before the child is
	// killed.
	StopTimeout time.Duration
	// AbortOnFailure makes a failed stop or spawn end Run with an error.
	// Otherwise the failure is logged and the supervisor keeps going.
	AbortOnFailure bool

	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// proc is one spawned child. done is closed once the child was reaped.
type proc struct {
	cmd      *exec.Cmd
	done     chan struct{}
	err      error
	reported bool
}

// Supervisor owns the run command and its process. Run must be called on
// its own goroutine; other goroutines only call Restart and the accessors.
type Supervisor struct {
	opts    Options
	logger  *zap.Logger
	restart chan struct{}

	// owned by the Run goroutine
	current *proc

	mu     sync.Mutex
	state  State
	spawns int
	pid    int
}

// New creates a supervisor in StateNotStarted. Nothing is spawned until
// the first Restart.
func New(opts Options) *Supervisor {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		opts:    opts,
		logger:  logger.Named("supervisor"),
		restart: make(chan struct{}, 1),
	}
}

// Restart asks the supervisor to (re)start the child. It never blocks;
// requests made while one is already queued collapse into it.
func (s *Supervisor) Restart() {
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Spawns returns how many times the child was started.
func (s *Supervisor) Spawns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawns
}

// Pid returns the pid of the most recently spawned child, or 0.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run services restart requests until ctx is cancelled, then stops the
// child and returns nil. With AbortOnFailure it returns the first
// restart failure instead.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(StateTerminated)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case <-s.restart:
			if err := s.cycle(); err != nil {
				if s.opts.AbortOnFailure {
					s.shutdown()
					return err
				}
				s.logger.Error("restart failed", zap.Error(err))
			}

		case <-s.exited():
			s.current.reported = true
			s.setState(StateExited)
			s.logExit(s.current)
		}
	}
}

// exited returns the done channel of a child whose exit was not reported
// yet, or nil so that the select ignores it.
func (s *Supervisor) exited() <-chan struct{} {
	if s.current == nil || s.current.reported {
		return nil
	}
	return s.current.done
}

// cycle stops the current child, if any, and spawns a new one.
func (s *Supervisor) cycle() error {
	if p := s.current; p != nil {
		s.setState(StateRestarting)
		if err := s.terminate(p); err != nil {
			if p.reported {
				s.setState(StateExited)
			} else {
				s.setState(StateRunning)
			}
			return fmt.Errorf("stop pid %d: %w", p.cmd.Process.Pid, err)
		}
		s.current = nil
	}

	p, err := s.spawn()
	if err != nil {
		s.setState(StateNotStarted)
		return err
	}
	s.current = p
	s.setState(StateRunning)
	return nil
}

func (s *Supervisor) spawn() (*proc, error) {
	if len(s.opts.Command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSpawn)
	}

	// #nosec G204 - the run command comes from the user's own configuration
	cmd := exec.Command(s.opts.Command[0], s.opts.Command[1:]...)
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr
	cmd.WaitDelay = time.Second
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrSpawn, s.opts.Command[0], err)
	}

	p := &proc{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	s.mu.Lock()
	s.spawns++
	s.pid = cmd.Process.Pid
	spawns := s.spawns
	s.mu.Unlock()

	s.logger.Info("started", zap.Int("pid", cmd.Process.Pid), zap.Int("generation", spawns))
	return p, nil
}

// terminate stops p and returns once it has been reaped. A child that
// already exited is not an error. Whatever is left in its process group
// afterwards is killed.
func (s *Supervisor) terminate(p *proc) error {
	if err := s.stopLeader(p); err != nil {
		return err
	}
	if err := signalGroup(p.cmd.Process, nil); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("failed to kill leftover processes", zap.Int("pgid", p.cmd.Process.Pid), zap.Error(err))
	}
	return nil
}

func (s *Supervisor) stopLeader(p *proc) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	pid := p.cmd.Process.Pid
	if err := signalGroup(p.cmd.Process, s.opts.StopSignal); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-p.done
			return nil
		}
		return err
	}
	if s.opts.StopSignal == nil {
		<-p.done
		s.logger.Debug("stopped", zap.Int("pid", pid))
		return nil
	}

	timer := time.NewTimer(s.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
		s.logger.Debug("stopped", zap.Int("pid", pid))
		return nil
	case <-timer.C:
	}

	s.logger.Warn("child did not exit in time, killing",
		zap.Int("pid", pid),
		zap.Duration("timeout", s.opts.StopTimeout))
	if err := signalGroup(p.cmd.Process, nil); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// shutdown stops the current child on the way out of Run.
func (s *Supervisor) shutdown() {
	p := s.current
	if p == nil {
		return
	}
	s.current = nil
	if err := s.terminate(p); err != nil {
		s.logger.Error("failed to stop child on shutdown", zap.Int("pid", p.cmd.Process.Pid), zap.Error(err))
		return
	}
	s.logger.Info("stopped", zap.Int("pid", p.cmd.Process.Pid))
}

func (s *Supervisor) logExit(p *proc) {
	fields := []zap.Field{zap.Int("pid", p.cmd.Process.Pid)}
	if p.cmd.ProcessState != nil {
		fields = append(fields, zap.Int("code", p.cmd.ProcessState.ExitCode()))
	}
	if p.err != nil {
		s.logger.Warn("run command exited", append(fields, zap.Error(p.err))...)
		return
	}
	s.logger.Info("run command exited", fields...)
}

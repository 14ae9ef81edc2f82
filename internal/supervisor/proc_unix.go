//go:build unix

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group so that a stop
// signal also reaches the processes it starts.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig (SIGKILL when nil) to the process group led by p.
func signalGroup(p *os.Process, sig os.Signal) error {
	signum := unix.SIGKILL
	if sig != nil {
		s, ok := sig.(syscall.Signal)
		if !ok {
			return p.Signal(sig)
		}
		signum = s
	}
	err := unix.Kill(-p.Pid, signum)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// ParseSignal resolves a signal name such as "SIGTERM" or "term". The
// empty string selects the default hard kill and returns nil.
func ParseSignal(name string) (os.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return nil, fmt.Errorf("unknown signal %q", name)
	}
	if sig == unix.SIGKILL {
		return nil, nil
	}
	return sig, nil
}

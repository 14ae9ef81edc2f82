//go:build !unix

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

func setProcessGroup(*exec.Cmd) {}

// signalGroup signals p itself; process groups are a unix notion.
func signalGroup(p *os.Process, sig os.Signal) error {
	if sig == nil || sig == os.Kill {
		return p.Kill()
	}
	return p.Signal(sig)
}

// ParseSignal accepts the signals the platform can deliver: kill and
// interrupt.
func ParseSignal(name string) (os.Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "KILL", "SIGKILL":
		return nil, nil
	case "INT", "SIGINT":
		return os.Interrupt, nil
	default:
		return nil, fmt.Errorf("unknown signal %q", name)
	}
}

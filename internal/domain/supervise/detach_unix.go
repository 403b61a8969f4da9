//go:build !windows

package supervise

import (
	"os/exec"
	"syscall"
)

// detach places the child in its own process group so terminal signals
// aimed at the launcher do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interrupt requests graceful termination.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}

//go:build windows

package supervise

import (
	"os/exec"
	"syscall"
)

// detach starts the child in a new process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// interrupt requests termination. Windows has no SIGTERM equivalent for
// GUI processes, so this escalates straight to Kill.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

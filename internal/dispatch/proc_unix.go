//go:build unix

package dispatch

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so cancellation
// also reaches anything it forked
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

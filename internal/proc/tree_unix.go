//go:build !windows

package proc

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureTree starts the child in its own process group so cancellation
// can signal every descendant.
func configureTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
			return cmd.Process.Kill()
		}
		return nil
	}
}

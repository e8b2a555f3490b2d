//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// detach places the child in its own session so terminating the agent does
// not take launched applications down with it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

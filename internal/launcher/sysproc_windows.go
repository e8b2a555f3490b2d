//go:build windows

package launcher

import (
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// detach gives the child its own process group so console signals aimed at
// the agent do not reach launched applications.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

//go:build !windows
// +build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// detachProcess puts the spawned terminal in a new session so it has no
// controlling terminal and does not die with this process.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

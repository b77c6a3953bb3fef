//go:build windows
// +build windows

package launcher

import (
	"os/exec"
	"syscall"
)

// detachedProcess detaches the child from our console entirely.
// (DETACHED_PROCESS is not exported by the syscall package.)
const detachedProcess = 0x00000008

// detachProcess creates the spawned terminal in its own process group,
// detached from our console, so its lifetime is independent of ours.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}

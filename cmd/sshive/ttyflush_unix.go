//go:build !windows
// +build !windows

package main

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// flushTTYInput drops any pending unread bytes queued for the controlling
// terminal before an interactive session starts. Terminal integrations can
// leave OSC/DSR replies in the input queue, and ssh would read those as
// typed characters. Never fails; if /dev/tty is unavailable this is a no-op.
func flushTTYInput() {
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err != nil {
		return
	}
	defer func() { _ = tty.Close() }()

	fd := int(tty.Fd())
	if fd < 0 {
		return
	}

	// tcflush(fd, TCIFLUSH) via ioctl(TCFLSH); 0x540B on both Linux and
	// Darwin, and avoids depending on x/sys exposing Tcflush everywhere.
	const tcflsh = 0x540B
	_, _, _ = unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(tcflsh), uintptr(unix.TCIFLUSH))

	// Some integrations emit replies right after a flush; drain briefly
	// without blocking to catch the stragglers.
	_ = unix.SetNonblock(fd, true)
	defer func() { _ = unix.SetNonblock(fd, false) }()

	deadline := time.Now().Add(200 * time.Millisecond)
	buf := make([]byte, 512)
	for time.Now().Before(deadline) {
		n, rerr := unix.Read(fd, buf)
		if n > 0 {
			deadline = time.Now().Add(75 * time.Millisecond)
			continue
		}
		if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
			break
		}
		break
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"

	"sshive/pkg/launcher"
	"sshive/pkg/manager"
)

// runInlineConnect runs ssh in the current terminal under a PTY instead of
// spawning an emulator window. The inline argv carries no terminal wrapper;
// the password (when present) travels via the SSHPASS environment variable
// of the child only.
func runInlineConnect(l *launcher.Launcher, conn *manager.Connection) error {
	argv, env, cleanup, err := l.InlineCommand(conn)
	if err != nil {
		return err
	}
	defer cleanup()

	flushTTYInput()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("pty start: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	// Seed the PTY size from stdout; in some wrapper setups stdin is not a
	// tty while stdout still is.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if cols, rows, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil && rows > 0 && cols > 0 {
			_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
		}
	}
	startPTYResizeWatcher(ptmx)

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		oldState, sErr := term.MakeRaw(fd)
		if sErr == nil {
			defer func() { _ = term.Restore(fd, oldState) }()
		}
	}

	go func() {
		_, _ = io.Copy(ptmx, os.Stdin)
	}()
	_, _ = io.Copy(os.Stdout, ptmx)

	return cmd.Wait()
}

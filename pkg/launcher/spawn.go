package launcher

import (
	"errors"
	"fmt"
	"os/exec"
)

// spawn starts argv as a detached background process with stdout/stderr
// discarded; the terminal emulator owns its own display. The child goes into
// its own session/process group (see detachProcess per-OS variants) so its
// lifetime is independent of ours. Any spawn failure — including the
// resolved binary vanishing between detection and spawn — comes back as an
// error, never a panic.
func (l *Launcher) spawn(argv, env []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	path, err := l.lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("%s not found in PATH", argv[0])
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detachProcess(cmd)

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}

	// Reap in the background so the detached child never lingers as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

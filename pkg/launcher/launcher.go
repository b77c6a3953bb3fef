// Package launcher turns a stored connection profile into a running ssh
// session inside an external terminal emulator. It detects installed
// terminal emulators, builds the platform-specific command line, converts
// PuTTY-format keys on demand, runs static and active credential preflight
// checks, and spawns the terminal as a detached process.
//
// The package never mutates the connection record it is given and never
// persists password material; secrets travel only through process
// environment variables (SSHPASS) for the duration of one call.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"sshive/pkg/manager"
)

// Launcher orchestrates connection launches and credential checks.
//
// A Launcher is an explicitly constructed, caller-owned service: build one
// with NewLauncher, adjust the exported knobs, and share it by reference.
// It holds no mutable per-call state, so overlapping calls are safe.
type Launcher struct {
	// Terminal optionally pins a terminal emulator by name. When empty, the
	// platform preference list is probed in order.
	Terminal string

	// CleanupDelay is how long a converted temporary key outlives a launch,
	// so the spawned terminal's ssh can still read it. The delayed delete is
	// fire-and-forget; in process-exit races the file may be leaked, which
	// is acceptable for a short-lived temp-dir artifact.
	CleanupDelay time.Duration

	// CheckTimeout bounds the active credential check end to end.
	CheckTimeout time.Duration

	// ConvertTimeout bounds a puttygen PPK conversion. A passphrase-protected
	// PPK makes puttygen prompt and hang; the timeout turns that into a
	// conversion failure.
	ConvertTimeout time.Duration

	// Injection points for tests. Production values come from NewLauncher.
	goos     string
	lookPath func(file string) (string, error)
	environ  func() []string
	start    func(cmd *exec.Cmd) error
	probe    probeFunc
}

// NewLauncher returns a Launcher wired to the real OS: exec.LookPath probing,
// os.Environ snapshots, and real subprocess spawning.
func NewLauncher() *Launcher {
	return &Launcher{
		CleanupDelay:   5 * time.Second,
		CheckTimeout:   2 * time.Second,
		ConvertTimeout: 10 * time.Second,

		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		environ:  os.Environ,
		start:    func(cmd *exec.Cmd) error { return cmd.Start() },
		probe:    runProbe,
	}
}

// Launch opens conn in a freshly detected terminal emulator.
//
// Flow: static validation, optional PPK conversion, password-helper
// application, terminal wrapping, detached spawn. A nil return means the
// terminal process started; the ssh session's own fate belongs to that
// window. Every failure comes back as an error with a human-readable
// reason; Launch never panics across this boundary.
func (l *Launcher) Launch(conn *manager.Connection) error {
	if conn == nil {
		return fmt.Errorf("nil connection")
	}
	if err := l.Validate(conn); err != nil {
		return err
	}

	term := l.DetectTerminal()
	argv := conn.SSHCommand()
	env := l.environ()

	effectiveKey, tempKey, err := l.convertPPKIfNeeded(conn.KeyPath)
	if err != nil {
		return err
	}
	if tempKey != nil {
		argv = replaceKeyArg(argv, manager.ExpandPath(conn.KeyPath), effectiveKey)
	}

	argv, env, err = l.applyPassword(conn, argv, env)
	if err != nil {
		if tempKey != nil {
			tempKey.Remove()
		}
		return err
	}

	full := buildFullCommand(l.goos, term, argv)
	env = sanitizeSpawnEnv(env)

	if err := l.spawn(full, env); err != nil {
		if tempKey != nil {
			tempKey.Remove()
		}
		return fmt.Errorf("launch %s: %w", term.Name, err)
	}

	// The spawned ssh still has to read the converted key from disk, so the
	// delete is deferred instead of immediate.
	if tempKey != nil {
		tempKey.RemoveAfter(l.CleanupDelay)
	}
	return nil
}

// InlineCommand builds the ssh argv and environment for running conn in the
// caller's own terminal, without emulator wrapping: validation, PPK
// conversion and password-helper rewriting still apply. The returned cleanup
// removes any converted temp key and must be called once the session ends;
// it is safe to call even when no conversion happened.
func (l *Launcher) InlineCommand(conn *manager.Connection) (argv, env []string, cleanup func(), err error) {
	if conn == nil {
		return nil, nil, nil, fmt.Errorf("nil connection")
	}
	if err := l.Validate(conn); err != nil {
		return nil, nil, nil, err
	}

	argv = conn.SSHCommand()
	env = l.environ()

	effectiveKey, tempKey, err := l.convertPPKIfNeeded(conn.KeyPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if tempKey != nil {
		argv = replaceKeyArg(argv, manager.ExpandPath(conn.KeyPath), effectiveKey)
	}
	cleanup = func() {
		if tempKey != nil {
			tempKey.Remove()
		}
	}

	argv, env, err = l.applyPassword(conn, argv, env)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return argv, env, cleanup, nil
}

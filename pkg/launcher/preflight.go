package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"sshive/pkg/manager"
)

// Credential preflight.
//
// Two independent checks run before a launch:
//
//   - Validate: static, purely local. Are the binaries and files this
//     connection needs actually present? Never contacts the remote host.
//   - CheckCredentials: active but bounded. Runs a no-op remote command
//     under a short deadline and classifies the outcome.

// Validate checks that everything a launch needs exists locally: the ssh
// binary, the key file (after ~-expansion), and — when a password is set —
// the platform's password-auth helper. Pure and synchronous; no network I/O.
func (l *Launcher) Validate(conn *manager.Connection) error {
	if conn == nil {
		return errors.New("nil connection")
	}

	if _, err := l.lookPath("ssh"); err != nil {
		return errors.New("SSH command ('ssh') not found in PATH")
	}

	if conn.KeyPath != "" {
		keyPath := manager.ExpandPath(conn.KeyPath)
		if _, err := os.Stat(keyPath); err != nil {
			return fmt.Errorf("SSH key file doesn't exist: %s", conn.KeyPath)
		}
	}

	if conn.Password != "" {
		if l.goos != "windows" {
			if _, err := l.lookPath("sshpass"); err != nil {
				return errors.New("password authentication requires 'sshpass' to be installed")
			}
		} else {
			if _, err := l.puttyLinkHelper(); err != nil {
				return err
			}
		}
	}

	return nil
}

// CheckCredentials performs a bounded authentication probe against the
// remote host: it executes the no-op command `true` and classifies the exit.
//
// Skipped entirely (success) when the connection has neither password nor
// key — there is nothing to verify. The probe uses a 1s connect timeout,
// accepts new host keys automatically so first contact doesn't hang on an
// interactive prompt, and runs in batch mode when no password is supplied so
// a passphrase prompt can't stall it. With a password, key auth is disabled
// so the password path is the one actually exercised.
func (l *Launcher) CheckCredentials(ctx context.Context, conn *manager.Connection) error {
	if conn == nil {
		return errors.New("nil connection")
	}
	if conn.Password == "" && conn.KeyPath == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, l.checkTimeout())
	defer cancel()

	env := l.environ()

	var argv []string
	if l.goos != "windows" {
		keyPath := conn.KeyPath
		if strings.HasSuffix(strings.ToLower(keyPath), ".ppk") {
			effective, tempKey, err := l.convertPPKIfNeeded(keyPath)
			if err != nil {
				return fmt.Errorf("failed to convert PPK key for authentication check: %w", err)
			}
			if tempKey != nil {
				// The probe runs to completion inside this call, so the
				// converted key is deleted synchronously on every exit path.
				defer tempKey.Remove()
				keyPath = effective
			}
		}

		argv = []string{
			"ssh",
			"-p", strconv.Itoa(conn.EffectivePort()),
			"-o", "ConnectTimeout=1",
			"-o", "StrictHostKeyChecking=accept-new",
		}
		if conn.Password == "" {
			// Batch mode fails fast instead of prompting for a passphrase.
			argv = append(argv, "-o", "BatchMode=yes")
		} else {
			argv = append(argv, "-o", "BatchMode=no")
		}
		if keyPath != "" {
			argv = append(argv, "-i", manager.ExpandPath(keyPath))
		}
		if conn.Password != "" {
			sshpass, err := l.lookPath("sshpass")
			if err != nil {
				return errors.New("sshpass not found (required for password check)")
			}
			argv = append([]string{sshpass, "-e"}, argv...)
			// Force the password path; otherwise a working key would mask a
			// wrong password.
			argv = append(argv, "-o", "PubkeyAuthentication=no")
			env = setEnvVar(env, "SSHPASS", conn.Password)
		}
		argv = append(argv, conn.Destination(), "true")
	} else {
		helper, err := l.puttyLinkHelper()
		if err != nil {
			return errors.New("plink.exe or klink.exe not found")
		}
		argv = []string{helper, "-P", strconv.Itoa(conn.EffectivePort()), "-batch"}
		if conn.KeyPath != "" {
			argv = append(argv, "-i", manager.ExpandPath(conn.KeyPath))
		}
		if conn.Password != "" {
			argv = append(argv, "-pw", conn.Password)
		}
		argv = append(argv, conn.Destination(), "true")
	}

	res := l.probe(ctx, argv, env)
	return l.interpretProbe(conn, res)
}

// interpretProbe maps a probe outcome onto the error taxonomy: nil for exit
// 0, authentication failure on "Permission denied" output, connection
// timeout on exit 255 or timeout text, a distinct message when the local
// deadline itself expired, and a generic failure carrying raw diagnostics
// otherwise.
func (l *Launcher) interpretProbe(conn *manager.Connection, res probeResult) error {
	if res.timedOut {
		return errors.New("authentication check timed out")
	}
	if res.startErr != nil {
		return fmt.Errorf("error during authentication check: %v", res.startErr)
	}
	if res.exitCode == 0 {
		return nil
	}

	msg := strings.TrimSpace(res.stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.stdout)
	}
	if msg == "" {
		msg = fmt.Sprintf("Exit code %d", res.exitCode)
	}

	if strings.Contains(msg, "Permission denied") {
		if hint := l.passphraseHint(conn); hint != "" {
			return fmt.Errorf("authentication failed: Permission denied (Check password/key or server config). %s", hint)
		}
		return errors.New("authentication failed: Permission denied (Check password/key or server config).")
	}
	if strings.Contains(msg, "Timeout") || res.exitCode == 255 {
		return fmt.Errorf("connection timed out or failed:\n%s", msg)
	}
	return fmt.Errorf("authentication check failed:\n%s", msg)
}

// passphraseHint adds context to a permission-denied result when the key
// itself is the likely culprit: batch mode cannot unlock an encrypted key.
// Best-effort; any inspection error yields no hint.
func (l *Launcher) passphraseHint(conn *manager.Connection) string {
	if conn.Password != "" || conn.KeyPath == "" {
		return ""
	}
	needs, err := KeyNeedsPassphrase(manager.ExpandPath(conn.KeyPath))
	if err != nil || !needs {
		return ""
	}
	return "The key is passphrase-protected and the batch-mode check cannot unlock it; load it into an agent or store a password."
}

func (l *Launcher) checkTimeout() time.Duration {
	if l.CheckTimeout <= 0 {
		return 2 * time.Second
	}
	return l.CheckTimeout
}

// probeResult is the raw outcome of one authentication probe subprocess.
type probeResult struct {
	exitCode int
	stdout   string
	stderr   string
	timedOut bool
	startErr error
}

// probeFunc runs argv with env under ctx and reports the outcome. Injected
// so tests can exercise the interpretation logic without subprocesses.
type probeFunc func(ctx context.Context, argv, env []string) probeResult

// runProbe is the production probeFunc: a real subprocess with captured
// output, killed by ctx on deadline.
func runProbe(ctx context.Context, argv, env []string) probeResult {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := probeResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.timedOut = true
		return res
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
		} else {
			res.startErr = err
		}
		return res
	}
	return res
}

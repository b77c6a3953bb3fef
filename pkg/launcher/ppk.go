package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"sshive/pkg/manager"
)

// PPK key conversion.
//
// OpenSSH cannot read PuTTY's .ppk format, so on non-Windows platforms a
// .ppk key is converted to OpenSSH format via puttygen into a unique temp
// file for the duration of one launch or check. Windows is exempt: the
// PuTTY-link helpers used there accept .ppk natively.

// TempKey is an ephemeral converted key file. It is deleted exactly once,
// either synchronously (credential check) or after a delay (launch, so the
// spawned terminal's ssh can still read it).
type TempKey struct {
	Path string
	once sync.Once
}

// Remove deletes the temporary key. Idempotent: repeated calls and an
// already-missing file are both fine, and errors are swallowed since by
// cleanup time they are not user-actionable.
func (k *TempKey) Remove() {
	k.once.Do(func() {
		_ = os.Remove(k.Path)
	})
}

// RemoveAfter schedules Remove on a detached timer and returns immediately.
// There is no cancellation and no completion signal; the triggering call has
// already finished by the time the timer fires.
func (k *TempKey) RemoveAfter(d time.Duration) {
	time.AfterFunc(d, k.Remove)
}

// convertPPKIfNeeded converts keyPath when it is a .ppk key on a non-Windows
// platform. It returns the path ssh should actually use plus the temp handle
// when conversion happened.
//
// A missing puttygen is not fatal: the key is used unmodified, since some
// clients accept PPK natively. A failed or timed-out conversion is fatal to
// the requesting operation, with the temp file already discarded.
func (l *Launcher) convertPPKIfNeeded(keyPath string) (string, *TempKey, error) {
	expanded := manager.ExpandPath(keyPath)
	if keyPath == "" || l.goos == "windows" || !strings.HasSuffix(strings.ToLower(keyPath), ".ppk") {
		return expanded, nil, nil
	}

	puttygen, err := l.lookPath("puttygen")
	if err != nil {
		// Best-effort: no converter, use the key as-is.
		return expanded, nil, nil
	}

	f, err := os.CreateTemp("", "sshive_key_*.key")
	if err != nil {
		return "", nil, fmt.Errorf("create temp key file: %w", err)
	}
	tmpPath := f.Name()
	_ = f.Close()
	tempKey := &TempKey{Path: tmpPath}

	// puttygen prompts (and therefore hangs) on a passphrase-protected key;
	// the deadline turns that into a conversion failure.
	ctx, cancel := context.WithTimeout(context.Background(), l.convertTimeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, puttygen, expanded, "-O", "private-openssh", "-o", tmpPath)
	cmd.Stdin = nil
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if runErr := cmd.Run(); runErr != nil {
		tempKey.Remove()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", nil, fmt.Errorf("failed to convert PPK key: puttygen timed out (is the key passphrase-protected?)")
		}
		msg := strings.TrimSpace(output.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return "", nil, fmt.Errorf("failed to convert PPK key: %s", msg)
	}

	return tmpPath, tempKey, nil
}

func (l *Launcher) convertTimeout() time.Duration {
	if l.ConvertTimeout <= 0 {
		return 10 * time.Second
	}
	return l.ConvertTimeout
}

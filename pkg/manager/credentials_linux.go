//go:build linux
// +build linux

package manager

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Linux password store: Secret Service via `secret-tool`.
//
// Secrets are keyed by (app=sshive, connection=<name>) attributes so they
// never collide with other applications' items. We never print secrets and
// never log CredReveal output.

const secretServiceApp = "sshive"

// CredSet stores/updates the password for a connection name.
func CredSet(name, secret string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("CredSet: connection name is required")
	}
	if secret == "" {
		return errors.New("CredSet: empty secret refused")
	}
	return secretToolStore(fmt.Sprintf("%s (ssh password)", name), name, secret)
}

// CredGet verifies that a password exists and is accessible.
// It intentionally does NOT print or return the secret.
func CredGet(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("CredGet: connection name is required")
	}
	secret, err := secretToolLookup(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("CredGet: credential not found (app=%q connection=%q)", secretServiceApp, name)
	}
	return nil
}

// CredReveal retrieves the stored password for a connection name.
//
// WARNING: This returns sensitive data. It is intended for launch and
// credential-check paths only; nothing it returns may reach logs or screens.
func CredReveal(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("CredReveal: connection name is required")
	}
	secret, err := secretToolLookup(name)
	if err != nil {
		return "", err
	}
	secret = strings.TrimRight(secret, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("CredReveal: empty secret returned (app=%q connection=%q)", secretServiceApp, name)
	}
	return secret, nil
}

// CredDelete removes the stored password for a connection name.
func CredDelete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("CredDelete: connection name is required")
	}
	return secretToolClear(name)
}

// ---- Secret Service (secret-tool) helpers ----

func ensureSecretTool() (string, error) {
	candidates := []string{"/usr/bin/secret-tool", "/bin/secret-tool", "secret-tool"}
	for _, c := range candidates {
		if strings.Contains(c, "/") {
			if st, err := os.Stat(c); err == nil && st != nil {
				return c, nil
			}
			continue
		}
		if p, err := exec.LookPath(c); err == nil && p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("secret-tool not found: install libsecret tools (e.g. Debian/Ubuntu: apt-get install libsecret-tools)")
}

func secretToolStore(label, name, secret string) error {
	path, err := ensureSecretTool()
	if err != nil {
		return err
	}

	// Best-effort upsert: clear first (ignore errors).
	_ = secretToolClear(name)

	cmd := exec.Command(path,
		"store",
		"--label="+label,
		"app", secretServiceApp,
		"connection", name,
	)
	// The secret is supplied on stdin, never on the command line.
	cmd.Stdin = strings.NewReader(secret)

	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("secret-tool store: %s", msg)
	}
	return nil
}

func secretToolLookup(name string) (string, error) {
	path, err := ensureSecretTool()
	if err != nil {
		return "", err
	}

	cmd := exec.Command(path, "lookup", "app", secretServiceApp, "connection", name)
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "credential not found"
		}
		return "", fmt.Errorf("secret-tool lookup: %s", msg)
	}
	return stdout.String(), nil
}

func secretToolClear(name string) error {
	path, err := ensureSecretTool()
	if err != nil {
		return err
	}

	cmd := exec.Command(path, "clear", "app", secretServiceApp, "connection", name)
	cmd.Stdin = nil

	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("secret-tool clear: %s", msg)
	}
	return nil
}

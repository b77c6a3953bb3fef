//go:build darwin
// +build darwin

package manager

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// This file implements a macOS Keychain-backed password store by shelling out
// to the built-in `security` tool. This keeps us macOS-native and avoids
// introducing heavy cgo dependencies.
//
// Security model notes:
// - We never print secrets to stdout.
// - Secrets are stored as a "generic password" item keyed by the connection name.
// - `CredReveal` returns secret material for launch/check-time use only.
//   Callers MUST ensure the secret is never logged, stored, or displayed.

const keychainServiceName = "sshive"

// CredSet stores/updates the password for a connection name in the Keychain.
func CredSet(name, secret string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("CredSet: connection name is required")
	}
	if secret == "" {
		return errors.New("CredSet: empty secret refused")
	}

	// `security add-generic-password -U` updates if present.
	args := []string{
		"add-generic-password",
		"-U",
		"-s", keychainServiceName,
		"-a", name,
		"-l", fmt.Sprintf("%s (ssh password)", name),
		"-w", secret,
	}
	if err := runSecurity(args...); err != nil {
		return fmt.Errorf("CredSet: keychain write failed: %w", err)
	}
	return nil
}

// CredGet verifies that a password exists and is accessible.
// It intentionally does NOT print or return the secret.
func CredGet(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("CredGet: connection name is required")
	}

	// `security find-generic-password` returns 0 if found.
	// We avoid `-w` to ensure we never print the secret.
	if err := runSecurity("find-generic-password", "-s", keychainServiceName, "-a", name); err != nil {
		return fmt.Errorf("CredGet: credential not found (service=%q account=%q)", keychainServiceName, name)
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

	// `security find-generic-password -w` prints ONLY the password to stdout.
	// We capture it into memory and do not log it.
	cmd := exec.Command(securityPath(),
		"find-generic-password",
		"-w",
		"-s", keychainServiceName,
		"-a", name,
	)
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("CredReveal: %s", msg)
	}

	secret := strings.TrimRight(stdout.String(), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("CredReveal: empty secret returned (service=%q account=%q)", keychainServiceName, name)
	}
	return secret, nil
}

// CredDelete removes the stored password for a connection name.
func CredDelete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("CredDelete: connection name is required")
	}
	if err := runSecurity("delete-generic-password", "-s", keychainServiceName, "-a", name); err != nil {
		return fmt.Errorf("CredDelete: keychain delete failed: %w", err)
	}
	return nil
}

// ---- helpers ----

func securityPath() string {
	// Prefer absolute path if available. On macOS, `security` lives at /usr/bin/security.
	p := "/usr/bin/security"
	if _, err := os.Stat(p); err != nil {
		return "security"
	}
	return p
}

func runSecurity(args ...string) error {
	cmd := exec.Command(securityPath(), args...)
	// Never inherit stdin; for operations that may prompt due to Keychain
	// access controls, macOS shows its own UI prompt without stdin.
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Do not include stdout; it can carry item metadata.
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

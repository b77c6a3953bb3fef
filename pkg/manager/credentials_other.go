//go:build !darwin && !linux
// +build !darwin,!linux

package manager

import (
	"fmt"
	"runtime"
)

// Credential store stubs for platforms without a supported secret backend.
//
// macOS (darwin): implemented via Keychain.
// Linux: implemented via Secret Service (`secret-tool`).
// Other OSes (including Windows): not implemented; callers fall back to
// prompting for the password at launch/check time.

// CredSet stores/updates the password for a connection name.
// Not implemented on this platform.
func CredSet(name, secret string) error {
	_ = name
	_ = secret
	return notSupportedErr()
}

// CredGet verifies that a password exists and is accessible.
// Not implemented on this platform.
func CredGet(name string) error {
	_ = name
	return notSupportedErr()
}

// CredReveal retrieves the stored password for a connection name.
// Not implemented on this platform.
func CredReveal(name string) (string, error) {
	_ = name
	return "", notSupportedErr()
}

// CredDelete removes the stored password for a connection name.
// Not implemented on this platform.
func CredDelete(name string) error {
	_ = name
	return notSupportedErr()
}

func notSupportedErr() error {
	return fmt.Errorf("credential store is only supported on macOS (Keychain) and Linux (secret-tool); current=%s", runtime.GOOS)
}

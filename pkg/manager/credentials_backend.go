package manager

import "runtime"

// CredentialBackendKind identifies the active credential backend (for UI/status only).
type CredentialBackendKind string

const (
	CredBackendKeychain      CredentialBackendKind = "keychain"
	CredBackendSecretService CredentialBackendKind = "secret-service"
	CredBackendUnsupported   CredentialBackendKind = "unsupported"
)

// CredentialBackend returns the backend kind for the current OS/runtime.
func CredentialBackend() CredentialBackendKind {
	switch runtime.GOOS {
	case "darwin":
		return CredBackendKeychain
	case "linux":
		return CredBackendSecretService
	default:
		return CredBackendUnsupported
	}
}

// CredentialBackendLabel returns a short label for display.
func CredentialBackendLabel() string {
	switch CredentialBackend() {
	case CredBackendKeychain:
		return "Keychain"
	case CredBackendSecretService:
		return "Secret Service (secret-tool)"
	default:
		return "Unsupported"
	}
}

// CredentialBackendHint returns a short hint suitable for status/error messages.
func CredentialBackendHint() string {
	switch CredentialBackend() {
	case CredBackendKeychain:
		return "macOS Keychain via `security`"
	case CredBackendSecretService:
		return "Linux Secret Service via `secret-tool` (install libsecret tools + keyring provider)"
	default:
		return "no credential store backend for this OS; passwords are prompted per launch"
	}
}

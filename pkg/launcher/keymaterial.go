package launcher

import (
	"errors"
	"os"

	"golang.org/x/crypto/ssh"
)

// KeyNeedsPassphrase reports whether the OpenSSH private key at path is
// passphrase-protected. The active credential check runs ssh in batch mode
// when no password is set, and batch mode cannot unlock an encrypted key;
// detecting the condition lets the failure message say so instead of
// surfacing a bare "Permission denied".
func KeyNeedsPassphrase(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if _, err := ssh.ParseRawPrivateKey(data); err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return true, nil
		}
		// Unparseable key (including PPK): no verdict.
		return false, err
	}
	return false, nil
}

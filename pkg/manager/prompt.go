package manager

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptSecret reads a secret from the terminal without echo.
//
// Used by the `cred set` and `add --password` paths; launches never prompt
// mid-flight. Requires stdin to be a terminal; non-interactive callers get
// an error rather than a hang.
func PromptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot prompt for a secret: stdin is not a terminal")
	}

	if prompt != "" {
		fmt.Fprint(os.Stderr, prompt)
		if !strings.HasSuffix(prompt, ": ") {
			fmt.Fprint(os.Stderr, ": ")
		}
	}

	raw, err := term.ReadPassword(fd)
	// Echo was off; print the newline the user typed.
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}

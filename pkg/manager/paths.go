package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultConfigDirName = "sshive"

// DefaultConfigDir returns the directory path for this application's config.
// Precedence:
//  1. $XDG_CONFIG_HOME/sshive
//  2. ~/.config/sshive
func DefaultConfigDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, defaultConfigDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", defaultConfigDirName), nil
}

// ExpandPath expands a leading "~" and environment variables in a path.
// If the input is empty, returns "".
func ExpandPath(p string) string {
	if p == "" {
		return ""
	}
	// Expand env vars like $HOME
	p = os.ExpandEnv(p)
	// Expand leading "~"
	if strings.HasPrefix(p, "~") {
		home, _ := os.UserHomeDir()
		if home != "" {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
			// Note: "~user" not handled to avoid userdb lookups; rare for local client config paths.
		}
	}
	return p
}

// Package manager holds the connection model, the JSON-backed profile store,
// application settings, and the OS credential-store helpers for sshive.
package manager

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Connection is a single stored SSH connection profile.
//
// Example JSON on disk:
//
//	{
//	  "id": "9f2c1e...",
//	  "name": "web-1",
//	  "host": "web1.example.com",
//	  "user": "deploy",
//	  "port": 22,
//	  "key_path": "~/.ssh/id_ed25519",
//	  "group": "Production"
//	}
type Connection struct {
	// ID is a stable random identifier used by update/delete operations.
	ID string `json:"id"`

	Name string `json:"name"`
	Host string `json:"host"`
	User string `json:"user"`

	// Port defaults to 22 when zero.
	Port int `json:"port"`

	// KeyPath optionally points at a private key. May be "~"-relative and
	// may end in ".ppk" (PuTTY format; the launcher converts on demand).
	KeyPath string `json:"key_path,omitempty"`

	// Group and Icon are presentation metadata for the picker.
	Group string `json:"group,omitempty"`
	Icon  string `json:"icon,omitempty"`

	// Password is launch-time material only. It is resolved from the OS
	// secret store or an interactive prompt and is never serialized.
	Password string `json:"-"`
}

// DefaultGroup is assigned to connections created without a group.
const DefaultGroup = "Default"

// NewConnection returns a connection with a fresh ID and defaults applied.
// The result is not validated; call Validate before storing it.
func NewConnection(name, host, user string) *Connection {
	return &Connection{
		ID:    newConnectionID(),
		Name:  name,
		Host:  host,
		User:  user,
		Port:  22,
		Group: DefaultGroup,
	}
}

// Validate checks the profile fields that every caller relies on.
func (c *Connection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("connection name is required")
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("connection %q: host is required", c.Name)
	}
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("connection %q: user is required", c.Name)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("connection %q: invalid port %d", c.Name, c.Port)
	}
	return nil
}

// EffectivePort returns the port with the default applied.
func (c *Connection) EffectivePort() int {
	if c.Port <= 0 {
		return 22
	}
	return c.Port
}

// Destination returns the "user@host" ssh target.
func (c *Connection) Destination() string {
	return c.User + "@" + c.Host
}

// SSHCommand constructs the base OpenSSH argv for this connection:
//
//	ssh [-i key] [-p port] user@host
//
// "-p" is only added for non-default ports and "-i" only when a key is set.
// The key path is "~"-expanded so the argv is usable as-is.
func (c *Connection) SSHCommand() []string {
	cmd := []string{"ssh"}
	if c.KeyPath != "" {
		cmd = append(cmd, "-i", ExpandPath(c.KeyPath))
	}
	if p := c.EffectivePort(); p != 22 {
		cmd = append(cmd, "-p", strconv.Itoa(p))
	}
	cmd = append(cmd, c.Destination())
	return cmd
}

// String renders the display form used in lists and status lines.
func (c *Connection) String() string {
	return fmt.Sprintf("%s (%s@%s:%d)", c.Name, c.User, c.Host, c.EffectivePort())
}

// newConnectionID returns a random 128-bit hex identifier.
func newConnectionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; an empty ID is
		// caught by Store.Add which assigns a fresh one.
		return ""
	}
	return hex.EncodeToString(b[:])
}

package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Persistent connection store for sshive.
// Profiles live in a JSON file under the user's config dir:
//
//	~/.config/sshive/connections.json
//
// On systems honoring XDG, $XDG_CONFIG_HOME is used instead of ~/.config.
//
// The on-disk document is versioned so the format can be migrated later.
// Passwords are never part of this file; the Connection JSON mapping
// excludes them and secrets live in the OS credential store instead.

const (
	defaultStoreFilename = "connections.json"

	storeVersion = 1
)

// storeDocument is the on-disk JSON structure. Keep fields stable.
type storeDocument struct {
	Version     int           `json:"version"`
	Connections []*Connection `json:"connections"`

	// Updated tracks the last write time in RFC3339.
	Updated string `json:"updated,omitempty"`
}

// Store holds the loaded connection profiles and knows how to persist them.
// It is not safe for concurrent use; callers own serialization.
type Store struct {
	path        string
	connections []*Connection
}

// DefaultStorePath returns the full path to the connections.json file.
func DefaultStorePath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultStoreFilename), nil
}

// OpenStore reads the connection store at path. If path is empty, the default
// path is used. A missing file is not an error; it yields an empty store that
// will create the file on first Save.
func OpenStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		var err error
		path, err = DefaultStorePath()
		if err != nil {
			return nil, err
		}
	}
	path = ExpandPath(path)

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}

	for _, c := range doc.Connections {
		if c == nil {
			continue
		}
		if c.ID == "" {
			// Older files may predate IDs; assign one so update/delete work.
			c.ID = newConnectionID()
		}
		if c.Port <= 0 {
			c.Port = 22
		}
		if strings.TrimSpace(c.Group) == "" {
			c.Group = DefaultGroup
		}
		s.connections = append(s.connections, c)
	}

	return s, nil
}

// Path returns the file this store reads and writes.
func (s *Store) Path() string { return s.path }

// Len returns the number of stored connections.
func (s *Store) Len() int { return len(s.connections) }

// Save writes the store JSON atomically, creating the parent directory with
// 0700 permissions if missing.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir %s: %w", dir, err)
	}

	doc := storeDocument{
		Version:     storeVersion,
		Connections: s.connections,
		Updated:     time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	payload = append(payload, '\n')

	tmp := s.path + fmt.Sprintf(".tmp-%d-%d", os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write temp store %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename to %s: %w", s.path, err)
	}
	return nil
}

// Connections returns the stored profiles in file order.
// The slice is a copy; the pointed-to records are shared.
func (s *Store) Connections() []*Connection {
	out := make([]*Connection, len(s.connections))
	copy(out, s.connections)
	return out
}

// ByID returns the connection with the given ID, or nil.
func (s *Store) ByID(id string) *Connection {
	for _, c := range s.connections {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ByName returns the first connection with the given display name, or nil.
func (s *Store) ByName(name string) *Connection {
	name = strings.TrimSpace(name)
	for _, c := range s.connections {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Add validates and appends a new connection. A missing ID is assigned;
// duplicate names are rejected so that name-based lookup stays unambiguous.
func (s *Store) Add(c *Connection) error {
	if c == nil {
		return errors.New("nil connection")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if s.ByName(c.Name) != nil {
		return fmt.Errorf("connection %q already exists", c.Name)
	}
	if c.ID == "" {
		c.ID = newConnectionID()
	}
	if strings.TrimSpace(c.Group) == "" {
		c.Group = DefaultGroup
	}
	s.connections = append(s.connections, c)
	return nil
}

// Update replaces the stored connection with the same ID.
func (s *Store) Update(c *Connection) error {
	if c == nil {
		return errors.New("nil connection")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	for i, cur := range s.connections {
		if cur.ID == c.ID {
			s.connections[i] = c
			return nil
		}
	}
	return fmt.Errorf("connection id %q not found", c.ID)
}

// Delete removes the connection with the given ID.
// Returns true if the store was modified.
func (s *Store) Delete(id string) bool {
	out := s.connections[:0]
	removed := false
	for _, c := range s.connections {
		if c.ID == id {
			removed = true
			continue
		}
		out = append(out, c)
	}
	s.connections = out
	return removed
}

// Groups returns group name -> connections, with connections sorted by name.
func (s *Store) Groups() map[string][]*Connection {
	m := make(map[string][]*Connection)
	for _, c := range s.connections {
		g := c.Group
		if strings.TrimSpace(g) == "" {
			g = DefaultGroup
		}
		m[g] = append(m[g], c)
	}
	for _, conns := range m {
		sort.SliceStable(conns, func(i, j int) bool { return conns[i].Name < conns[j].Name })
	}
	return m
}

// GroupNames returns the group names in sorted order, Default first.
func (s *Store) GroupNames() []string {
	m := s.Groups()
	names := make([]string, 0, len(m))
	for g := range m {
		names = append(names, g)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == DefaultGroup {
			return true
		}
		if names[j] == DefaultGroup {
			return false
		}
		return names[i] < names[j]
	})
	return names
}

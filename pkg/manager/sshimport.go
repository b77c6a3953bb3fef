package manager

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

// OpenSSH client-config import.
//
// `sshive import` seeds the connection store from ~/.ssh/config so existing
// hosts don't have to be re-typed. Only the fields the store models are
// read: HostName, User, Port and IdentityFile. Include directives are
// followed; Match sections and wildcard Host patterns are skipped since they
// don't describe one concrete destination.

// SSHConfigEntry is one concrete Host block read from an OpenSSH config.
type SSHConfigEntry struct {
	Alias        string
	HostName     string
	User         string
	Port         int
	IdentityFile string
}

// DefaultSSHConfigPath returns ~/.ssh/config, or "" when no home dir
// resolves.
func DefaultSSHConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "config")
}

// ParseSSHConfig reads concrete host entries from path and every file its
// Include directives reach. A missing file yields no entries, matching how
// ssh itself treats absent Include targets.
func ParseSSHConfig(path string) ([]SSHConfigEntry, error) {
	return parseSSHConfigFile(ExpandPath(path), map[string]struct{}{})
}

func parseSSHConfigFile(path string, visited map[string]struct{}) ([]SSHConfigEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, seen := visited[abs]; seen {
		return nil, nil
	}
	visited[abs] = struct{}{}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ssh config %s: %w", abs, err)
	}
	defer f.Close()

	var out []SSHConfigEntry
	var current []*SSHConfigEntry
	inMatch := false

	flush := func() {
		for _, e := range current {
			out = append(out, *e)
		}
		current = nil
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(stripConfigComment(sc.Text()))
		if line == "" {
			continue
		}
		key, val, ok := splitConfigLine(line)
		if !ok {
			continue
		}

		switch strings.ToLower(key) {
		case "host":
			flush()
			inMatch = false
			for _, pattern := range strings.Fields(val) {
				if strings.ContainsAny(pattern, "*?!") {
					continue
				}
				current = append(current, &SSHConfigEntry{Alias: pattern, HostName: pattern, Port: 22})
			}
		case "match":
			// Conditional sections aren't evaluated; everything until the
			// next Host block is ignored.
			flush()
			inMatch = true
		case "include":
			flush()
			inMatch = false
			for _, pattern := range strings.Fields(val) {
				for _, inc := range expandIncludePath(abs, pattern) {
					children, err := parseSSHConfigFile(inc, visited)
					if err != nil {
						return nil, err
					}
					out = append(out, children...)
				}
			}
		default:
			if inMatch || len(current) == 0 {
				continue
			}
			applyConfigKey(current, strings.ToLower(key), val)
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ssh config %s: %w", abs, err)
	}
	return out, nil
}

// applyConfigKey sets one recognized option on every alias of the current
// block; ssh semantics give the first occurrence precedence.
func applyConfigKey(entries []*SSHConfigEntry, key, val string) {
	for _, e := range entries {
		switch key {
		case "hostname":
			if e.HostName == e.Alias {
				e.HostName = val
			}
		case "user":
			if e.User == "" {
				e.User = val
			}
		case "port":
			if p, err := strconv.Atoi(val); err == nil && e.Port == 22 {
				e.Port = p
			}
		case "identityfile":
			if e.IdentityFile == "" {
				e.IdentityFile = val
			}
		}
	}
}

// stripConfigComment drops a trailing # comment unless it sits inside a
// double-quoted value.
func stripConfigComment(s string) string {
	inQuote := false
	for i, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return s[:i]
			}
		}
	}
	return s
}

// splitConfigLine splits "Key Value" or "Key=Value", unquoting the value.
func splitConfigLine(line string) (key, val string, ok bool) {
	idx := strings.IndexAny(line, " \t=")
	if idx < 0 {
		return "", "", false
	}
	key = line[:idx]
	val = strings.TrimLeft(line[idx:], " \t=")
	val = strings.Trim(val, `"`)
	if key == "" {
		return "", "", false
	}
	return key, val, true
}

// expandIncludePath resolves an Include pattern, globbing and making
// relative patterns relative to the including file's directory, as ssh does.
func expandIncludePath(baseFile, pattern string) []string {
	pattern = ExpandPath(pattern)
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(filepath.Dir(baseFile), pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		// Non-matching includes are normal; a non-glob path may still exist
		// for the recursive parse to pick up or skip.
		return []string{pattern}
	}
	return matches
}

// ImportSSHConfig adds every concrete host from the config at path to the
// store, one connection per alias, under the given group. Aliases whose name
// is already stored are skipped, not merged. Returns the names added.
// The caller saves the store.
func (s *Store) ImportSSHConfig(path, group string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultSSHConfigPath()
	}
	if path == "" {
		return nil, fmt.Errorf("cannot determine ssh config path")
	}

	entries, err := ParseSSHConfig(path)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, e := range entries {
		if s.ByName(e.Alias) != nil {
			continue
		}
		c := NewConnection(e.Alias, e.HostName, e.User)
		if c.User == "" {
			c.User = localUserName()
		}
		c.Port = e.Port
		c.KeyPath = e.IdentityFile
		if strings.TrimSpace(group) != "" {
			c.Group = group
		}
		if err := c.Validate(); err != nil {
			// Entries ssh could still use via defaults we don't model are
			// skipped rather than failing the whole import.
			continue
		}
		if err := s.Add(c); err != nil {
			return added, err
		}
		added = append(added, c.Name)
	}
	return added, nil
}

func localUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

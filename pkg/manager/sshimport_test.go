package manager

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSSHConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseSSHConfigBasicBlocks(t *testing.T) {
	path := writeSSHConfig(t, t.TempDir(), "config", `
# comment
Host web-1
    HostName web1.example.com
    User deploy
    Port 2222
    IdentityFile ~/.ssh/id_web

Host bare
`)

	entries, err := ParseSSHConfig(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	e := entries[0]
	if e.Alias != "web-1" || e.HostName != "web1.example.com" || e.User != "deploy" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Port != 2222 || e.IdentityFile != "~/.ssh/id_web" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	// A block with no HostName uses the alias as the host.
	if entries[1].Alias != "bare" || entries[1].HostName != "bare" || entries[1].Port != 22 {
		t.Fatalf("unexpected bare entry: %+v", entries[1])
	}
}

func TestParseSSHConfigSkipsWildcardsAndMatch(t *testing.T) {
	path := writeSSHConfig(t, t.TempDir(), "config", `
Host *
    ServerAliveInterval 30

Host web-? bastion
    HostName bastion.example.com

Match user deploy
    Port 9999

Host after-match
    Port 2200
`)

	entries, err := ParseSSHConfig(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected bastion and after-match only, got %+v", entries)
	}
	if entries[0].Alias != "bastion" || entries[0].HostName != "bastion.example.com" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	// The Match section's Port must not bleed into after-match.
	if entries[1].Alias != "after-match" || entries[1].Port != 2200 {
		t.Fatalf("unexpected entry: %+v", entries[1])
	}
}

func TestParseSSHConfigMultiAliasBlock(t *testing.T) {
	path := writeSSHConfig(t, t.TempDir(), "config", `
Host a b
    HostName shared.example.com
    User ops
`)

	entries, err := ParseSSHConfig(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one entry per alias, got %+v", entries)
	}
	for _, e := range entries {
		if e.HostName != "shared.example.com" || e.User != "ops" {
			t.Fatalf("settings not applied to all aliases: %+v", e)
		}
	}
}

func TestParseSSHConfigFollowsIncludes(t *testing.T) {
	dir := t.TempDir()
	writeSSHConfig(t, dir, "extra.conf", `
Host from-include
    HostName inc.example.com
`)
	main := writeSSHConfig(t, dir, "config", `
Include extra.conf
Include no-such-*.conf

Host local
    HostName local.example.com
`)

	entries, err := ParseSSHConfig(main)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected included + local entries, got %+v", entries)
	}
	if entries[0].Alias != "from-include" || entries[1].Alias != "local" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}

func TestParseSSHConfigMissingFile(t *testing.T) {
	entries, err := ParseSSHConfig(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestImportSSHConfigIntoStore(t *testing.T) {
	dir := t.TempDir()
	path := writeSSHConfig(t, dir, "config", `
Host web-1
    HostName web1.example.com
    User deploy

Host db-1
    HostName db1.example.com
    User dba
    Port 5432
`)

	s := testStore(t)
	// Pre-existing names are skipped, not merged.
	pre := NewConnection("web-1", "elsewhere", "other")
	if err := s.Add(pre); err != nil {
		t.Fatalf("add: %v", err)
	}

	added, err := s.ImportSSHConfig(path, "Imported")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(added) != 1 || added[0] != "db-1" {
		t.Fatalf("expected only db-1 added, got %v", added)
	}

	c := s.ByName("db-1")
	if c == nil || c.Host != "db1.example.com" || c.User != "dba" || c.Port != 5432 {
		t.Fatalf("unexpected imported connection: %+v", c)
	}
	if c.Group != "Imported" {
		t.Fatalf("expected Imported group, got %q", c.Group)
	}
	if got := s.ByName("web-1"); got.Host != "elsewhere" {
		t.Fatalf("existing connection was overwritten: %+v", got)
	}
}

package manager

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "connections.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestOpenStoreMissingFileIsEmpty(t *testing.T) {
	s := testStore(t)
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestStoreSaveAndReload(t *testing.T) {
	s := testStore(t)

	c := NewConnection("web-1", "web1.example.com", "deploy")
	c.Group = "Production"
	c.KeyPath = "~/.ssh/id_ed25519"
	if err := s.Add(c); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	re, err := OpenStore(s.Path())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if re.Len() != 1 {
		t.Fatalf("expected 1 connection after reload, got %d", re.Len())
	}
	got := re.ByName("web-1")
	if got == nil {
		t.Fatalf("connection missing after reload")
	}
	if got.ID != c.ID || got.Group != "Production" || got.KeyPath != "~/.ssh/id_ed25519" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestStoreSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "connections.json")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Add(NewConnection("a", "h", "u")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Fatalf("expected 0700 dir, got %o", perm)
	}
	if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 file, got %v %v", info, err)
	}
}

func TestStoreFileIsVersionedAndPasswordFree(t *testing.T) {
	s := testStore(t)
	c := NewConnection("web-1", "web1.example.com", "deploy")
	c.Password = "hunter2"
	if err := s.Add(c); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "hunter2") {
		t.Fatalf("password persisted to disk")
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, ok := doc["version"].(float64); !ok || int(v) != 1 {
		t.Fatalf("expected version 1, got %v", doc["version"])
	}
	if _, ok := doc["updated"]; !ok {
		t.Fatalf("expected updated timestamp")
	}
}

func TestOpenStoreBackfillsLegacyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	legacy := `{"version":1,"connections":[{"name":"old","host":"h","user":"u"}]}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c := s.ByName("old")
	if c == nil {
		t.Fatalf("legacy record missing")
	}
	if c.ID == "" {
		t.Fatalf("expected backfilled ID")
	}
	if c.Port != 22 || c.Group != DefaultGroup {
		t.Fatalf("expected backfilled defaults, got %+v", c)
	}
}

func TestOpenStoreRejectsCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenStore(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStoreAddRejectsDuplicateNames(t *testing.T) {
	s := testStore(t)
	if err := s.Add(NewConnection("web", "h1", "u")); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := s.Add(NewConnection("web", "h2", "u"))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate-name rejection, got: %v", err)
	}
}

func TestStoreAddRejectsInvalid(t *testing.T) {
	s := testStore(t)
	c := NewConnection("", "h", "u")
	if err := s.Add(c); err == nil {
		t.Fatalf("expected validation error")
	}
	if s.Len() != 0 {
		t.Fatalf("invalid connection must not be stored")
	}
}

func TestStoreUpdateAndDelete(t *testing.T) {
	s := testStore(t)
	c := NewConnection("web", "h", "u")
	if err := s.Add(c); err != nil {
		t.Fatalf("add: %v", err)
	}

	mod := *c
	mod.Host = "h2"
	if err := s.Update(&mod); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := s.ByID(c.ID); got == nil || got.Host != "h2" {
		t.Fatalf("update not applied: %+v", got)
	}

	unknown := NewConnection("x", "h", "u")
	if err := s.Update(unknown); err == nil {
		t.Fatalf("expected unknown-id error")
	}

	if !s.Delete(c.ID) {
		t.Fatalf("expected delete to report a change")
	}
	if s.Delete(c.ID) {
		t.Fatalf("second delete must be a no-op")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store after delete")
	}
}

func TestStoreGroups(t *testing.T) {
	s := testStore(t)
	for _, spec := range []struct{ name, group string }{
		{"zeta", "Production"},
		{"alpha", "Production"},
		{"solo", ""},
		{"mid", "Lab"},
	} {
		c := NewConnection(spec.name, "h", "u")
		c.Group = spec.group
		if err := s.Add(c); err != nil {
			t.Fatalf("add %s: %v", spec.name, err)
		}
	}

	groups := s.Groups()
	prod := groups["Production"]
	if len(prod) != 2 || prod[0].Name != "alpha" || prod[1].Name != "zeta" {
		t.Fatalf("expected name-sorted Production group, got %v", prod)
	}
	if len(groups[DefaultGroup]) != 1 {
		t.Fatalf("ungrouped connection must land in %s", DefaultGroup)
	}

	names := s.GroupNames()
	want := []string{DefaultGroup, "Lab", "Production"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected group order: %v", names)
	}
}

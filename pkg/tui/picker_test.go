package tui

import (
	"path/filepath"
	"testing"

	"sshive/pkg/launcher"
	"sshive/pkg/manager"
)

func pickerModel(t *testing.T, query string, specs ...[2]string) *model {
	t.Helper()
	store, err := manager.OpenStore(filepath.Join(t.TempDir(), "connections.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, spec := range specs {
		c := manager.NewConnection(spec[0], spec[0]+".example.com", "deploy")
		c.Group = spec[1]
		if err := store.Add(c); err != nil {
			t.Fatalf("add %s: %v", spec[0], err)
		}
	}
	return newModel(store, launcher.NewLauncher(), Options{InitialQuery: query})
}

func visibleNames(m *model) []string {
	var out []string
	for _, r := range m.rows {
		if !r.header {
			out = append(out, r.conn.Name)
		}
	}
	return out
}

func TestRowsGroupedWithHeaders(t *testing.T) {
	m := pickerModel(t, "",
		[2]string{"db-1", "Lab"},
		[2]string{"web-1", "Production"},
		[2]string{"web-2", "Production"},
	)

	if len(m.rows) != 5 {
		t.Fatalf("expected 2 headers + 3 connections, got %d rows", len(m.rows))
	}
	if !m.rows[0].header || m.rows[0].group != "Lab" {
		t.Fatalf("expected Lab header first, got %+v", m.rows[0])
	}
	if m.rows[1].conn == nil || m.rows[1].conn.Name != "db-1" {
		t.Fatalf("expected db-1 under Lab, got %+v", m.rows[1])
	}
}

func TestCursorStartsOnConnectionNotHeader(t *testing.T) {
	m := pickerModel(t, "", [2]string{"web-1", "Production"})
	if cur := m.current(); cur == nil || cur.Name != "web-1" {
		t.Fatalf("expected cursor on web-1, got %+v", cur)
	}
}

func TestFilterMatchesAcrossFields(t *testing.T) {
	m := pickerModel(t, "",
		[2]string{"web-1", "Production"},
		[2]string{"db-1", "Lab"},
	)

	// Group name matches.
	m.input.SetValue("lab")
	m.recomputeRows()
	if got := visibleNames(m); len(got) != 1 || got[0] != "db-1" {
		t.Fatalf("expected group match, got %v", got)
	}

	// Host matches.
	m.input.SetValue("web-1.example")
	m.recomputeRows()
	if got := visibleNames(m); len(got) != 1 || got[0] != "web-1" {
		t.Fatalf("expected host match, got %v", got)
	}

	// Multi-token AND.
	m.input.SetValue("deploy production")
	m.recomputeRows()
	if got := visibleNames(m); len(got) != 1 || got[0] != "web-1" {
		t.Fatalf("expected AND match, got %v", got)
	}
	m.input.SetValue("deploy nowhere")
	m.recomputeRows()
	if got := visibleNames(m); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestFilterHidesEmptyGroups(t *testing.T) {
	m := pickerModel(t, "",
		[2]string{"web-1", "Production"},
		[2]string{"db-1", "Lab"},
	)
	m.input.SetValue("web")
	m.recomputeRows()

	for _, r := range m.rows {
		if r.header && r.group == "Lab" {
			t.Fatalf("empty group must not render a header")
		}
	}
}

func TestMoveCursorSkipsHeaders(t *testing.T) {
	m := pickerModel(t, "",
		[2]string{"db-1", "Lab"},
		[2]string{"web-1", "Production"},
	)

	// rows: [Lab] db-1 [Production] web-1
	if cur := m.current(); cur == nil || cur.Name != "db-1" {
		t.Fatalf("expected db-1 first, got %+v", cur)
	}
	m.moveCursor(1)
	if cur := m.current(); cur == nil || cur.Name != "web-1" {
		t.Fatalf("expected web-1 after skipping header, got %+v", cur)
	}
	m.moveCursor(1) // at the end; stays put
	if cur := m.current(); cur == nil || cur.Name != "web-1" {
		t.Fatalf("expected cursor pinned at last row, got %+v", cur)
	}
	m.moveCursor(-1)
	if cur := m.current(); cur == nil || cur.Name != "db-1" {
		t.Fatalf("expected db-1 after moving back, got %+v", cur)
	}
}

func TestCursorClampedAfterNarrowingFilter(t *testing.T) {
	m := pickerModel(t, "",
		[2]string{"alpha", "Lab"},
		[2]string{"bravo", "Lab"},
		[2]string{"charlie", "Lab"},
	)
	m.moveCursor(1)
	m.moveCursor(1)
	if cur := m.current(); cur == nil || cur.Name != "charlie" {
		t.Fatalf("expected charlie, got %+v", cur)
	}

	m.input.SetValue("alpha")
	m.recomputeRows()
	if cur := m.current(); cur == nil || cur.Name != "alpha" {
		t.Fatalf("expected cursor clamped onto alpha, got %+v", cur)
	}
}

func TestInitialQueryAppliedAtConstruction(t *testing.T) {
	m := pickerModel(t, "db",
		[2]string{"web-1", "Production"},
		[2]string{"db-1", "Lab"},
	)
	if got := visibleNames(m); len(got) != 1 || got[0] != "db-1" {
		t.Fatalf("expected initial query filter, got %v", got)
	}
}

func TestWithStoredPasswordCopiesRecord(t *testing.T) {
	m := pickerModel(t, "", [2]string{"web-1", "Production"})
	orig := m.current()

	got := m.withStoredPassword(orig)
	if got == orig {
		t.Fatalf("expected a copy, got the stored record")
	}
	got.Password = "transient"
	if orig.Password != "" {
		t.Fatalf("stored record was mutated")
	}
}

package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)

	ident, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(ident.SessionID, "sess_") {
		t.Fatalf("unexpected session id %q", ident.SessionID)
	}
	if ident.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}

	// A second store on the same directory sees the same identity.
	again, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.SessionID != ident.SessionID {
		t.Fatalf("identity not persisted: %q vs %q", again.SessionID, ident.SessionID)
	}
}

func TestClearRegenerates(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	first, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	second, err := st.Clear()
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatal("clear kept the old session id")
	}

	reloaded, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.SessionID != second.SessionID {
		t.Fatal("cleared identity not persisted")
	}
}

func TestCorruptFileStartsOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	if err := os.WriteFile(path, []byte("{{{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	ident, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("load over corrupt file: %v", err)
	}
	if !strings.HasPrefix(ident.SessionID, "sess_") {
		t.Fatalf("unexpected session id %q", ident.SessionID)
	}
}

func TestSetCustomerID(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	if _, err := st.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	ident, err := st.SetCustomerID("cust-42")
	if err != nil {
		t.Fatalf("set customer id: %v", err)
	}
	if ident.CustomerID != "cust-42" {
		t.Fatalf("customer id not set: %+v", ident)
	}

	reloaded, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.CustomerID != "cust-42" {
		t.Fatal("customer id not persisted")
	}
}

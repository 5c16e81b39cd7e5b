package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLedgerLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := mgr.Begin("jack", "run-1"); err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}
	e, ok := mgr.Get("jack")
	if !ok {
		t.Fatal("Expected entry after Begin")
	}
	if e.Attempts != 1 || e.Status != StatusRunning || e.LastRunID != "run-1" {
		t.Errorf("Unexpected entry after Begin: %+v", e)
	}

	if err := mgr.Finish("jack", StatusDone, 12, "limit", nil); err != nil {
		t.Fatalf("Failed to finish: %v", err)
	}

	t.Run("Reload", func(t *testing.T) {
		again, err := NewManager(path)
		if err != nil {
			t.Fatalf("Failed to reopen ledger: %v", err)
		}
		e, ok := again.Get("jack")
		if !ok {
			t.Fatal("Expected entry to survive reload")
		}
		if e.Status != StatusDone || e.Collected != 12 || e.StopReason != "limit" {
			t.Errorf("Unexpected reloaded entry: %+v", e)
		}
	})

	t.Run("NoTempFileLeft", func(t *testing.T) {
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("Temporary ledger file should not remain")
		}
	})
}

func TestExhausted(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := mgr.Begin("ev", "run"); err != nil {
			t.Fatal(err)
		}
		if err := mgr.Finish("ev", StatusFailed, 0, "", errors.New("navigation timed out")); err != nil {
			t.Fatal(err)
		}
	}

	if mgr.Exhausted("ev", 3) {
		t.Error("Two failures should not exhaust a limit of three")
	}
	if !mgr.Exhausted("ev", 2) {
		t.Error("Two failures should exhaust a limit of two")
	}
	if mgr.Exhausted("ev", 0) {
		t.Error("A zero limit never exhausts")
	}
	if mgr.Exhausted("unknown", 1) {
		t.Error("Unknown identities are never exhausted")
	}

	e, _ := mgr.Get("ev")
	if !strings.Contains(e.LastError, "navigation") {
		t.Errorf("Expected last error to be recorded, got %q", e.LastError)
	}

	if err := mgr.Begin("ev", "run"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Finish("ev", StatusDone, 3, "stale", nil); err != nil {
		t.Fatal(err)
	}
	if mgr.Exhausted("ev", 2) {
		t.Error("A completed identity is not exhausted")
	}
}

func TestEntriesSortedAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"noah", "biz", "jack"} {
		if err := mgr.Begin(id, "r"); err != nil {
			t.Fatal(err)
		}
	}

	entries := mgr.Entries()
	if len(entries) != 3 || entries[0].Identity != "biz" || entries[2].Identity != "noah" {
		t.Errorf("Expected sorted entries, got %+v", entries)
	}

	if err := mgr.Backup(); err != nil {
		t.Fatalf("Failed to back up: %v", err)
	}
	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Errorf("Expected backup file: %v", err)
	}

	if err := mgr.Reset(); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if len(mgr.Entries()) != 0 {
		t.Error("Expected empty ledger after reset")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected ledger file to be removed")
	}
}

func TestDefaultPathUsesDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if !strings.HasPrefix(mgr.Path(), dir) && filepath.Base(mgr.Path()) != "batch.ledger.json" {
		t.Errorf("Unexpected default path %s", mgr.Path())
	}
}

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xscraper/pkg/models"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	m, err := NewManager(filepath.Join(root, "profiles"), filepath.Join(root, "shots"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func sampleResult() *models.AggregateResult {
	r := models.NewAggregateResult()
	r.Profile = models.ProfileRecord{IdentityName: "Jack", Bio: "just setting up my twttr"}
	r.Posts = append(r.Posts, models.ContentItem{ItemID: "1", Text: "hello <world> & friends", PublishedAt: "2024-03-01"})
	return r
}

func TestSaveAndLoad(t *testing.T) {
	m := newManager(t)

	if err := m.Save("jack", sampleResult()); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(m.OutputDir(), "jack.json"))
	if err != nil {
		t.Fatalf("Failed to read document: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"profile\"") {
		t.Error("Expected indented JSON")
	}
	if !strings.Contains(string(data), "hello <world> & friends") {
		t.Error("Expected text to be stored without HTML escaping")
	}
	if _, err := os.Stat(filepath.Join(m.OutputDir(), "jack.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain")
	}

	loaded, err := m.Load("jack")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Profile.IdentityName != "Jack" || len(loaded.Posts) != 1 {
		t.Errorf("Loaded result mismatch: %+v", loaded)
	}
	if loaded.Followers == nil {
		t.Error("Expected empty lists to be normalized")
	}
}

func TestEmptyResultIsNotAnAttempt(t *testing.T) {
	m := newManager(t)

	if err := m.Save("nobody", nil); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if m.IsAttempted("nobody") {
		t.Error("Empty document should not count as attempted")
	}

	var raw map[string]json.RawMessage
	data, _ := os.ReadFile(filepath.Join(m.OutputDir(), "nobody.json"))
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Document is not JSON: %v", err)
	}
	if string(raw["posts"]) != "[]" {
		t.Errorf("Expected posts to be [], got %s", raw["posts"])
	}
}

func TestIsAttempted(t *testing.T) {
	m := newManager(t)

	if m.IsAttempted("jack") {
		t.Error("Missing document should not count as attempted")
	}
	if err := m.Save("jack", sampleResult()); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if !m.IsAttempted("jack") {
		t.Error("Expected populated document to count as attempted")
	}

	// A tiny hand-written file is below the marker size
	tiny := filepath.Join(m.OutputDir(), "tiny.json")
	if err := os.WriteFile(tiny, []byte(`{"profile":{"bio":"x"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if m.IsAttempted("tiny") {
		t.Error("Document below the marker size should not count")
	}
	if m.IsAttempted("../etc/passwd") {
		t.Error("Invalid identity should never count")
	}
}

func TestExistingFilesAreScanned(t *testing.T) {
	m := newManager(t)
	if err := m.Save("jack", sampleResult()); err != nil {
		t.Fatal(err)
	}

	again, err := NewManager(m.OutputDir(), m.ScreenshotDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if again.AttemptedCount() != 1 {
		t.Errorf("Expected 1 attempted identity, got %d", again.AttemptedCount())
	}
}

func TestSaveRejectsUnsafeIdentity(t *testing.T) {
	m := newManager(t)
	for _, id := range []string{"", "../x", "a/b", "a b", strings.Repeat("a", 51)} {
		if err := m.Save(id, sampleResult()); !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidIdentity", id, err)
		}
	}
}

func TestScreenshots(t *testing.T) {
	m := newManager(t)

	name, err := m.SaveScreenshot("jack", bytes.NewReader([]byte("png")))
	if err != nil {
		t.Fatalf("Failed to save screenshot: %v", err)
	}
	if !strings.HasPrefix(name, "jack_") || !strings.HasSuffix(name, ".png") {
		t.Errorf("Unexpected screenshot name %s", name)
	}
	if _, err := m.SaveScreenshot("jackson", bytes.NewReader([]byte("png"))); err != nil {
		t.Fatal(err)
	}

	names, err := m.Screenshots("jack")
	if err != nil {
		t.Fatalf("Failed to list screenshots: %v", err)
	}
	if len(names) != 1 || names[0] != name {
		t.Errorf("Expected [%s], got %v", name, names)
	}

	path, err := m.ScreenshotPath(name)
	if err != nil {
		t.Fatalf("Failed to resolve screenshot: %v", err)
	}
	if filepath.Dir(path) != m.ScreenshotDir() {
		t.Errorf("Resolved outside screenshot dir: %s", path)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	m := newManager(t)
	for _, name := range []string{"../secret.png", ".hidden.png", "x.txt", ""} {
		if _, err := m.ScreenshotPath(name); !errors.Is(err, ErrInvalidFile) {
			t.Errorf("ScreenshotPath(%q) error = %v, want ErrInvalidFile", name, err)
		}
	}
	if _, err := m.DocumentPath("missing.json"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"xscraper/pkg/logger"
)

// Status of the last attempt for an identity
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusAborted Status = "aborted"
)

// Entry is the ledger record of one identity
type Entry struct {
	Identity   string    `json:"identity"`
	Attempts   int       `json:"attempts"`
	Status     Status    `json:"status"`
	LastRunID  string    `json:"last_run_id,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Collected  int       `json:"collected"`
	StopReason string    `json:"stop_reason,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Ledger is the persisted state of a batch
type Ledger struct {
	Entries   map[string]*Entry `json:"entries"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Version   int               `json:"version"`
}

// Manager owns one ledger file. It is safe for concurrent workers.
type Manager struct {
	path   string
	logger logger.Logger

	mu     sync.Mutex
	ledger *Ledger
}

// DefaultPath returns the ledger location under the user data directory
func DefaultPath() (string, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return "", fmt.Errorf("failed to get data directory: %w", err)
	}
	return filepath.Join(dataDir, "checkpoints", "batch.ledger.json"), nil
}

// NewManager opens the ledger at path, or at DefaultPath when path is empty.
// An existing ledger is loaded.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	m := &Manager{path: path, logger: logger.GetLogger()}
	ledger, err := m.load()
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = &Ledger{Entries: make(map[string]*Entry), CreatedAt: time.Now(), Version: 1}
	}
	m.ledger = ledger
	return m, nil
}

// Path returns the ledger file
func (m *Manager) Path() string { return m.path }

func (m *Manager) load() (*Ledger, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer file.Close()

	var ledger Ledger
	if err := json.NewDecoder(file).Decode(&ledger); err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}
	if ledger.Entries == nil {
		ledger.Entries = make(map[string]*Entry)
	}

	m.logger.InfoWithFields("Ledger loaded", map[string]interface{}{
		"path":       m.path,
		"identities": len(ledger.Entries),
		"updated_at": ledger.UpdatedAt,
	})
	return &ledger, nil
}

// save writes the ledger atomically. Callers hold mu.
func (m *Manager) save() error {
	m.ledger.UpdatedAt = time.Now()

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m.ledger); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

// Begin records the start of an attempt
func (m *Manager) Begin(identity, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(identity)
	e.Attempts++
	e.Status = StatusRunning
	e.LastRunID = runID
	e.LastError = ""
	e.UpdatedAt = time.Now()
	return m.save()
}

// Finish records the outcome of the current attempt
func (m *Manager) Finish(identity string, status Status, collected int, stopReason string, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(identity)
	e.Status = status
	e.Collected = collected
	e.StopReason = stopReason
	e.LastError = ""
	if runErr != nil {
		e.LastError = runErr.Error()
	}
	e.UpdatedAt = time.Now()

	m.logger.DebugWithFields("Ledger updated", map[string]interface{}{
		"identity": identity,
		"status":   status,
		"attempts": e.Attempts,
	})
	return m.save()
}

func (m *Manager) entry(identity string) *Entry {
	e, ok := m.ledger.Entries[identity]
	if !ok {
		e = &Entry{Identity: identity}
		m.ledger.Entries[identity] = e
	}
	return e
}

// Get returns a copy of the entry for identity
func (m *Manager) Get(identity string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.ledger.Entries[identity]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Exhausted reports whether identity failed maxAttempts times without
// completing. A non-positive maxAttempts never exhausts.
func (m *Manager) Exhausted(identity string, maxAttempts int) bool {
	if maxAttempts <= 0 {
		return false
	}
	e, ok := m.Get(identity)
	return ok && e.Status != StatusDone && e.Attempts >= maxAttempts
}

// Entries returns all entries sorted by identity
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.ledger.Entries))
	for _, e := range m.ledger.Entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Reset clears the ledger and removes its file
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = &Ledger{Entries: make(map[string]*Entry), CreatedAt: time.Now(), Version: 1}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	m.logger.Info("Ledger reset")
	return nil
}

// Backup copies the ledger file to <path>.backup
func (m *Manager) Backup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open ledger for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(m.path + ".backup")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy ledger to backup: %w", err)
	}
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "xscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "xscraper")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "xscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "xscraper")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"xscraper/pkg/models"
)

// AttemptMarkerSize is the default minimum size of a document that counts as
// an attempt
const AttemptMarkerSize = 64

var (
	// ErrInvalidIdentity is returned for names that are not safe file stems
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidFile is returned for file names outside the managed directories
	ErrInvalidFile = errors.New("invalid file name")

	identityPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,50}$`)
)

// ValidateIdentity checks that identity can be used as a file stem
func ValidateIdentity(identity string) error {
	if !identityPattern.MatchString(identity) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	return nil
}

// Manager handles result documents and screenshots on disk
type Manager struct {
	outputDir     string
	screenshotDir string
	minMarkerSize int64
	attempted     map[string]bool
	mu            sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithMinMarkerSize sets the size a document needs to count as attempted
func WithMinMarkerSize(n int64) Option {
	return func(m *Manager) { m.minMarkerSize = n }
}

// NewManager creates a storage manager, creating both directories
func NewManager(outputDir, screenshotDir string, opts ...Option) (*Manager, error) {
	for _, dir := range []string{outputDir, screenshotDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	m := &Manager{
		outputDir:     outputDir,
		screenshotDir: screenshotDir,
		minMarkerSize: AttemptMarkerSize,
		attempted:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return m, nil
}

// scanExistingFiles caches which identities already have an attempt marker
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		identity := strings.TrimSuffix(entry.Name(), ".json")
		if m.checkMarker(identity) {
			m.attempted[identity] = true
		}
	}
	return nil
}

func (m *Manager) documentPath(identity string) string {
	return filepath.Join(m.outputDir, identity+".json")
}

// Save writes result as indented JSON at <output>/<identity>.json. The write
// goes through a temporary file and a rename.
func (m *Manager) Save(identity string, result *models.AggregateResult) error {
	if err := ValidateIdentity(identity); err != nil {
		return err
	}
	if result == nil {
		result = models.NewAggregateResult()
	}
	result.Normalize()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := m.writeAtomic(m.documentPath(identity), &buf); err != nil {
		return err
	}

	m.mu.Lock()
	m.attempted[identity] = int64(buf.Len()) >= m.minMarkerSize && result.HasContent()
	m.mu.Unlock()
	return nil
}

// Load reads a stored document
func (m *Manager) Load(identity string) (*models.AggregateResult, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.documentPath(identity))
	if err != nil {
		return nil, err
	}
	var result models.AggregateResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", identity, err)
	}
	result.Normalize()
	return &result, nil
}

// IsAttempted reports whether a document exists that is large enough and
// carries at least one populated field
func (m *Manager) IsAttempted(identity string) bool {
	if ValidateIdentity(identity) != nil {
		return false
	}
	m.mu.RLock()
	cached := m.attempted[identity]
	m.mu.RUnlock()
	if cached {
		return true
	}

	ok := m.checkMarker(identity)
	if ok {
		m.mu.Lock()
		m.attempted[identity] = true
		m.mu.Unlock()
	}
	return ok
}

func (m *Manager) checkMarker(identity string) bool {
	path := m.documentPath(identity)
	info, err := os.Stat(path)
	if err != nil || info.Size() < m.minMarkerSize {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var result models.AggregateResult
	if err := json.Unmarshal(data, &result); err != nil {
		return false
	}
	return result.HasContent()
}

// SaveScreenshot stores a PNG as <screenshots>/<identity>_<unix>.png
func (m *Manager) SaveScreenshot(identity string, r io.Reader) (string, error) {
	if err := ValidateIdentity(identity); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d.png", identity, time.Now().UnixNano())
	if err := m.writeAtomic(filepath.Join(m.screenshotDir, name), r); err != nil {
		return "", err
	}
	return name, nil
}

// Screenshots lists the screenshot file names for identity, sorted
func (m *Manager) Screenshots(identity string) ([]string, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(m.screenshotDir, identity+"_*.png"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	sort.Strings(names)
	return names, nil
}

// ScreenshotPath resolves a screenshot file name inside the screenshot directory
func (m *Manager) ScreenshotPath(name string) (string, error) {
	return resolve(m.screenshotDir, name, ".png")
}

// DocumentPath resolves a document file name inside the output directory
func (m *Manager) DocumentPath(name string) (string, error) {
	return resolve(m.outputDir, name, ".json")
}

func resolve(dir, name, ext string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
		return "", fmt.Errorf("%w: %q", ErrInvalidFile, name)
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic copies r to a temporary file beside path and renames it
func (m *Manager) writeAtomic(path string, r io.Reader) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// OutputDir returns the document directory
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// ScreenshotDir returns the screenshot directory
func (m *Manager) ScreenshotDir() string {
	return m.screenshotDir
}

// AttemptedCount returns the number of identities known to be attempted
func (m *Manager) AttemptedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ok := range m.attempted {
		if ok {
			n++
		}
	}
	return n
}

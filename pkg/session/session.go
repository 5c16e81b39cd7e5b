// Package session loads and stores the browser session artifact: the cookie
// export that authenticates the automated browser.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
)

// Artifact is a named set of cookies
type Artifact struct {
	Name       string          `json:"name"`
	Cookies    []models.Cookie `json:"cookies"`
	ImportedAt time.Time       `json:"imported_at"`
}

// Store persists artifacts by name
type Store interface {
	// Save stores the artifact under its name
	Save(a *Artifact) error

	// Load returns the artifact stored under name
	Load(name string) (*Artifact, error)

	// Delete removes the artifact stored under name
	Delete(name string) error

	// Exists checks if an artifact is stored under name
	Exists(name string) bool
}

var (
	ErrNotFound         = errors.New("session artifact not found")
	ErrInvalid          = errors.New("invalid session artifact")
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionMissing is returned by Loader.Load when no usable artifact exists
	ErrSessionMissing = errors.New("session missing")
)

// NewStore builds the backend named in cfg
func NewStore(cfg config.SessionConfig) (Store, error) {
	return NewStoreWithPassphrase(cfg, "")
}

// NewStoreWithPassphrase is NewStore with an explicit passphrase for the
// encrypted backend. Other backends ignore it.
func NewStoreWithPassphrase(cfg config.SessionConfig, passphrase string) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "keyring":
		return NewKeyringStore(keyringService), nil
	case "encrypted":
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		return NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"), passphrase)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// Loader resolves the artifact for a run. Stores are tried in order and the
// first usable artifact wins.
type Loader struct {
	name   string
	stores []Store
	logger logger.Logger
}

// NewLoader creates a loader over stores
func NewLoader(name string, lg logger.Logger, stores ...Store) *Loader {
	if lg == nil {
		lg = logger.NewNopLogger()
	}
	if name == "" {
		name = "default"
	}
	return &Loader{name: name, stores: stores, logger: lg}
}

// LoaderFromConfig uses the configured backend with the environment as a
// last resort
func LoaderFromConfig(cfg config.SessionConfig, lg logger.Logger) (*Loader, error) {
	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewLoader(cfg.Name, lg, store, NewEnvironmentStore()), nil
}

// Load returns the artifact with normalised cookies. A missing, unreadable or
// empty artifact is a session-fatal error wrapping ErrSessionMissing.
func (l *Loader) Load(ctx context.Context) (*Artifact, error) {
	var lastErr error
	for _, store := range l.stores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := store.Load(l.name)
		if err != nil {
			lastErr = err
			l.logger.WithError(err).WithField("store", fmt.Sprintf("%T", store)).Debug("Session store miss")
			continue
		}
		a.Cookies = Normalize(a.Cookies)
		if len(a.Cookies) == 0 {
			lastErr = ErrInvalid
			continue
		}
		l.logger.WithFields(map[string]interface{}{
			"session": a.Name,
			"cookies": len(a.Cookies),
		}).Debug("Session loaded")
		return a, nil
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, errs.SessionFatal("load session", l.name, fmt.Errorf("%w: %w", ErrSessionMissing, lastErr))
}

// Mask hides all but the first and last four characters of a secret
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Sanitize returns a copy of a with cookie values masked
func Sanitize(a *Artifact) *Artifact {
	if a == nil {
		return nil
	}
	out := *a
	out.Cookies = make([]models.Cookie, len(a.Cookies))
	for i, c := range a.Cookies {
		c.Value = Mask(c.Value)
		out.Cookies[i] = c
	}
	return &out
}

// configDir returns the per-user configuration directory
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "xscraper")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "xscraper")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "xscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "xscraper")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

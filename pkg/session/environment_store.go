package session

import (
	"os"
	"time"

	"xscraper/pkg/models"
)

// Environment variables holding the two cookies a session needs
const (
	EnvAuthToken = "XSCRAPER_AUTH_TOKEN"
	EnvCSRFToken = "XSCRAPER_CT0"
)

// EnvironmentStore builds an artifact from environment variables. It is
// read-only.
type EnvironmentStore struct {
	domain string
}

// NewEnvironmentStore creates a store for .x.com cookies
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{domain: ".x.com"}
}

func (e *EnvironmentStore) Save(*Artifact) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Load(name string) (*Artifact, error) {
	auth := os.Getenv(EnvAuthToken)
	ct0 := os.Getenv(EnvCSRFToken)
	if auth == "" || ct0 == "" {
		return nil, ErrNotFound
	}
	if name == "" {
		name = "default"
	}
	return &Artifact{
		Name: name,
		Cookies: []models.Cookie{
			{Name: "auth_token", Value: auth, Domain: e.domain, Path: "/", HTTPOnly: true, Secure: true, SameSite: "None"},
			{Name: "ct0", Value: ct0, Domain: e.domain, Path: "/", Secure: true, SameSite: "Lax"},
		},
		ImportedAt: time.Now(),
	}, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv(EnvAuthToken) != "" && os.Getenv(EnvCSRFToken) != ""
}

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/models"
)

const export = `[
  {"name": "auth_token", "value": "0123456789abcdef", "domain": ".x.com", "path": "/", "expirationDate": 1900000000.5, "httpOnly": true, "secure": true, "sameSite": "no_restriction"},
  {"name": "ct0", "value": "csrf-token-value", "domain": ".x.com", "path": "/", "secure": true, "sameSite": "lax"},
  {"name": "guest_id", "value": "v1", "domain": ".x.com", "sameSite": "STRICT"},
  {"name": "lang", "value": "en", "domain": "x.com", "sameSite": 3},
  {"name": "", "value": "orphan"}
]`

func TestNormalizeSameSite(t *testing.T) {
	tests := map[string]string{
		"strict":         "Strict",
		"Lax":            "Lax",
		"none":           "None",
		"NONE":           "None",
		"no_restriction": "None",
		" Lax ":          "Lax",
		"unspecified":    "",
		"lax_restricted": "",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSameSite(in), in)
	}
}

func TestParseExport(t *testing.T) {
	cookies, err := ParseExport([]byte(export))
	require.NoError(t, err)
	require.Len(t, cookies, 4)

	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Equal(t, "None", cookies[0].SameSite, "no_restriction is None, never Strict")
	assert.InDelta(t, 1900000000.5, cookies[0].Expires, 0.001)
	assert.Equal(t, "Lax", cookies[1].SameSite)
	assert.Equal(t, "Strict", cookies[2].SameSite)
	assert.Equal(t, "", cookies[3].SameSite, "non-string sameSite is dropped")
}

func TestParseExportWrapped(t *testing.T) {
	cookies, err := ParseExport([]byte(`{"cookies": [{"name": "ct0", "value": "x", "sameSite": "None"}]}`))
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "None", cookies[0].SameSite)
}

func TestParseExportRejectsGarbage(t *testing.T) {
	_, err := ParseExport([]byte("  "))
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = ParseExport([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	store := NewFileStore(path)

	_, err := store.Load("default")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.Exists("default"))

	a := &Artifact{Name: "default", Cookies: []models.Cookie{{Name: "ct0", Value: "v", SameSite: "Lax"}}}
	require.NoError(t, store.Save(a))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load("default")
	require.NoError(t, err)
	assert.Equal(t, a.Cookies, loaded.Cookies)
	assert.False(t, loaded.ImportedAt.IsZero())

	require.NoError(t, store.Delete("default"))
	assert.ErrorIs(t, store.Delete("default"), ErrNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path, "correct horse")
	require.NoError(t, err)

	a := &Artifact{Name: "main", Cookies: []models.Cookie{{Name: "auth_token", Value: "secret-value"}}}
	require.NoError(t, store.Save(a))
	require.NoError(t, store.Save(&Artifact{Name: "alt", Cookies: []models.Cookie{{Name: "ct0", Value: "x"}}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-value")

	loaded, err := store.Load("main")
	require.NoError(t, err)
	assert.Equal(t, "secret-value", loaded.Cookies[0].Value)

	wrong, err := NewEncryptedFileStore(path, "wrong")
	require.NoError(t, err)
	_, err = wrong.Load("main")
	assert.Error(t, err)

	require.NoError(t, store.Delete("main"))
	assert.False(t, store.Exists("main"))
	assert.True(t, store.Exists("alt"))
	require.NoError(t, store.Delete("alt"))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "file removed with the last artifact")
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("xscraper-test")

	_, err := store.Load("default")
	assert.ErrorIs(t, err, ErrNotFound)

	a := &Artifact{Name: "default", Cookies: []models.Cookie{{Name: "ct0", Value: "v"}}}
	require.NoError(t, store.Save(a))
	assert.True(t, store.Exists("default"))

	loaded, err := store.Load("default")
	require.NoError(t, err)
	assert.Equal(t, a.Cookies, loaded.Cookies)

	require.NoError(t, store.Delete("default"))
	assert.ErrorIs(t, store.Delete("default"), ErrNotFound)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvAuthToken, "")
	t.Setenv(EnvCSRFToken, "")
	store := NewEnvironmentStore()
	_, err := store.Load("default")
	assert.ErrorIs(t, err, ErrNotFound)

	t.Setenv(EnvAuthToken, "token")
	t.Setenv(EnvCSRFToken, "csrf")
	a, err := store.Load("")
	require.NoError(t, err)
	assert.Equal(t, "default", a.Name)
	assert.Empty(t, Missing(a))
	assert.ErrorIs(t, store.Save(a), ErrStoreUnavailable)
}

func TestLoaderFallsBackAcrossStores(t *testing.T) {
	empty := NewMockStore()
	full := NewMockStore()
	require.NoError(t, full.Save(&Artifact{Name: "work", Cookies: []models.Cookie{{Name: "ct0", Value: "v", SameSite: "lax"}}}))

	a, err := NewLoader("work", nil, empty, full).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lax", a.Cookies[0].SameSite)
}

func TestLoaderMissingSessionIsFatal(t *testing.T) {
	broken := NewMockStore()
	broken.LoadError = errors.New("disk on fire")
	emptyArtifact := NewMockStore()
	require.NoError(t, emptyArtifact.Save(&Artifact{Name: "default"}))

	_, err := NewLoader("", nil, broken, emptyArtifact).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionMissing)
	assert.True(t, errs.Is(err, errs.ErrorTypeSessionFatal))
}

func TestLoaderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader("default", nil, NewMockStore()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.SessionConfig{Backend: "file", Path: "c.json"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = NewStore(config.SessionConfig{Backend: "keyring"})
	require.NoError(t, err)
	assert.IsType(t, &KeyringStore{}, s)

	_, err = NewStore(config.SessionConfig{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	a := &Artifact{Name: "x", Cookies: []models.Cookie{{Name: "auth_token", Value: "0123456789abcdef"}, {Name: "ct0", Value: "short"}}}
	s := Sanitize(a)
	assert.Equal(t, "0123...cdef", s.Cookies[0].Value)
	assert.Equal(t, "********", s.Cookies[1].Value)
	assert.Equal(t, "0123456789abcdef", a.Cookies[0].Value, "original untouched")
	assert.Equal(t, []string{"auth_token"}, Missing(&Artifact{Cookies: []models.Cookie{{Name: "ct0"}}}))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Navigation.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Navigation.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Field)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Query)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeouts.Settle)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Cleanup)
	assert.Equal(t, 3, cfg.Extraction.MaxTextNodes)
	assert.Equal(t, "scraped_profiles", cfg.Output.BaseDirectory)
	assert.Equal(t, `article[data-testid="tweet"]`, cfg.Extraction.Selectors.Item)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XSCRAPER_COOKIES_PATH", "/tmp/session.json")
	t.Setenv("XSCRAPER_MAX_POSTS", "7")
	t.Setenv("XSCRAPER_MAX_FOLLOWERS", "12")
	t.Setenv("XSCRAPER_STOP_DATE", "2024-01-15")
	t.Setenv("XSCRAPER_HEADLESS", "false")
	t.Setenv("XSCRAPER_OUTPUT_DIR", "/tmp/out")
	t.Setenv("XSCRAPER_NOTIFICATIONS_ENABLED", "false")
	t.Setenv("XSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/tmp/session.json", cfg.Session.Path)
	assert.Equal(t, 7, cfg.Collection.MaxPosts)
	assert.Equal(t, 12, cfg.Collection.MaxFollowers)
	assert.Equal(t, "2024-01-15", cfg.Collection.StopDate)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/tmp/out", cfg.Output.BaseDirectory)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("XSCRAPER_MAX_POSTS", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XSCRAPER_MAX_POSTS")
	assert.Equal(t, 50, cfg.Collection.MaxPosts)
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid yaml file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		content := `
session:
  backend: keyring
  name: work
collection:
  max_posts: 3
  max_reposts: 0
  stop_date: "2024-03-01"
timeouts:
  field: 4s
  settle: 500ms
extraction:
  repost_phrases: ["reposted"]
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromFile(configPath))

		assert.Equal(t, "keyring", cfg.Session.Backend)
		assert.Equal(t, "work", cfg.Session.Name)
		assert.Equal(t, 3, cfg.Collection.MaxPosts)
		assert.Equal(t, 0, cfg.Collection.MaxReposts)
		assert.Equal(t, 4*time.Second, cfg.Timeouts.Field)
		assert.Equal(t, 500*time.Millisecond, cfg.Timeouts.Settle)
		assert.Equal(t, []string{"reposted"}, cfg.Extraction.RepostPhrases)
		// Untouched sections keep defaults
		assert.Equal(t, 5*time.Second, cfg.Timeouts.Query)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("collection: [\n"), 0644))

		cfg := DefaultConfig()
		err := cfg.LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestFindConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	oldDir, _ := os.Getwd()
	defer os.Chdir(oldDir)
	require.NoError(t, os.Chdir(tempDir))
	t.Setenv("HOME", tempDir)

	cfg := DefaultConfig()
	assert.Equal(t, "", cfg.findConfigFile())

	require.NoError(t, os.WriteFile(".xscraper.yaml", []byte("logging:\n  level: warn\n"), 0644))
	assert.Equal(t, ".xscraper.yaml", cfg.findConfigFile())

	require.NoError(t, cfg.LoadFromFile(""))
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestCutoff(t *testing.T) {
	c := CollectionConfig{}
	_, ok, err := c.Cutoff()
	assert.NoError(t, err)
	assert.False(t, ok)

	c.StopDate = "2024-01-15"
	cutoff, ok, err := c.Cutoff()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), cutoff)

	c.StopDate = "15/01/2024"
	_, _, err = c.Cutoff()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		setupConfig   func(*Config)
		errorContains []string
	}{
		{
			name:        "valid config",
			setupConfig: func(cfg *Config) {},
		},
		{
			name: "zero limits are valid",
			setupConfig: func(cfg *Config) {
				cfg.Collection.MaxPosts = 0
				cfg.Collection.MaxReposts = 0
			},
		},
		{
			name: "negative limits",
			setupConfig: func(cfg *Config) {
				cfg.Collection.MaxPosts = -1
			},
			errorContains: []string{"collection limits cannot be negative"},
		},
		{
			name: "bad stop date and backend",
			setupConfig: func(cfg *Config) {
				cfg.Collection.StopDate = "yesterday"
				cfg.Session.Backend = "cloud"
			},
			errorContains: []string{"stop date must use YYYY-MM-DD", `invalid session backend "cloud"`},
		},
		{
			name: "scroll bounds",
			setupConfig: func(cfg *Config) {
				cfg.Collection.MaxScrollAttempts = 0
				cfg.Collection.MaxStaleScrolls = 0
			},
			errorContains: []string{"max scroll attempts must be positive", "max stale scrolls must be positive"},
		},
		{
			name: "batch and server",
			setupConfig: func(cfg *Config) {
				cfg.Batch.Concurrency = 11
				cfg.Server.Port = 70000
			},
			errorContains: []string{"batch concurrency should not exceed 10", "server port must be between 1 and 65535"},
		},
		{
			name: "logging and notifications",
			setupConfig: func(cfg *Config) {
				cfg.Logging.Level = "trace"
				cfg.Notifications.NotificationType = "email"
			},
			errorContains: []string{"invalid log level", "invalid notification type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setupConfig(cfg)

			err := cfg.Validate()
			if len(tt.errorContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.errorContains {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Collection.MaxPosts = 9
	cfg.Timeouts.Step = 100 * time.Millisecond
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 9, loaded.Collection.MaxPosts)
	assert.Equal(t, 100*time.Millisecond, loaded.Timeouts.Step)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":        "/flag/out",
		"cookies":       "/flag/cookies.json",
		"max-posts":     3,
		"max-reposts":   0,
		"max-following": 25,
		"stop-date":     "2024-02-02",
		"headless":      false,
		"concurrency":   4,
		"log-level":     "error",
		"port":          9000,
		// Wrong types are ignored
		"max-followers": "lots",
	})

	assert.Equal(t, "/flag/out", cfg.Output.BaseDirectory)
	assert.Equal(t, "/flag/cookies.json", cfg.Session.Path)
	assert.Equal(t, 3, cfg.Collection.MaxPosts)
	assert.Equal(t, 0, cfg.Collection.MaxReposts)
	assert.Equal(t, 0, cfg.Collection.MaxFollowers)
	assert.Equal(t, 25, cfg.Collection.MaxFollowing)
	assert.Equal(t, "2024-02-02", cfg.Collection.StopDate)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad(t *testing.T) {
	t.Run("precedence order", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")
		content := `
collection:
  max_posts: 10
  max_reposts: 4
output:
  base_directory: /file/output
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		t.Setenv("XSCRAPER_MAX_POSTS", "20")
		t.Setenv("XSCRAPER_OUTPUT_DIR", "/env/output")

		cfg, err := Load(configPath, map[string]interface{}{"max-posts": 30})
		require.NoError(t, err)

		assert.Equal(t, 30, cfg.Collection.MaxPosts)             // From flags
		assert.Equal(t, 4, cfg.Collection.MaxReposts)            // From file
		assert.Equal(t, "/env/output", cfg.Output.BaseDirectory) // From env
	})

	t.Run("validation failure", func(t *testing.T) {
		cfg, err := Load("", map[string]interface{}{"stop-date": "soon"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Nil(t, cfg)
	})

	t.Run("loads .env file", func(t *testing.T) {
		tempDir := t.TempDir()
		oldDir, _ := os.Getwd()
		defer os.Chdir(oldDir)
		require.NoError(t, os.Chdir(tempDir))
		t.Setenv("HOME", tempDir)

		require.NoError(t, os.WriteFile(".env", []byte("XSCRAPER_SESSION_NAME=dotenv_session\n"), 0644))
		os.Unsetenv("XSCRAPER_SESSION_NAME")
		defer os.Unsetenv("XSCRAPER_SESSION_NAME")

		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, "dotenv_session", cfg.Session.Name)
	})
}

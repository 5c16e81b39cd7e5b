package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StopDateLayout is the accepted layout for the collection cutoff date
const StopDateLayout = "2006-01-02"

// Config holds all configuration options for the profile collector
type Config struct {
	// Remote-controlled browser settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Where the authenticated session artifact lives
	Session SessionConfig `yaml:"session" json:"session"`

	// Profile navigation and retry bounds
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`

	// Collection limits and scroll behaviour
	Collection CollectionConfig `yaml:"collection" json:"collection"`

	// Per-call timeouts for browser operations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Selector tables and vocabulary for field extraction
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Batch runs over many identities
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// HTTP front-end
	Server ServerConfig `yaml:"server" json:"server"`

	// Pacing of session starts
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds browser launch settings
type BrowserConfig struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	ExecPath     string `yaml:"exec_path" json:"exec_path"`
	Headless     bool   `yaml:"headless" json:"headless"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
	WindowWidth  int    `yaml:"window_width" json:"window_width"`
	WindowHeight int    `yaml:"window_height" json:"window_height"`
}

// SessionConfig holds session artifact settings
type SessionConfig struct {
	// Backend is one of file, keyring or encrypted
	Backend string `yaml:"backend" json:"backend"`
	// Path is the cookie export used by the file backend
	Path string `yaml:"path" json:"path"`
	// Name keys the artifact in the keyring and encrypted backends
	Name string `yaml:"name" json:"name"`
}

// NavigationConfig holds navigation retry settings
type NavigationConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// CollectionConfig holds per-run limits
type CollectionConfig struct {
	MaxPosts          int    `yaml:"max_posts" json:"max_posts"`
	MaxReposts        int    `yaml:"max_reposts" json:"max_reposts"`
	MaxFollowers      int    `yaml:"max_followers" json:"max_followers"`
	MaxFollowing      int    `yaml:"max_following" json:"max_following"`
	MaxScrollAttempts int    `yaml:"max_scroll_attempts" json:"max_scroll_attempts"`
	MaxStaleScrolls   int    `yaml:"max_stale_scrolls" json:"max_stale_scrolls"`
	ScrollSteps       int    `yaml:"scroll_steps" json:"scroll_steps"`
	ScrollStepPixels  int    `yaml:"scroll_step_pixels" json:"scroll_step_pixels"`
	StopDate          string `yaml:"stop_date" json:"stop_date"`
}

// TimeoutConfig holds the independent per-call timeouts
type TimeoutConfig struct {
	Field    time.Duration `yaml:"field" json:"field"`
	Query    time.Duration `yaml:"query" json:"query"`
	Settle   time.Duration `yaml:"settle" json:"settle"`
	Step     time.Duration `yaml:"step" json:"step"`
	Selector time.Duration `yaml:"selector" json:"selector"`
	Cleanup  time.Duration `yaml:"cleanup" json:"cleanup"`
}

// SelectorConfig isolates the page markup the extractors depend on.
// The markup changes often; update these when collection breaks.
type SelectorConfig struct {
	Item           string   `yaml:"item" json:"item"`
	ItemText       string   `yaml:"item_text" json:"item_text"`
	ItemAuthor     string   `yaml:"item_author" json:"item_author"`
	ItemTime       string   `yaml:"item_time" json:"item_time"`
	Permalink      string   `yaml:"permalink" json:"permalink"`
	QuotedItem     string   `yaml:"quoted_item" json:"quoted_item"`
	SocialContext  string   `yaml:"social_context" json:"social_context"`
	RepostMarkers  []string `yaml:"repost_markers" json:"repost_markers"`
	NestedItem     string   `yaml:"nested_item" json:"nested_item"`
	DataAttributes []string `yaml:"data_attributes" json:"data_attributes"`
	ProfileName    []string `yaml:"profile_name" json:"profile_name"`
	ProfileBio     []string `yaml:"profile_bio" json:"profile_bio"`
	ProfileSignals []string `yaml:"profile_signals" json:"profile_signals"`
	SocialCell     string   `yaml:"social_cell" json:"social_cell"`
	SocialName     string   `yaml:"social_name" json:"social_name"`
	SocialBio      string   `yaml:"social_bio" json:"social_bio"`
	SocialLink     string   `yaml:"social_link" json:"social_link"`
}

// ExtractionConfig holds extraction tables and vocabulary
type ExtractionConfig struct {
	Selectors       SelectorConfig `yaml:"selectors" json:"selectors"`
	RepostPhrases   []string       `yaml:"repost_phrases" json:"repost_phrases"`
	RepostPatterns  []string       `yaml:"repost_patterns" json:"repost_patterns"`
	DateFormats     []string       `yaml:"date_formats" json:"date_formats"`
	MaxTextNodes    int            `yaml:"max_text_nodes" json:"max_text_nodes"`
	MaxFallbackText int            `yaml:"max_fallback_text" json:"max_fallback_text"`
	MinHashText     int            `yaml:"min_hash_text" json:"min_hash_text"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory       string `yaml:"base_directory" json:"base_directory"`
	ScreenshotDirectory string `yaml:"screenshot_directory" json:"screenshot_directory"`
	MinMarkerSize       int64  `yaml:"min_marker_size" json:"min_marker_size"`
}

// BatchConfig holds batch runner configuration
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
	Schedule    string `yaml:"schedule" json:"schedule"`
	LedgerPath  string `yaml:"ledger_path" json:"ledger_path"`
}

// ServerConfig holds HTTP front-end configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	Debug        bool          `yaml:"debug" json:"debug"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	SessionsPerMinute int `yaml:"sessions_per_minute" json:"sessions_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultSelectors returns the selector tables for the current profile markup
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Item:          `article[data-testid="tweet"]`,
		ItemText:      `[data-testid="tweetText"]`,
		ItemAuthor:    `[data-testid="User-Name"]`,
		ItemTime:      `time`,
		Permalink:     `a[href*="/status/"]`,
		QuotedItem:    `[data-testid="quoteTweet"], div[role="link"][tabindex="0"]`,
		SocialContext: `[data-testid="socialContext"]`,
		RepostMarkers: []string{
			`[data-testid="unretweet"]`,
			`svg[aria-label="Reposted"]`,
		},
		NestedItem:     `article`,
		DataAttributes: []string{"data-item-id", "data-tweet-id", "data-id"},
		ProfileName: []string{
			`[data-testid="UserName"] span`,
			`[data-testid="UserName"]`,
			`h2[role="heading"] span`,
		},
		ProfileBio: []string{
			`[data-testid="UserDescription"]`,
			`div[data-testid="UserProfileHeader_Items"]`,
		},
		// primaryColumn and the like render on suspended and missing accounts too
		ProfileSignals: []string{
			`[data-testid="UserName"]`,
			`[data-testid="UserProfileHeader_Items"]`,
			`[data-testid="UserDescription"]`,
			`[data-testid="userActions"]`,
		},
		SocialCell: `[data-testid="UserCell"]`,
		SocialName: `a[role="link"] span`,
		SocialBio:  `div[dir="auto"]:not([id])`,
		SocialLink: `a[role="link"][href^="/"]`,
	}
}

// DefaultDateFormats lists the date layouts tried in order
func DefaultDateFormats() []string {
	return []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"Jan 2",
		"January 2",
	}
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			BaseURL:      "https://x.com",
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			WindowWidth:  1280,
			WindowHeight: 2000,
		},
		Session: SessionConfig{
			Backend: "file",
			Path:    "cookies.json",
			Name:    "default",
		},
		Navigation: NavigationConfig{
			MaxAttempts: 3,
			Timeout:     30 * time.Second,
			RetryDelay:  2 * time.Second,
		},
		Collection: CollectionConfig{
			MaxPosts:          50,
			MaxReposts:        20,
			MaxFollowers:      0,
			MaxFollowing:      0,
			MaxScrollAttempts: 50,
			MaxStaleScrolls:   5,
			ScrollSteps:       3,
			ScrollStepPixels:  800,
		},
		Timeouts: TimeoutConfig{
			Field:    2 * time.Second,
			Query:    5 * time.Second,
			Settle:   1500 * time.Millisecond,
			Step:     250 * time.Millisecond,
			Selector: 10 * time.Second,
			Cleanup:  10 * time.Second,
		},
		Extraction: ExtractionConfig{
			Selectors:       DefaultSelectors(),
			RepostPhrases:   []string{"reposted", "retweeted", "you reposted"},
			RepostPatterns:  []string{`^RT @\w+`},
			DateFormats:     DefaultDateFormats(),
			MaxTextNodes:    3,
			MaxFallbackText: 1000,
			MinHashText:     20,
		},
		Output: OutputConfig{
			BaseDirectory:       "scraped_profiles",
			ScreenshotDirectory: "screenshots",
			MinMarkerSize:       64,
		},
		Batch: BatchConfig{
			Concurrency: 1,
			MaxAttempts: 3,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			SessionsPerMinute: 2,
			BurstSize:         1,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("XSCRAPER_BASE_URL"); v != "" {
		c.Browser.BaseURL = v
	}
	if v := os.Getenv("XSCRAPER_CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv("XSCRAPER_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("XSCRAPER_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}

	// Session artifact
	if v := os.Getenv("XSCRAPER_SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("XSCRAPER_COOKIES_PATH"); v != "" {
		c.Session.Path = v
	}
	if v := os.Getenv("XSCRAPER_SESSION_NAME"); v != "" {
		c.Session.Name = v
	}

	// Limits
	envInt("XSCRAPER_MAX_POSTS", &c.Collection.MaxPosts, &errs)
	envInt("XSCRAPER_MAX_REPOSTS", &c.Collection.MaxReposts, &errs)
	envInt("XSCRAPER_MAX_FOLLOWERS", &c.Collection.MaxFollowers, &errs)
	envInt("XSCRAPER_MAX_FOLLOWING", &c.Collection.MaxFollowing, &errs)
	if v := os.Getenv("XSCRAPER_STOP_DATE"); v != "" {
		c.Collection.StopDate = v
	}

	if v := os.Getenv("XSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("XSCRAPER_SCREENSHOT_DIR"); v != "" {
		c.Output.ScreenshotDirectory = v
	}

	envInt("XSCRAPER_CONCURRENCY", &c.Batch.Concurrency, &errs)
	if v := os.Getenv("XSCRAPER_SCHEDULE"); v != "" {
		c.Batch.Schedule = v
	}
	envInt("XSCRAPER_SERVER_PORT", &c.Server.Port, &errs)
	envInt("XSCRAPER_SESSIONS_PER_MINUTE", &c.RateLimit.SessionsPerMinute, &errs)

	if v := os.Getenv("XSCRAPER_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("XSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("XSCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// envInt overwrites dst with the integer value of key when it is set
func envInt(key string, dst *int, errs *[]error) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = val
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"xscraper.yaml",
		".xscraper.yaml",
		".xscraper.yml",
		filepath.Join(home, ".config", "xscraper", "config.yaml"),
		filepath.Join(home, ".config", "xscraper", "config.yml"),
		filepath.Join(home, ".xscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Cutoff parses the configured stop date. ok is false when no stop date is set.
func (c *CollectionConfig) Cutoff() (cutoff time.Time, ok bool, err error) {
	if strings.TrimSpace(c.StopDate) == "" {
		return time.Time{}, false, nil
	}
	cutoff, err = time.Parse(StopDateLayout, strings.TrimSpace(c.StopDate))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stop date must use YYYY-MM-DD: %w", err)
	}
	return cutoff, true, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.BaseURL == "" {
		errs = append(errs, errors.New("browser base URL is required"))
	}

	validBackends := map[string]bool{"file": true, "keyring": true, "encrypted": true}
	if !validBackends[strings.ToLower(c.Session.Backend)] {
		errs = append(errs, fmt.Errorf("invalid session backend %q", c.Session.Backend))
	}
	if strings.ToLower(c.Session.Backend) == "file" && c.Session.Path == "" {
		errs = append(errs, errors.New("session path is required for the file backend"))
	}

	if c.Navigation.MaxAttempts <= 0 {
		errs = append(errs, errors.New("navigation max attempts must be positive"))
	}
	if c.Navigation.Timeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}

	// Limits of zero disable a list, negative limits are meaningless
	if c.Collection.MaxPosts < 0 || c.Collection.MaxReposts < 0 ||
		c.Collection.MaxFollowers < 0 || c.Collection.MaxFollowing < 0 {
		errs = append(errs, errors.New("collection limits cannot be negative"))
	}
	if c.Collection.MaxScrollAttempts <= 0 {
		errs = append(errs, errors.New("max scroll attempts must be positive"))
	}
	if c.Collection.MaxStaleScrolls <= 0 {
		errs = append(errs, errors.New("max stale scrolls must be positive"))
	}
	if c.Collection.ScrollSteps <= 0 || c.Collection.ScrollStepPixels <= 0 {
		errs = append(errs, errors.New("scroll steps and step pixels must be positive"))
	}
	if _, _, err := c.Collection.Cutoff(); err != nil {
		errs = append(errs, err)
	}

	if c.Timeouts.Field <= 0 || c.Timeouts.Query <= 0 || c.Timeouts.Selector <= 0 || c.Timeouts.Cleanup <= 0 {
		errs = append(errs, errors.New("field, query, selector and cleanup timeouts must be positive"))
	}
	if c.Timeouts.Settle < 0 || c.Timeouts.Step < 0 {
		errs = append(errs, errors.New("settle and step delays cannot be negative"))
	}

	if c.Extraction.Selectors.Item == "" {
		errs = append(errs, errors.New("item selector is required"))
	}
	if len(c.Extraction.DateFormats) == 0 {
		errs = append(errs, errors.New("at least one date format is required"))
	}
	if c.Extraction.MaxTextNodes <= 0 {
		errs = append(errs, errors.New("max text nodes must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Batch.Concurrency <= 0 {
		errs = append(errs, errors.New("batch concurrency must be positive"))
	}
	if c.Batch.Concurrency > 10 {
		errs = append(errs, errors.New("batch concurrency should not exceed 10"))
	}
	if c.Batch.MaxAttempts <= 0 {
		errs = append(errs, errors.New("batch max attempts must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}

	if c.RateLimit.SessionsPerMinute <= 0 {
		errs = append(errs, errors.New("sessions per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["cookies"].(string); ok && v != "" {
		c.Session.Path = v
	}
	if v, ok := flags["session-backend"].(string); ok && v != "" {
		c.Session.Backend = v
	}
	if v, ok := flags["session-name"].(string); ok && v != "" {
		c.Session.Name = v
	}
	if v, ok := flags["max-posts"].(int); ok && v >= 0 {
		c.Collection.MaxPosts = v
	}
	if v, ok := flags["max-reposts"].(int); ok && v >= 0 {
		c.Collection.MaxReposts = v
	}
	if v, ok := flags["max-followers"].(int); ok && v >= 0 {
		c.Collection.MaxFollowers = v
	}
	if v, ok := flags["max-following"].(int); ok && v >= 0 {
		c.Collection.MaxFollowing = v
	}
	if v, ok := flags["stop-date"].(string); ok && v != "" {
		c.Collection.StopDate = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Batch.Concurrency = v
	}
	if v, ok := flags["schedule"].(string); ok && v != "" {
		c.Batch.Schedule = v
	}
	if v, ok := flags["port"].(int); ok && v > 0 {
		c.Server.Port = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

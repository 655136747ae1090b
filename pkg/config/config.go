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

// DefaultCategories is the product-type catalog used to bias image searches
var DefaultCategories = []string{
	"shampoo bottle",
	"soda can",
	"cereal box",
	"milk carton",
	"biscuit package",
	"chocolate bar",
	"toothpaste box",
	"canned soup",
	"laundry detergent",
	"book cover",
	"vitamin bottle",
	"instant noodle package",
	"coffee bag",
	"tea box",
	"juice box",
	"snack bag",
}

// Config holds all configuration options for the scan bot
type Config struct {
	Ecosapiens  EcosapiensConfig  `yaml:"ecosapiens" json:"ecosapiens"`
	Pexels      PexelsConfig      `yaml:"pexels" json:"pexels"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	Scan        ScanConfig        `yaml:"scan" json:"scan"`
	Schedule    ScheduleConfig    `yaml:"schedule" json:"schedule"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" json:"rate_limit"`
	Dashboard   DashboardConfig   `yaml:"dashboard" json:"dashboard"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// EcosapiensConfig holds scan API settings
type EcosapiensConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Referer   string        `yaml:"referer" json:"referer"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	// UploadTimeout applies to image uploads, which carry the whole buffer
	UploadTimeout time.Duration `yaml:"upload_timeout" json:"upload_timeout"`
}

// PexelsConfig holds image source settings
type PexelsConfig struct {
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	MaxResults      int           `yaml:"max_results" json:"max_results"`
	Orientation     string        `yaml:"orientation" json:"orientation"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// CredentialsConfig points at the files holding per-account cookies and the shared key
type CredentialsConfig struct {
	CookieFile string `yaml:"cookie_file" json:"cookie_file"`
	APIKeyFile string `yaml:"api_key_file" json:"api_key_file"`
	UseKeyring bool   `yaml:"use_keyring" json:"use_keyring"`
	// VaultFile is the encrypted credential vault; empty means the default
	// location under the user config directory
	VaultFile string `yaml:"vault_file" json:"vault_file"`
}

// ScanConfig controls a single scan attempt
type ScanConfig struct {
	Categories   []string      `yaml:"categories" json:"categories"`
	QuerySuffix  string        `yaml:"query_suffix" json:"query_suffix"`
	PollAttempts int           `yaml:"poll_attempts" json:"poll_attempts"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// ScheduleConfig holds the jitter windows used between turns and rounds
type ScheduleConfig struct {
	AccountDelayMin time.Duration `yaml:"account_delay_min" json:"account_delay_min"`
	AccountDelayMax time.Duration `yaml:"account_delay_max" json:"account_delay_max"`
	CycleDelayMin   time.Duration `yaml:"cycle_delay_min" json:"cycle_delay_min"`
	CycleDelayMax   time.Duration `yaml:"cycle_delay_max" json:"cycle_delay_max"`
	StartupPause    time.Duration `yaml:"startup_pause" json:"startup_pause"`
}

// RateLimitConfig bounds the outbound request rate across all accounts
type RateLimitConfig struct {
	RequestsPerMinute   int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize           int `yaml:"burst_size" json:"burst_size"`
	PointsRetryAttempts int `yaml:"points_retry_attempts" json:"points_retry_attempts"`
}

// DashboardConfig controls the terminal dashboard
type DashboardConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Ecosapiens: EcosapiensConfig{
			BaseURL:       "https://api.prod.ecosapiens.xyz",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
			Referer:       "https://prod.ecosapiens.xyz/",
			Timeout:       5 * time.Second,
			UploadTimeout: 15 * time.Second,
		},
		Pexels: PexelsConfig{
			BaseURL:         "https://api.pexels.com/v1",
			MaxResults:      100,
			Orientation:     "square",
			Timeout:         10 * time.Second,
			DownloadTimeout: 15 * time.Second,
		},
		Credentials: CredentialsConfig{
			CookieFile: "cookie.key",
			APIKeyFile: "api.key",
			UseKeyring: false,
		},
		Scan: ScanConfig{
			Categories:   append([]string(nil), DefaultCategories...),
			QuerySuffix:  "product",
			PollAttempts: 30,
			PollInterval: 2 * time.Second,
		},
		Schedule: ScheduleConfig{
			AccountDelayMin: 5 * time.Second,
			AccountDelayMax: 8 * time.Second,
			CycleDelayMin:   10 * time.Second,
			CycleDelayMax:   15 * time.Second,
			StartupPause:    2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:   120,
			BurstSize:           10,
			PointsRetryAttempts: 2,
		},
		Dashboard: DashboardConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ECOSCAN_BASE_URL"); v != "" {
		c.Ecosapiens.BaseURL = v
	}
	if v := os.Getenv("ECOSCAN_USER_AGENT"); v != "" {
		c.Ecosapiens.UserAgent = v
	}
	if v := os.Getenv("ECOSCAN_PEXELS_BASE_URL"); v != "" {
		c.Pexels.BaseURL = v
	}
	if v := os.Getenv("ECOSCAN_COOKIE_FILE"); v != "" {
		c.Credentials.CookieFile = v
	}
	if v := os.Getenv("ECOSCAN_API_KEY_FILE"); v != "" {
		c.Credentials.APIKeyFile = v
	}
	if v := os.Getenv("ECOSCAN_VAULT_FILE"); v != "" {
		c.Credentials.VaultFile = v
	}
	if v := os.Getenv("ECOSCAN_USE_KEYRING"); v != "" {
		c.Credentials.UseKeyring = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ECOSCAN_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ECOSCAN_REQUESTS_PER_MINUTE: %w", err)
		}
		if n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("ECOSCAN_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ECOSCAN_POLL_INTERVAL: %w", err)
		}
		c.Scan.PollInterval = d
	}
	if v := os.Getenv("ECOSCAN_DASHBOARD"); v != "" {
		c.Dashboard.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ECOSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ECOSCAN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
		".ecoscan.yaml",
		".ecoscan.yml",
		filepath.Join(home, ".config", "ecoscan", "config.yaml"),
		filepath.Join(home, ".config", "ecoscan", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Ecosapiens.BaseURL == "" {
		errs = append(errs, errors.New("ecosapiens base URL is required"))
	}
	if c.Ecosapiens.Timeout <= 0 || c.Ecosapiens.UploadTimeout <= 0 {
		errs = append(errs, errors.New("ecosapiens timeouts must be positive"))
	}
	if c.Pexels.BaseURL == "" {
		errs = append(errs, errors.New("pexels base URL is required"))
	}
	if c.Pexels.MaxResults <= 0 || c.Pexels.MaxResults > 100 {
		errs = append(errs, errors.New("pexels max results must be between 1 and 100"))
	}
	if c.Pexels.Timeout <= 0 || c.Pexels.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("pexels timeouts must be positive"))
	}

	if len(c.Scan.Categories) == 0 {
		errs = append(errs, errors.New("at least one scan category is required"))
	}
	for i, category := range c.Scan.Categories {
		if strings.TrimSpace(category) == "" {
			errs = append(errs, fmt.Errorf("scan category %d is empty", i))
		}
	}
	if c.Scan.PollAttempts <= 0 {
		errs = append(errs, errors.New("poll attempts must be positive"))
	}
	if c.Scan.PollInterval < 0 {
		errs = append(errs, errors.New("poll interval cannot be negative"))
	}

	if c.Schedule.AccountDelayMin < 0 || c.Schedule.AccountDelayMax < c.Schedule.AccountDelayMin {
		errs = append(errs, errors.New("account delay window is invalid"))
	}
	if c.Schedule.CycleDelayMin < 0 || c.Schedule.CycleDelayMax < c.Schedule.CycleDelayMin {
		errs = append(errs, errors.New("cycle delay window is invalid"))
	}
	if c.Schedule.StartupPause < 0 {
		errs = append(errs, errors.New("startup pause cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.RateLimit.PointsRetryAttempts < 1 {
		errs = append(errs, errors.New("points retry attempts must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
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

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["cookie-file"].(string); ok && v != "" {
		c.Credentials.CookieFile = v
	}
	if v, ok := flags["api-key-file"].(string); ok && v != "" {
		c.Credentials.APIKeyFile = v
	}
	if v, ok := flags["vault-file"].(string); ok && v != "" {
		c.Credentials.VaultFile = v
	}
	if v, ok := flags["keyring"].(bool); ok {
		c.Credentials.UseKeyring = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["dashboard"].(bool); ok {
		c.Dashboard.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ecoscan.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

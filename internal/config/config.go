// Package config defines the crawl configuration, its defaults and its
// validation rules.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Database drivers accepted by Validate.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MinRequestDelay is the smallest per-domain delay Validate allows.
const MinRequestDelay = 100 * time.Millisecond

const redacted = "********"

// BasicAuth contains HTTP Basic Authentication credentials
type BasicAuth struct {
	Username    string `mapstructure:"username" yaml:"username"`         // Username for basic auth
	Password    string `mapstructure:"password" yaml:"password"`         // Password for basic auth
	UsernameEnv string `mapstructure:"username_env" yaml:"username_env"` // Environment variable for username
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"` // Environment variable for password
}

// Auth contains authentication configuration
type Auth struct {
	Basic *BasicAuth `mapstructure:"basic" yaml:"basic"` // Basic authentication settings
}

// DatabaseConfig selects the page store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn" yaml:"dsn"`       // file path for sqlite, connection string for postgres
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // json or text
	File       string `mapstructure:"file" yaml:"file"`     // optional rotated log file
	MaxSizeMB  int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// ImageTaggerConfig points at an optional image classification service.
type ImageTaggerConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURLs          []string      `mapstructure:"seed_urls" yaml:"seed_urls"`                     // Starting URLs for crawling
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`                 // Number of concurrent workers
	RequestDelay      time.Duration `mapstructure:"request_delay" yaml:"request_delay"`             // Delay between requests to one domain
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`         // HTTP request timeout
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`                   // HTTP User-Agent header
	RespectRobots     bool          `mapstructure:"respect_robots" yaml:"respect_robots"`           // Whether to respect robots.txt
	RevisitAfter      time.Duration `mapstructure:"revisit_after" yaml:"revisit_after"`             // Age after which a stored page is crawled again
	Limit             int           `mapstructure:"limit" yaml:"limit"`                             // Stop after N pages
	Headers           []string      `mapstructure:"headers" yaml:"headers"`                         // Extra "Name: Value" request headers
	QueuePollInterval time.Duration `mapstructure:"queue_poll_interval" yaml:"queue_poll_interval"` // Worker sleep while the queue is momentarily empty
	StopwordsPath     string        `mapstructure:"stopwords_path" yaml:"stopwords_path"`           // Stopword list, embedded English list when empty
	DomainDelays      []string      `mapstructure:"domain_delays" yaml:"domain_delays"`             // Per-domain "host=duration" overrides of request_delay

	// Authentication
	Auth *Auth `mapstructure:"auth" yaml:"auth"`

	// URL filtering
	FollowExternalHosts bool     `mapstructure:"follow_external_hosts" yaml:"follow_external_hosts"` // Queue links to hosts other than the seeds'
	IncludePatterns     []string `mapstructure:"include_patterns" yaml:"include_patterns"`           // Regex patterns for URLs to include
	ExcludePatterns     []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`           // Regex patterns for URLs to exclude

	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	ImageTagger ImageTaggerConfig `mapstructure:"image_tagger" yaml:"image_tagger"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		Concurrency:         4,
		RequestDelay:        1 * time.Second,
		RequestTimeout:      30 * time.Second,
		UserAgent:           "TermSpider/1.0",
		RespectRobots:       true,
		RevisitAfter:        7 * 24 * time.Hour,
		Limit:               0, // unlimited
		QueuePollInterval:   100 * time.Millisecond,
		FollowExternalHosts: true,
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "./termspider.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		ImageTagger: ImageTaggerConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid. It raises a request
// delay below MinRequestDelay to the minimum instead of failing.
func (c *CrawlConfig) Validate() error {
	// Note: SeedURLs are optional here; the crawl command requires them.

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestDelay < MinRequestDelay {
		c.RequestDelay = MinRequestDelay
	}

	if c.RevisitAfter <= 0 {
		return ErrInvalidRevisitAfter
	}

	if c.Limit < 0 {
		return ErrInvalidLimit
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return ErrEmptyDSN
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	if _, err := c.DomainDelayMap(); err != nil {
		return err
	}

	for _, pattern := range append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		}
	}

	return nil
}

// DomainDelayMap parses DomainDelays into lowercased hosts and delays.
// Delays below MinRequestDelay are raised to it.
func (c *CrawlConfig) DomainDelayMap() (map[string]time.Duration, error) {
	delays := make(map[string]time.Duration, len(c.DomainDelays))
	for _, entry := range c.DomainDelays {
		host, value, ok := strings.Cut(entry, "=")
		host = strings.ToLower(strings.TrimSpace(host))
		if !ok || host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDomainDelay, entry)
		}
		delay, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDomainDelay, entry, err)
		}
		if delay < MinRequestDelay {
			delay = MinRequestDelay
		}
		delays[host] = delay
	}
	return delays, nil
}

// GetBasicAuthCredentials returns the basic auth username and password,
// resolving environment variables if specified
func (c *CrawlConfig) GetBasicAuthCredentials() (username, password string) {
	if c.Auth == nil || c.Auth.Basic == nil {
		return "", ""
	}

	basic := c.Auth.Basic

	if basic.UsernameEnv != "" {
		username = os.Getenv(basic.UsernameEnv)
	} else {
		username = basic.Username
	}

	if basic.PasswordEnv != "" {
		password = os.Getenv(basic.PasswordEnv)
	} else {
		password = basic.Password
	}

	return username, password
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *CrawlConfig) Redacted() *CrawlConfig {
	out := *c
	if out.ImageTagger.APIKey != "" {
		out.ImageTagger.APIKey = redacted
	}
	if c.Auth != nil && c.Auth.Basic != nil {
		basic := *c.Auth.Basic
		if basic.Password != "" {
			basic.Password = redacted
		}
		out.Auth = &Auth{Basic: &basic}
	}
	if c.Database.Driver == DriverPostgres && strings.Contains(c.Database.DSN, "@") {
		out.Database.DSN = redacted
	}
	return &out
}

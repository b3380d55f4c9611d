package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Concurrency)
	}

	if cfg.RequestDelay != 1*time.Second {
		t.Errorf("Expected request delay 1s, got %v", cfg.RequestDelay)
	}

	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.RequestTimeout)
	}

	if cfg.UserAgent != "TermSpider/1.0" {
		t.Errorf("Expected user agent 'TermSpider/1.0', got %s", cfg.UserAgent)
	}

	if !cfg.RespectRobots {
		t.Errorf("Expected respect robots true, got %v", cfg.RespectRobots)
	}

	if cfg.RevisitAfter != 7*24*time.Hour {
		t.Errorf("Expected revisit after 7 days, got %v", cfg.RevisitAfter)
	}

	if cfg.Limit != 0 {
		t.Errorf("Expected limit 0, got %d", cfg.Limit)
	}

	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != "./termspider.db" {
		t.Errorf("Unexpected database defaults %+v", cfg.Database)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *CrawlConfig)
		wantErr error
	}{
		{
			name:   "valid config",
			modify: func(c *CrawlConfig) {},
		},
		{
			name:    "invalid concurrency",
			modify:  func(c *CrawlConfig) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "invalid timeout",
			modify:  func(c *CrawlConfig) { c.RequestTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "invalid revisit after",
			modify:  func(c *CrawlConfig) { c.RevisitAfter = -time.Hour },
			wantErr: ErrInvalidRevisitAfter,
		},
		{
			name:    "negative limit",
			modify:  func(c *CrawlConfig) { c.Limit = -1 },
			wantErr: ErrInvalidLimit,
		},
		{
			name:    "unknown driver",
			modify:  func(c *CrawlConfig) { c.Database.Driver = "mysql" },
			wantErr: ErrUnknownDriver,
		},
		{
			name:    "empty dsn",
			modify:  func(c *CrawlConfig) { c.Database.DSN = "" },
			wantErr: ErrEmptyDSN,
		},
		{
			name:    "bad log format",
			modify:  func(c *CrawlConfig) { c.Log.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
		{
			name:    "bad pattern",
			modify:  func(c *CrawlConfig) { c.ExcludePatterns = []string{"("} },
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "bad domain delay",
			modify:  func(c *CrawlConfig) { c.DomainDelays = []string{"example.com:2s"} },
			wantErr: ErrInvalidDomainDelay,
		},
		{
			name:    "bad domain delay duration",
			modify:  func(c *CrawlConfig) { c.DomainDelays = []string{"example.com=soon"} },
			wantErr: ErrInvalidDomainDelay,
		},
		{
			name: "postgres driver",
			modify: func(c *CrawlConfig) {
				c.Database = DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/ts"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMinimumDelayEnforcement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestDelay = 50 * time.Millisecond

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.RequestDelay != MinRequestDelay {
		t.Errorf("Expected minimum delay to be enforced, got %v", cfg.RequestDelay)
	}
}

func TestDomainDelayMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DomainDelays = []string{"Example.com=2s", " slow.org:8080 = 10ms "}

	delays, err := cfg.DomainDelayMap()
	if err != nil {
		t.Fatalf("DomainDelayMap() error = %v", err)
	}
	if delays["example.com"] != 2*time.Second {
		t.Errorf("Expected example.com at 2s, got %v", delays["example.com"])
	}
	if delays["slow.org:8080"] != MinRequestDelay {
		t.Errorf("Expected slow.org:8080 raised to the minimum, got %v", delays["slow.org:8080"])
	}
}

func TestGetBasicAuthCredentials(t *testing.T) {
	t.Setenv("TS_TEST_USER", "env-user")
	t.Setenv("TS_TEST_PASS", "env-pass")

	tests := []struct {
		name     string
		auth     *Auth
		wantUser string
		wantPass string
	}{
		{"no auth", nil, "", ""},
		{"plain", &Auth{Basic: &BasicAuth{Username: "u", Password: "p"}}, "u", "p"},
		{"from env", &Auth{Basic: &BasicAuth{UsernameEnv: "TS_TEST_USER", PasswordEnv: "TS_TEST_PASS"}}, "env-user", "env-pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Auth = tt.auth
			user, pass := cfg.GetBasicAuthCredentials()
			if user != tt.wantUser || pass != tt.wantPass {
				t.Errorf("GetBasicAuthCredentials() = %q/%q, want %q/%q", user, pass, tt.wantUser, tt.wantPass)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImageTagger.APIKey = "secret-key"
	cfg.Auth = &Auth{Basic: &BasicAuth{Username: "u", Password: "p"}}
	cfg.Database = DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://user:pw@db/ts"}

	out := cfg.Redacted()
	if out.ImageTagger.APIKey != redacted || out.Auth.Basic.Password != redacted || out.Database.DSN != redacted {
		t.Errorf("Secrets not masked: %+v", out)
	}
	if out.Auth.Basic.Username != "u" {
		t.Error("Username should stay visible")
	}
	if cfg.ImageTagger.APIKey != "secret-key" || cfg.Auth.Basic.Password != "p" {
		t.Error("Redacted modified the original config")
	}
}
